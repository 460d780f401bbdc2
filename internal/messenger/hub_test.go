package messenger_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/domain"
	"github.com/notifyhub/queue-watch/internal/messenger"
	"github.com/notifyhub/queue-watch/internal/monitor"
	"github.com/notifyhub/queue-watch/internal/notify"
	"github.com/notifyhub/queue-watch/internal/statussource"
)

type hubFixture struct {
	hub *messenger.Hub
	lc  *fakeLifecycle
	in  *recordingInteractions
	srv *httptest.Server
}

func newHubFixture(t *testing.T, allowedOrigins ...string) *hubFixture {
	t.Helper()
	lc := newFakeLifecycle()
	in := &recordingInteractions{seen: make(chan struct{}, 8)}
	hub := messenger.NewHub(zap.NewNop(), allowedOrigins...)
	srv := httptest.NewServer(hub.Handler(messenger.New(lc, in, zap.NewNop())))
	t.Cleanup(srv.Close)
	return &hubFixture{hub: hub, lc: lc, in: in, srv: srv}
}

func (f *hubFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	return dialURL(t, f.srv.URL)
}

func dialURL(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(serverURL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func wsURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http")
}

func send(t *testing.T, conn *websocket.Conn, cmd domain.Command) {
	t.Helper()
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHub_StartAckAndNotification(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	send(t, conn, domain.Command{Type: domain.CmdStartMonitoring, QueueID: "A42"})
	ack := readEnvelope(t, conn)
	if ack["type"] != string(domain.MsgMonitoringStarted) || ack["success"] != true {
		t.Fatalf("unexpected ack %v", ack)
	}

	n := &domain.NotificationIntent{ID: "n1", QueueID: "A42", Title: "Queue Alert!"}
	if err := f.hub.Display(context.Background(), n); err != nil {
		t.Fatalf("Display: %v", err)
	}
	msg := readEnvelope(t, conn)
	if msg["type"] != string(domain.MsgNotification) || msg["queueId"] != "A42" {
		t.Fatalf("unexpected message %v", msg)
	}
	body, _ := msg["notification"].(map[string]any)
	if body["id"] != "n1" {
		t.Fatalf("unexpected notification payload %v", body)
	}
}

func TestHub_DisplayWithoutWatcherFails(t *testing.T) {
	f := newHubFixture(t)

	err := f.hub.Display(context.Background(), &domain.NotificationIntent{ID: "n1", QueueID: "Z9"})
	if !errors.Is(err, domain.ErrSurfaceClosed) {
		t.Fatalf("expected ErrSurfaceClosed, got %v", err)
	}
}

func TestHub_StopUnsubscribes(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	send(t, conn, domain.Command{Type: domain.CmdStartMonitoring, QueueID: "A42"})
	readEnvelope(t, conn)
	send(t, conn, domain.Command{Type: domain.CmdStopMonitoring, QueueID: "A42"})
	ack := readEnvelope(t, conn)
	if ack["type"] != string(domain.MsgMonitoringStopped) {
		t.Fatalf("unexpected ack %v", ack)
	}

	err := f.hub.Display(context.Background(), &domain.NotificationIntent{ID: "n1", QueueID: "A42"})
	if !errors.Is(err, domain.ErrSurfaceClosed) {
		t.Fatalf("expected no watcher after stop, got %v", err)
	}
}

func TestHub_NotificationClickAndNavigate(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	send(t, conn, domain.Command{Type: domain.CmdStartMonitoring, QueueID: "A42"})
	readEnvelope(t, conn)

	send(t, conn, domain.Command{Type: domain.CmdNotificationClick, NotificationID: "n1", QueueID: "A42"})
	select {
	case <-f.in.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("interaction not delivered")
	}

	navs := make(chan domain.NavigationIntent, 1)
	navs <- domain.NavigationIntent{QueueID: "A42", URL: "/queue-status.html?id=A42"}
	close(navs)
	f.hub.ForwardNavigations(context.Background(), navs)

	msg := readEnvelope(t, conn)
	if msg["type"] != string(domain.MsgNavigate) {
		t.Fatalf("unexpected message %v", msg)
	}
	nav, _ := msg["navigation"].(map[string]any)
	if nav["url"] != "/queue-status.html?id=A42" {
		t.Fatalf("unexpected navigation %v", nav)
	}
}

func TestHub_InvalidStartGetsNoAck(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	send(t, conn, domain.Command{Type: domain.CmdStartMonitoring, QueueID: ""})
	send(t, conn, domain.Command{Type: domain.CmdStartMonitoring, QueueID: "B7"})

	// The first reply must belong to the valid command.
	ack := readEnvelope(t, conn)
	if ack["queueId"] != "B7" {
		t.Fatalf("expected only B7 to be acknowledged, got %v", ack)
	}
}

func TestHub_SessionsOutliveConnection(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	send(t, conn, domain.Command{Type: domain.CmdStartMonitoring, QueueID: "A42"})
	readEnvelope(t, conn)
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.hub.Clients() != 0 {
		t.Fatal("client not unregistered after close")
	}
	if !f.lc.Active("A42") {
		t.Fatal("monitoring must continue after the controller disconnects")
	}
}

func TestHub_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		wantOK  bool
	}{
		{"no origin header", nil, "", true},
		{"foreign origin rejected by default", nil, "https://queue-frontend.example", false},
		{"listed origin", []string{"https://queue-frontend.example"}, "https://queue-frontend.example", true},
		{"listed origin with trailing slash", []string{"https://queue-frontend.example/"}, "https://Queue-Frontend.example", true},
		{"unlisted origin", []string{"https://queue-frontend.example"}, "https://evil.example", false},
		{"wildcard", []string{"*"}, "https://anything.example", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newHubFixture(t, tc.allowed...)

			header := http.Header{}
			if tc.origin != "" {
				header.Set("Origin", tc.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(f.srv.URL), header)
			if conn != nil {
				_ = conn.Close()
			}
			if tc.wantOK && err != nil {
				t.Fatalf("expected handshake to succeed, got %v", err)
			}
			if !tc.wantOK {
				if err == nil {
					t.Fatal("expected handshake to be rejected")
				}
				if resp == nil || resp.StatusCode != http.StatusForbidden {
					t.Fatalf("expected 403, got %v", resp)
				}
			}
		})
	}
}

// A queue called while no page is connected must still alert the page
// that reconnects, even when repeat notifications are suppressed.
func TestHub_CalledWhileDisconnectedAlertsAfterReconnect(t *testing.T) {
	logger := zap.NewNop()
	hub := messenger.NewHub(logger)
	dispatcher := notify.NewDispatcher(
		notify.Recorded{Surface: hub, Record: notify.NewLogSurface(logger)},
		notify.Options{},
		logger,
	)
	src := statussource.SourceFunc(func(_ context.Context, id domain.QueueID) (*domain.StatusSnapshot, error) {
		return &domain.StatusSnapshot{QueueID: id, IsCalled: true}, nil
	})
	clock := clockwork.NewFakeClock()
	ctrl := monitor.NewController(src, dispatcher, monitor.Options{
		Interval:           time.Second,
		NotifyOnTransition: true,
		Clock:              clock,
	}, logger)
	t.Cleanup(ctrl.Shutdown)

	srv := httptest.NewServer(hub.Handler(messenger.New(ctrl, dispatcher, logger)))
	t.Cleanup(srv.Close)

	if _, err := ctrl.Start("A42"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tick(t, ctrl, clock, "A42")
	if info, _ := ctrl.Session("A42"); info.Notifications != 0 {
		t.Fatalf("nothing was shown, yet %d notifications were counted", info.Notifications)
	}

	conn := dialURL(t, srv.URL)
	send(t, conn, domain.Command{Type: domain.CmdStartMonitoring, QueueID: "A42"})
	if ack := readEnvelope(t, conn); ack["type"] != string(domain.MsgMonitoringStarted) {
		t.Fatalf("unexpected ack %v", ack)
	}

	tick(t, ctrl, clock, "A42")
	msg := readEnvelope(t, conn)
	if msg["type"] != string(domain.MsgNotification) || msg["queueId"] != "A42" {
		t.Fatalf("expected a notification after reconnect, got %v", msg)
	}
	if info, _ := ctrl.Session("A42"); info.Notifications != 1 {
		t.Fatalf("expected 1 delivered notification, got %d", info.Notifications)
	}

	// Now that the page has seen it, the still-called queue stays quiet.
	tick(t, ctrl, clock, "A42")
	if info, _ := ctrl.Session("A42"); info.Notifications != 1 {
		t.Fatalf("expected repeat to be suppressed, got %d", info.Notifications)
	}
}

// tick advances the fake clock one interval and waits for the session to
// finish polling.
func tick(t *testing.T, c *monitor.Controller, clock *clockwork.FakeClock, id domain.QueueID) {
	t.Helper()
	info, ok := c.Session(id)
	if !ok {
		t.Fatalf("session %s not active", id)
	}
	want := info.Ticks + 1
	clock.Advance(c.Interval())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if info, _ = c.Session(id); info.Ticks >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session %s did not reach %d ticks", id, want)
}
