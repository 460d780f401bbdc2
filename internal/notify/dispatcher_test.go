package notify_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/domain"
	"github.com/notifyhub/queue-watch/internal/notify"
)

// recordingSurface is a hand-written Surface that keeps everything it is given.
type recordingSurface struct {
	mu         sync.Mutex
	displayed  []*domain.NotificationIntent
	dismissed  []string
	DisplayErr error
}

func (s *recordingSurface) Display(_ context.Context, n *domain.NotificationIntent) error {
	if s.DisplayErr != nil {
		return s.DisplayErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayed = append(s.displayed, n)
	return nil
}

func (s *recordingSurface) Dismiss(_ context.Context, id string, _ domain.QueueID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissed = append(s.dismissed, id)
	return nil
}

type staticIcons map[string]string

func (i staticIcons) DataURI(name string) string { return i[name] }

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newDispatcher(s notify.Surface) *notify.Dispatcher {
	return notify.NewDispatcher(s, notify.Options{
		Icons:          staticIcons{"alert": "data:alert", "badge": "data:badge"},
		IconName:       "alert",
		BadgeName:      "badge",
		StatusPagePath: "/queue-status.html",
		Now:            func() time.Time { return fixedNow },
	}, zap.NewNop())
}

func calledSnapshot(id domain.QueueID) *domain.StatusSnapshot {
	return &domain.StatusSnapshot{QueueID: id, IsCalled: true}
}

func TestDispatcher_Build(t *testing.T) {
	d := newDispatcher(&recordingSurface{})

	n, err := d.Build(calledSnapshot("A42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Title != "Queue Alert!" {
		t.Fatalf("unexpected title %q", n.Title)
	}
	if !strings.Contains(n.Body, "being called") {
		t.Fatalf("body should reference the user's turn, got %q", n.Body)
	}
	if n.QueueID != "A42" {
		t.Fatalf("expected queue id A42, got %q", n.QueueID)
	}
	if !n.HasAction(domain.ActionView) {
		t.Fatal("expected a view action")
	}
	if n.StatusURL != "/queue-status.html?id=A42" {
		t.Fatalf("unexpected status url %q", n.StatusURL)
	}
	if n.Icon != "data:alert" || n.Badge != "data:badge" {
		t.Fatalf("icons not resolved: icon=%q badge=%q", n.Icon, n.Badge)
	}
	if !n.RequireInteraction {
		t.Fatal("expected RequireInteraction")
	}
	if !n.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected CreatedAt %s, got %s", fixedNow, n.CreatedAt)
	}
	if n.ID == "" {
		t.Fatal("expected a notification id")
	}
}

func TestDispatcher_Build_NamesQueueNumber(t *testing.T) {
	d := newDispatcher(&recordingSurface{})
	snap := calledSnapshot("b7f3")
	snap.QueueNumber = "A042"

	n, err := d.Build(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(n.Body, "A042") {
		t.Fatalf("expected body to name the queue number, got %q", n.Body)
	}
}

func TestDispatcher_Build_RejectsWaitingSnapshot(t *testing.T) {
	d := newDispatcher(&recordingSurface{})

	if _, err := d.Build(&domain.StatusSnapshot{QueueID: "A42"}); err == nil {
		t.Fatal("expected error for a snapshot that is not called")
	}
	if _, err := d.Build(nil); err == nil {
		t.Fatal("expected error for a nil snapshot")
	}
	if _, err := d.Build(&domain.StatusSnapshot{IsCalled: true}); err != domain.ErrInvalidQueueID {
		t.Fatalf("expected ErrInvalidQueueID, got %v", err)
	}
}

func TestDispatcher_Notify(t *testing.T) {
	s := &recordingSurface{}
	d := newDispatcher(s)

	if err := d.Notify(context.Background(), calledSnapshot("A42")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.displayed) != 1 {
		t.Fatalf("expected 1 displayed notification, got %d", len(s.displayed))
	}
}

func TestDispatcher_Notify_SurfaceFailureIsReturnedNotPanicked(t *testing.T) {
	s := &recordingSurface{DisplayErr: errors.New("permission denied")}
	d := newDispatcher(s)

	err := d.Notify(context.Background(), calledSnapshot("A42"))
	if err == nil {
		t.Fatal("expected error from failing surface")
	}

	// A failed display is not tracked, so a later click only uses the queue id it carries.
	d.HandleInteraction(context.Background(), domain.Interaction{NotificationID: "whatever"})
	select {
	case nav := <-d.Navigations():
		t.Fatalf("unexpected navigation %+v", nav)
	default:
	}
}

func TestDispatcher_HandleInteraction_ViewNavigatesAndDismisses(t *testing.T) {
	s := &recordingSurface{}
	d := newDispatcher(s)
	ctx := context.Background()

	if err := d.Notify(ctx, calledSnapshot("A42")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	id := s.displayed[0].ID

	d.HandleInteraction(ctx, domain.Interaction{NotificationID: id, Action: domain.ActionView})

	select {
	case nav := <-d.Navigations():
		if nav.QueueID != "A42" || nav.URL != "/queue-status.html?id=A42" {
			t.Fatalf("unexpected navigation %+v", nav)
		}
	default:
		t.Fatal("expected a navigation intent")
	}
	if len(s.dismissed) != 1 || s.dismissed[0] != id {
		t.Fatalf("expected notification %s dismissed, got %v", id, s.dismissed)
	}
}

func TestDispatcher_HandleInteraction_Actions(t *testing.T) {
	tests := []struct {
		name         string
		action       string
		wantNavigate bool
	}{
		{"body click", "", true},
		{"view action", domain.ActionView, true},
		{"close action", "close", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &recordingSurface{}
			d := newDispatcher(s)
			ctx := context.Background()
			_ = d.Notify(ctx, calledSnapshot("A42"))

			d.HandleInteraction(ctx, domain.Interaction{NotificationID: s.displayed[0].ID, Action: tc.action})

			navigated := false
			select {
			case <-d.Navigations():
				navigated = true
			default:
			}
			if navigated != tc.wantNavigate {
				t.Fatalf("navigated=%v, want %v", navigated, tc.wantNavigate)
			}
			if len(s.dismissed) != 1 {
				t.Fatalf("expected dismissal, got %v", s.dismissed)
			}
		})
	}
}

func TestDispatcher_HandleInteraction_FallsBackToCarriedQueueID(t *testing.T) {
	s := &recordingSurface{}
	d := newDispatcher(s)

	d.HandleInteraction(context.Background(), domain.Interaction{NotificationID: "from-before-restart", QueueID: "C9"})

	select {
	case nav := <-d.Navigations():
		if nav.QueueID != "C9" {
			t.Fatalf("expected queue C9, got %+v", nav)
		}
	default:
		t.Fatal("expected a navigation intent")
	}
}

func TestDispatcher_NavigationsDropWhenFull(t *testing.T) {
	s := &recordingSurface{}
	d := notify.NewDispatcher(s, notify.Options{NavigationBuffer: 1}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d.HandleInteraction(ctx, domain.Interaction{NotificationID: "n", QueueID: "A42"})
	}
	if got := len(d.Navigations()); got != 1 {
		t.Fatalf("expected buffered navigations capped at 1, got %d", got)
	}
}

func TestRecorded_OnlySurfaceCountsAsDelivery(t *testing.T) {
	visible := &recordingSurface{DisplayErr: domain.ErrSurfaceClosed}
	record := &recordingSurface{}
	n := &domain.NotificationIntent{ID: "n1", QueueID: "A42"}
	ctx := context.Background()

	err := (notify.Recorded{Surface: visible, Record: record}).Display(ctx, n)
	if !errors.Is(err, domain.ErrSurfaceClosed) {
		t.Fatalf("expected the visible surface's error, got %v", err)
	}
	if len(record.displayed) != 1 {
		t.Fatalf("expected the record to keep the notification, got %d", len(record.displayed))
	}

	visible.DisplayErr = nil
	if err := (notify.Recorded{Surface: visible, Record: record}).Display(ctx, n); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if err := (notify.Recorded{Surface: visible}).Dismiss(ctx, "n1", "A42"); err != nil {
		t.Fatalf("Dismiss without a record: %v", err)
	}
	if len(visible.dismissed) != 1 {
		t.Fatalf("expected dismissal on the visible surface, got %v", visible.dismissed)
	}
}

func TestDispatcher_Notify_UndeliveredWhenOnlyRecorded(t *testing.T) {
	record := &recordingSurface{}
	d := newDispatcher(notify.Recorded{
		Surface: &recordingSurface{DisplayErr: domain.ErrSurfaceClosed},
		Record:  record,
	})

	if err := d.Notify(context.Background(), calledSnapshot("A42")); !errors.Is(err, domain.ErrSurfaceClosed) {
		t.Fatalf("expected ErrSurfaceClosed, got %v", err)
	}
	if len(record.displayed) != 1 {
		t.Fatal("expected the notification to be recorded anyway")
	}
}

func TestTerminalSurface_Display(t *testing.T) {
	var buf bytes.Buffer
	s := notify.NewTerminalSurface(&buf)
	d := newDispatcher(s)

	if err := d.Notify(context.Background(), calledSnapshot("A42")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Queue Alert!", "being called", "View Queue", "/queue-status.html?id=A42"} {
		if !strings.Contains(out, want) {
			t.Fatalf("terminal output missing %q:\n%s", want, out)
		}
	}
}
