package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/domain"
	"github.com/notifyhub/queue-watch/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Hub serves foreground controllers over websocket. Every connection is a
// reply channel for the commands it sends, and a connection that started a
// queue receives that queue's NOTIFICATION and NAVIGATE messages.
//
// Sessions outlive connections: closing a page does not stop monitoring.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub returns a Hub accepting websocket handshakes from its own origin
// and from allowedOrigins. "*" allows any origin.
func NewHub(logger *zap.Logger, allowedOrigins ...string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients), same-origin requests and origins listed in allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		if set[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// client is one websocket connection.
type client struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex

	mu     sync.Mutex
	queues map[domain.QueueID]struct{}
}

func (c *client) Send(_ context.Context, msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *client) subscribe(id domain.QueueID) {
	c.mu.Lock()
	c.queues[id] = struct{}{}
	c.mu.Unlock()
}

func (c *client) unsubscribe(id domain.QueueID) {
	c.mu.Lock()
	delete(c.queues, id)
	c.mu.Unlock()
}

func (c *client) watches(id domain.QueueID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.queues[id]
	return ok
}

// Handler returns the websocket endpoint. Commands read from each
// connection are passed to m with the connection as reply channel.
func (h *Hub) Handler(m *Messenger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(m, w, r)
	})
}

// serve upgrades the request and reads commands until the peer goes away.
func (h *Hub) serve(m *Messenger, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:     uuid.New().String(),
		conn:   conn,
		queues: make(map[domain.QueueID]struct{}),
	}
	h.register(c)
	defer h.unregister(c)

	log := h.logger.With(zap.String("client_id", c.id))
	log.Info("controller connected")

	conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			log.Info("controller disconnected")
			return
		}

		var cmd domain.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Debug("ignoring malformed message", zap.Error(err))
			continue
		}
		h.handle(r.Context(), m, c, cmd)
	}
}

// handle passes cmd to m and keeps the client's subscriptions in step.
// A start subscribes before the ack goes out so the controller cannot
// miss a notification that follows it.
func (h *Hub) handle(ctx context.Context, m *Messenger, c *client, cmd domain.Command) {
	id, err := domain.ParseQueueID(cmd.QueueID)
	valid := err == nil

	if valid && cmd.Type == domain.CmdStartMonitoring {
		c.subscribe(id)
	}
	if err := m.Receive(ctx, cmd, c); err != nil {
		if valid && cmd.Type == domain.CmdStartMonitoring {
			c.unsubscribe(id)
		}
		return
	}
	if valid && cmd.Type == domain.CmdStopMonitoring {
		c.unsubscribe(id)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Clients reports the number of connected controllers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast sends msg to every client watching id and reports how many
// accepted it.
func (h *Hub) broadcast(ctx context.Context, id domain.QueueID, msg any) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.watches(id) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.Send(ctx, msg); err != nil {
			h.logger.Warn("websocket send failed",
				zap.String("client_id", c.id),
				zap.String("queue_id", string(id)),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}

// Display pushes a NOTIFICATION to the controllers watching the queue.
// It fails when no controller received it.
func (h *Hub) Display(ctx context.Context, n *domain.NotificationIntent) error {
	msg := domain.Envelope{Type: domain.MsgNotification, QueueID: n.QueueID, Notification: n}
	if h.broadcast(ctx, n.QueueID, msg) == 0 {
		return fmt.Errorf("%w: no controller watching %s", domain.ErrSurfaceClosed, n.QueueID)
	}
	return nil
}

// Dismiss is a no-op: controllers close the notification they clicked.
func (h *Hub) Dismiss(context.Context, string, domain.QueueID) error {
	return nil
}

// Navigate pushes a NAVIGATE message to the controllers watching the queue.
func (h *Hub) Navigate(ctx context.Context, nav domain.NavigationIntent) {
	msg := domain.Envelope{Type: domain.MsgNavigate, QueueID: nav.QueueID, Navigation: &nav}
	if h.broadcast(ctx, nav.QueueID, msg) == 0 {
		h.logger.Info("no controller to navigate", zap.String("queue_id", string(nav.QueueID)))
	}
}

// ForwardNavigations delivers intents from navs until ctx is cancelled or
// navs is closed.
func (h *Hub) ForwardNavigations(ctx context.Context, navs <-chan domain.NavigationIntent) {
	for {
		select {
		case <-ctx.Done():
			return
		case nav, ok := <-navs:
			if !ok {
				return
			}
			h.Navigate(ctx, nav)
		}
	}
}

var (
	_ notify.Surface = (*Hub)(nil)
	_ ReplyChannel   = (*client)(nil)
)
