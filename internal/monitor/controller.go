package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/domain"
	"github.com/notifyhub/queue-watch/internal/ratelimiter"
	"github.com/notifyhub/queue-watch/internal/statussource"
)

// ErrClosed is returned by Start once the controller has been shut down.
var ErrClosed = errors.New("monitor controller is shut down")

// Stop reasons reported to Hooks.OnSessionStop.
const (
	ReasonStopped  = "stopped"
	ReasonSwept    = "swept"
	ReasonShutdown = "shutdown"
)

const defaultInterval = 15 * time.Second

// Notifier turns a "called" snapshot into a user-visible notification.
type Notifier interface {
	Notify(ctx context.Context, snap *domain.StatusSnapshot) error
}

// Hooks carries the metric callback functions injected by main.
// Any nil hook is a no-op, so the monitor stays metrics-agnostic.
type Hooks struct {
	OnPoll         func(latency time.Duration, called bool, err error)
	OnNotify       func(delivered bool)
	OnSuppressed   func()
	OnSessionStart func()
	OnSessionStop  func(reason string)
}

func (h Hooks) withDefaults() Hooks {
	if h.OnPoll == nil {
		h.OnPoll = func(time.Duration, bool, error) {}
	}
	if h.OnNotify == nil {
		h.OnNotify = func(bool) {}
	}
	if h.OnSuppressed == nil {
		h.OnSuppressed = func() {}
	}
	if h.OnSessionStart == nil {
		h.OnSessionStart = func() {}
	}
	if h.OnSessionStop == nil {
		h.OnSessionStop = func(string) {}
	}
	return h
}

// Options tune every session the controller starts.
type Options struct {
	// Interval between polls. Zero uses 15 seconds.
	Interval time.Duration
	// NotifyOnTransition suppresses repeat notifications while a queue stays
	// called; only a change from waiting to called notifies.
	NotifyOnTransition bool
	// Limiter caps outbound polls across sessions. Nil means unlimited.
	Limiter *ratelimiter.PollLimiter
	// Clock drives session tickers. Nil uses the real clock.
	Clock clockwork.Clock
	Hooks Hooks
}

// SessionInfo is a read-only view of one monitoring session.
type SessionInfo struct {
	QueueID       domain.QueueID `json:"queueId"`
	StartedAt     time.Time      `json:"startedAt"`
	Ticks         int            `json:"ticks"`
	FailedPolls   int            `json:"failedPolls"`
	Notifications int            `json:"notifications"`
	LastPollAt    *time.Time     `json:"lastPollAt,omitempty"`
	LastCalled    bool           `json:"lastCalled"`
}

// Controller owns the registry of monitoring sessions, one per QueueID.
// Sessions run until Stop, StopAll or Shutdown.
type Controller struct {
	src      statussource.Source
	notifier Notifier
	opts     Options
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[domain.QueueID]*session
	closed   bool
}

func NewController(
	src statussource.Source,
	notifier Notifier,
	opts Options,
	logger *zap.Logger,
) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	opts.Hooks = opts.Hooks.withDefaults()

	return &Controller{
		src:      src,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		sessions: make(map[domain.QueueID]*session),
	}
}

// Interval reports the poll interval sessions use.
func (c *Controller) Interval() time.Duration {
	return c.opts.Interval
}

// Start validates raw as a QueueID and begins polling it.
// A queue that is already monitored keeps its existing session and
// ErrAlreadyMonitoring is returned alongside the parsed id.
func (c *Controller) Start(raw string) (domain.QueueID, error) {
	id, err := domain.ParseQueueID(raw)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return id, ErrClosed
	}
	if _, ok := c.sessions[id]; ok {
		return id, domain.ErrAlreadyMonitoring
	}

	s := newSession(id, c.src, c.notifier, c.opts, c.logger.With(zap.String("queue_id", string(id))))
	c.sessions[id] = s
	go s.run()

	c.opts.Hooks.OnSessionStart()
	s.logger.Info("monitoring started", zap.Duration("interval", c.opts.Interval))
	return id, nil
}

// Stop cancels the session for raw and waits for its goroutine to exit.
// Once Stop returns no further polls or notifications happen for that queue.
func (c *Controller) Stop(raw string) (domain.QueueID, error) {
	id, err := domain.ParseQueueID(raw)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	s, ok := c.sessions[id]
	if ok {
		delete(c.sessions, id)
	}
	c.mu.Unlock()

	if !ok {
		return id, domain.ErrNotMonitoring
	}

	s.stop()
	c.opts.Hooks.OnSessionStop(ReasonStopped)
	s.logger.Info("monitoring stopped")
	return id, nil
}

// StopAll ends every session and reports how many were stopped.
// The controller keeps accepting new sessions afterwards.
func (c *Controller) StopAll(reason string) int {
	c.mu.Lock()
	sessions := make([]*session, 0, len(c.sessions))
	for id, s := range c.sessions {
		sessions = append(sessions, s)
		delete(c.sessions, id)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *session) {
			defer wg.Done()
			s.stop()
			c.opts.Hooks.OnSessionStop(reason)
		}(s)
	}
	wg.Wait()

	return len(sessions)
}

// Shutdown stops every session and rejects further starts.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	n := c.StopAll(ReasonShutdown)
	c.logger.Info("monitor controller stopped", zap.Int("sessions", n))
}

// Closed reports whether Shutdown has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Active reports whether id is currently monitored.
func (c *Controller) Active(id domain.QueueID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[id]
	return ok
}

// Sessions returns a snapshot of all active sessions ordered by QueueID.
func (c *Controller) Sessions() []SessionInfo {
	c.mu.Lock()
	sessions := make([]*session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].QueueID < infos[j].QueueID })
	return infos
}

// Session returns the view of one session.
func (c *Controller) Session(id domain.QueueID) (SessionInfo, bool) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	c.mu.Unlock()
	if !ok {
		return SessionInfo{}, false
	}
	return s.info(), true
}
