package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/domain"
	"github.com/notifyhub/queue-watch/internal/ratelimiter"
	"github.com/notifyhub/queue-watch/internal/statussource"
)

// session polls the status source for one queue on a fixed interval and
// notifies when the queue is called.
//
// Ticks never overlap: the next tick waits for the current poll, and the
// ticker drops ticks that fall due meanwhile.
type session struct {
	id       domain.QueueID
	src      statussource.Source
	notifier Notifier
	limiter  *ratelimiter.PollLimiter
	clock    clockwork.Clock
	ticker   clockwork.Ticker
	hooks    Hooks
	dedup    bool
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// mu guards everything below. It is held across notifier calls so that
	// stop() cannot return while a notification is being delivered.
	mu            sync.Mutex
	stopped       bool
	startedAt     time.Time
	ticks         int
	failedPolls   int
	notifications int
	lastPollAt    time.Time
	lastCalled    bool
	// notifiedCall is set once the current called period has been notified.
	notifiedCall bool
}

func newSession(
	id domain.QueueID,
	src statussource.Source,
	notifier Notifier,
	opts Options,
	logger *zap.Logger,
) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:        id,
		src:       src,
		notifier:  notifier,
		limiter:   opts.Limiter,
		clock:     opts.Clock,
		ticker:    opts.Clock.NewTicker(opts.Interval),
		hooks:     opts.Hooks,
		dedup:     opts.NotifyOnTransition,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: opts.Clock.Now().UTC(),
	}
}

// run ticks every interval until the session is stopped.
func (s *session) run() {
	defer close(s.done)
	defer s.ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.ticker.Chan():
			s.tick()
		}
	}
}

// stop records stop intent, aborts any in-flight poll and waits for run to return.
func (s *session) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
}

func (s *session) tick() {
	if err := s.limiter.Wait(s.ctx); err != nil {
		return
	}

	start := s.clock.Now()
	snap, err := s.src.FetchStatus(s.ctx, s.id)
	latency := s.clock.Since(start)

	// Stopped while the request was in flight: discard the result.
	if s.ctx.Err() != nil {
		return
	}

	if err == nil && snap == nil {
		err = fmt.Errorf("%w: empty response", domain.ErrMalformedStatus)
	}
	s.hooks.OnPoll(latency, err == nil && snap.IsCalled, err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.ticks++
	s.lastPollAt = s.clock.Now().UTC()

	if err != nil {
		// No data this tick; the next tick retries naturally.
		s.failedPolls++
		s.logger.Warn("status poll failed", zap.Error(err))
		return
	}

	s.lastCalled = snap.IsCalled
	if !snap.IsCalled {
		s.notifiedCall = false
		s.logger.Debug("queue not called yet")
		return
	}
	if s.dedup && s.notifiedCall {
		s.hooks.OnSuppressed()
		s.logger.Debug("queue still called, notification suppressed")
		return
	}

	// The session's id is authoritative for where the click leads.
	snap.QueueID = s.id
	if err := s.notifier.Notify(s.ctx, snap); err != nil {
		s.hooks.OnNotify(false)
		return
	}
	s.notifications++
	s.notifiedCall = true
	s.hooks.OnNotify(true)
}

func (s *session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{
		QueueID:       s.id,
		StartedAt:     s.startedAt,
		Ticks:         s.ticks,
		FailedPolls:   s.failedPolls,
		Notifications: s.notifications,
		LastCalled:    s.lastCalled,
	}
	if !s.lastPollAt.IsZero() {
		t := s.lastPollAt
		info.LastPollAt = &t
	}
	return info
}
