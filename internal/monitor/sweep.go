package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper ends every monitoring session on a cron schedule so that
// sessions left behind by abandoned clients do not poll forever.
type Sweeper struct {
	ctrl   *Controller
	cron   *cron.Cron
	spec   string
	logger *zap.Logger
}

// NewSweeper parses spec (standard five-field cron syntax) and returns a
// Sweeper that is not yet running.
func NewSweeper(ctrl *Controller, spec string, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		ctrl:   ctrl,
		cron:   cron.New(),
		spec:   spec,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep() }); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Sweep stops all sessions now and returns how many were ended.
func (s *Sweeper) Sweep() int {
	n := s.ctrl.StopAll(ReasonSwept)
	s.logger.Info("monitoring sessions swept", zap.Int("sessions", n))
	return n
}

// Run starts the schedule and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("sweeper started", zap.String("schedule", s.spec))
	s.cron.Start()

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
	}
	s.logger.Info("sweeper stopped")
}
