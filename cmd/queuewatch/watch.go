package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/config"
	"github.com/notifyhub/queue-watch/internal/domain"
	"github.com/notifyhub/queue-watch/internal/icons"
	"github.com/notifyhub/queue-watch/internal/monitor"
	"github.com/notifyhub/queue-watch/internal/notify"
	"github.com/notifyhub/queue-watch/internal/ratelimiter"
	"github.com/notifyhub/queue-watch/internal/statussource"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <queueId>",
		Short: "Poll a queue entry and show an alert when it is called",
		Long: `Polls the status source every poll interval and prints a boxed alert each
time the queue entry is reported as called. Runs until interrupted, or until
the first alert with --exit-on-call.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().Duration("interval", 0, "Poll interval (overrides POLL_INTERVAL)")
	cmd.Flags().Bool("exit-on-call", false, "Exit after the first alert")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
			cfg.PollInterval = interval
		}
		exitOnCall, _ := cmd.Flags().GetBool("exit-on-call")

		return runWatch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, args[0], exitOnCall, logger)
	}
	return cmd
}

// runWatch writes alerts to out and progress lines to errOut.
func runWatch(ctx context.Context, out, errOut io.Writer, cfg *config.Config, queueID string, exitOnCall bool, logger *zap.Logger) error {
	src, err := statussource.NewHTTPSource(cfg.StatusSourceBaseURL, cfg.StatusRequestTimeout)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(notify.NewTerminalSurface(out), notify.Options{
		Icons:          icons.NewLoader(cfg.IconDir, logger),
		IconName:       cfg.NotificationIcon,
		BadgeName:      cfg.NotificationBadge,
		StatusPagePath: cfg.StatusPagePath,
	}, logger)

	called := &firstCall{Notifier: dispatcher, done: make(chan struct{})}
	ctrl := monitor.NewController(src, called, monitor.Options{
		Interval:           cfg.PollInterval,
		NotifyOnTransition: cfg.NotifyPolicy == config.NotifyTransition,
		Limiter:            ratelimiter.New(cfg.PollRateLimit),
	}, logger)
	defer ctrl.Shutdown()

	id, err := ctrl.Start(queueID)
	if err != nil {
		return err
	}
	fmt.Fprintf(errOut, "watching %s every %s (Ctrl-C to stop)\n", id, ctrl.Interval())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !exitOnCall {
		<-ctx.Done()
		return nil
	}
	select {
	case <-ctx.Done():
	case <-called.done:
	}
	return nil
}

// firstCall closes done after the first delivered notification.
type firstCall struct {
	monitor.Notifier
	once sync.Once
	done chan struct{}
}

func (f *firstCall) Notify(ctx context.Context, snap *domain.StatusSnapshot) error {
	if err := f.Notifier.Notify(ctx, snap); err != nil {
		return err
	}
	f.once.Do(func() { close(f.done) })
	return nil
}
