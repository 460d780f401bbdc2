package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/domain"
)

// LogSurface records notifications in the structured log. It is the
// fallback surface when no foreground controller is attached.
type LogSurface struct {
	logger *zap.Logger
}

func NewLogSurface(logger *zap.Logger) *LogSurface {
	return &LogSurface{logger: logger}
}

func (s *LogSurface) Display(_ context.Context, n *domain.NotificationIntent) error {
	s.logger.Info("notification",
		zap.String("notification_id", n.ID),
		zap.String("queue_id", string(n.QueueID)),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.String("status_url", n.StatusURL),
	)
	return nil
}

func (s *LogSurface) Dismiss(_ context.Context, id string, queueID domain.QueueID) error {
	s.logger.Debug("notification dismissed",
		zap.String("notification_id", id),
		zap.String("queue_id", string(queueID)),
	)
	return nil
}

const alertRed = lipgloss.Color("#DC2626")

var (
	alertBox        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(alertRed).Padding(0, 1)
	alertTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(alertRed)
	alertHintStyle  = lipgloss.NewStyle().Faint(true)
)

// TerminalSurface renders notifications as a boxed alert on a terminal.
type TerminalSurface struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminalSurface(out io.Writer) *TerminalSurface {
	return &TerminalSurface{out: out}
}

func (s *TerminalSurface) Display(_ context.Context, n *domain.NotificationIntent) error {
	var actions []string
	for _, a := range n.Actions {
		actions = append(actions, fmt.Sprintf("[%s] %s", a.Action, a.Title))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		alertTitleStyle.Render(n.Title),
		n.Body,
		alertHintStyle.Render(strings.Join(actions, "  ")+"  "+n.StatusURL),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.out, alertBox.Render(content))
	return err
}

func (s *TerminalSurface) Dismiss(context.Context, string, domain.QueueID) error {
	return nil
}

// Recorded shows notifications on Surface and keeps a copy on Record.
// Only Surface decides whether a notification was delivered: Record is a
// trail for operators, not something the user sees.
type Recorded struct {
	Surface Surface
	Record  Surface
}

func (r Recorded) Display(ctx context.Context, n *domain.NotificationIntent) error {
	err := r.Surface.Display(ctx, n)
	if r.Record != nil {
		_ = r.Record.Display(ctx, n)
	}
	return err
}

func (r Recorded) Dismiss(ctx context.Context, id string, queueID domain.QueueID) error {
	err := r.Surface.Dismiss(ctx, id, queueID)
	if r.Record != nil {
		_ = r.Record.Dismiss(ctx, id, queueID)
	}
	return err
}

var (
	_ Surface = (*LogSurface)(nil)
	_ Surface = (*TerminalSurface)(nil)
	_ Surface = Recorded{}
)
