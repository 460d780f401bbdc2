package notify

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/domain"
)

const (
	alertTitle      = "Queue Alert!"
	viewActionTitle = "View Queue"

	// maxTracked bounds how many displayed notifications are remembered for
	// click handling. The oldest entry is forgotten first.
	maxTracked = 1024
)

var vibratePattern = []int{200, 100, 200, 100, 200}

// Surface is the platform capability that shows notifications to the user.
// Tests substitute a recording fake.
type Surface interface {
	Display(ctx context.Context, n *domain.NotificationIntent) error
	Dismiss(ctx context.Context, id string, queueID domain.QueueID) error
}

// IconSource resolves an icon name to a URI the surface can render.
type IconSource interface {
	DataURI(name string) string
}

// Options configure how intents are built.
type Options struct {
	Icons          IconSource
	IconName       string
	BadgeName      string
	StatusPagePath string
	// NavigationBuffer is the capacity of the Navigations channel.
	NavigationBuffer int
	Now              func() time.Time
}

// Dispatcher builds notification intents from "called" snapshots, hands them
// to a Surface and turns user interactions into navigation intents.
type Dispatcher struct {
	surface Surface
	opts    Options
	logger  *zap.Logger

	mu    sync.Mutex
	shown map[string]domain.QueueID
	order []string

	navigations chan domain.NavigationIntent
}

func NewDispatcher(surface Surface, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.StatusPagePath == "" {
		opts.StatusPagePath = "/queue-status.html"
	}
	if opts.NavigationBuffer <= 0 {
		opts.NavigationBuffer = 64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		surface:     surface,
		opts:        opts,
		logger:      logger,
		shown:       make(map[string]domain.QueueID),
		navigations: make(chan domain.NavigationIntent, opts.NavigationBuffer),
	}
}

// Navigations delivers navigation intents produced by user interactions.
func (d *Dispatcher) Navigations() <-chan domain.NavigationIntent {
	return d.navigations
}

// StatusURL returns the status page link for id.
func (d *Dispatcher) StatusURL(id domain.QueueID) string {
	return d.opts.StatusPagePath + "?id=" + url.QueryEscape(string(id))
}

// Build constructs the intent for a snapshot that reports the queue as called.
func (d *Dispatcher) Build(snap *domain.StatusSnapshot) (*domain.NotificationIntent, error) {
	if snap == nil || !snap.IsCalled {
		return nil, fmt.Errorf("snapshot does not report the queue as called")
	}
	if snap.QueueID == "" {
		return nil, domain.ErrInvalidQueueID
	}

	body := "Your queue number is being called! Please proceed to the office."
	if snap.QueueNumber != "" {
		body = fmt.Sprintf("Your queue number %s is being called! Please proceed to the office.", snap.QueueNumber)
	}

	n := &domain.NotificationIntent{
		ID:                 uuid.New().String(),
		QueueID:            snap.QueueID,
		Title:              alertTitle,
		Body:               body,
		Vibrate:            append([]int(nil), vibratePattern...),
		RequireInteraction: true,
		Actions: []domain.NotificationAction{
			{Action: domain.ActionView, Title: viewActionTitle},
		},
		StatusURL: d.StatusURL(snap.QueueID),
		CreatedAt: d.opts.Now().UTC(),
	}
	if d.opts.Icons != nil {
		n.Icon = d.opts.Icons.DataURI(d.opts.IconName)
		n.Badge = d.opts.Icons.DataURI(d.opts.BadgeName)
	}
	return n, nil
}

// Notify builds and displays a notification for snap. Failures are logged
// and returned for accounting only; callers must not stop polling on error.
func (d *Dispatcher) Notify(ctx context.Context, snap *domain.StatusSnapshot) error {
	n, err := d.Build(snap)
	if err != nil {
		d.logger.Warn("failed to build notification", zap.Error(err))
		return err
	}

	log := d.logger.With(
		zap.String("queue_id", string(n.QueueID)),
		zap.String("notification_id", n.ID),
	)

	if err := d.surface.Display(ctx, n); err != nil {
		log.Warn("failed to display notification", zap.Error(err))
		return fmt.Errorf("display notification: %w", err)
	}

	d.track(n.ID, n.QueueID)
	log.Info("notification displayed")
	return nil
}

// HandleInteraction reacts to a click on a displayed notification. The view
// action or a body click requests navigation to the status page; every
// interaction dismisses the notification. Nothing is returned to the poller.
func (d *Dispatcher) HandleInteraction(ctx context.Context, in domain.Interaction) {
	queueID, known := d.forget(in.NotificationID)
	if !known {
		queueID = in.QueueID
	}
	if queueID == "" {
		d.logger.Debug("ignoring interaction for unknown notification",
			zap.String("notification_id", in.NotificationID))
		return
	}

	log := d.logger.With(
		zap.String("queue_id", string(queueID)),
		zap.String("notification_id", in.NotificationID),
		zap.String("action", in.Action),
	)

	if in.Opens() {
		d.publish(domain.NavigationIntent{QueueID: queueID, URL: d.StatusURL(queueID)}, log)
	}

	if err := d.surface.Dismiss(ctx, in.NotificationID, queueID); err != nil {
		log.Warn("failed to dismiss notification", zap.Error(err))
	}
}

func (d *Dispatcher) publish(nav domain.NavigationIntent, log *zap.Logger) {
	select {
	case d.navigations <- nav:
		log.Info("navigation requested", zap.String("url", nav.URL))
	default:
		log.Warn("navigation channel full, dropping navigation intent")
	}
}

func (d *Dispatcher) track(id string, queueID domain.QueueID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.shown[id] = queueID
	d.order = append(d.order, id)
	for len(d.order) > maxTracked {
		delete(d.shown, d.order[0])
		d.order = d.order[1:]
	}
}

func (d *Dispatcher) forget(id string) (domain.QueueID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queueID, ok := d.shown[id]
	if !ok {
		return "", false
	}
	delete(d.shown, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return queueID, true
}
