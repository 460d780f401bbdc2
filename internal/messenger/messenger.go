package messenger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/queue-watch/internal/domain"
)

// ReplyChannel carries acknowledgements back to the foreground controller
// that sent a command. It may be nil when the sender expects no reply.
type ReplyChannel interface {
	Send(ctx context.Context, msg any) error
}

// ReplyFunc adapts a plain function to ReplyChannel.
type ReplyFunc func(ctx context.Context, msg any) error

func (f ReplyFunc) Send(ctx context.Context, msg any) error { return f(ctx, msg) }

// Lifecycle starts and stops monitoring sessions.
type Lifecycle interface {
	Start(raw string) (domain.QueueID, error)
	Stop(raw string) (domain.QueueID, error)
}

// InteractionHandler reacts to clicks on displayed notifications.
type InteractionHandler interface {
	HandleInteraction(ctx context.Context, in domain.Interaction)
}

// Messenger routes commands from foreground controllers to the monitor and
// the notification dispatcher, and acknowledges lifecycle commands.
type Messenger struct {
	lifecycle    Lifecycle
	interactions InteractionHandler
	logger       *zap.Logger
}

func New(lifecycle Lifecycle, interactions InteractionHandler, logger *zap.Logger) *Messenger {
	return &Messenger{
		lifecycle:    lifecycle,
		interactions: interactions,
		logger:       logger,
	}
}

// Receive handles one command. The returned error is informational: an
// invalid queue id is never acknowledged and unknown types are ignored.
//
// Starting a queue that is already monitored and stopping one that is not
// are both acknowledged as successful.
func (m *Messenger) Receive(ctx context.Context, cmd domain.Command, reply ReplyChannel) error {
	log := m.logger.With(zap.String("type", string(cmd.Type)), zap.String("queue_id", cmd.QueueID))

	switch cmd.Type {
	case domain.CmdStartMonitoring:
		id, err := m.lifecycle.Start(cmd.QueueID)
		if err != nil && !errors.Is(err, domain.ErrAlreadyMonitoring) {
			log.Warn("start monitoring rejected", zap.Error(err))
			return err
		}
		m.replyAck(ctx, reply, domain.Ack{Type: domain.MsgMonitoringStarted, Success: true, QueueID: id}, log)
		return nil

	case domain.CmdStopMonitoring:
		id, err := m.lifecycle.Stop(cmd.QueueID)
		if err != nil && !errors.Is(err, domain.ErrNotMonitoring) {
			log.Warn("stop monitoring rejected", zap.Error(err))
			return err
		}
		m.replyAck(ctx, reply, domain.Ack{Type: domain.MsgMonitoringStopped, Success: true, QueueID: id}, log)
		return nil

	case domain.CmdNotificationClick:
		m.interactions.HandleInteraction(ctx, domain.Interaction{
			NotificationID: cmd.NotificationID,
			QueueID:        domain.QueueID(cmd.QueueID),
			Action:         cmd.Action,
		})
		return nil

	default:
		log.Debug("ignoring unknown command")
		return fmt.Errorf("%w: %q", domain.ErrUnknownCommand, cmd.Type)
	}
}

// replyAck sends ack on reply. A nil reply channel sends nothing; send
// failures are logged and dropped.
func (m *Messenger) replyAck(ctx context.Context, reply ReplyChannel, ack domain.Ack, log *zap.Logger) {
	if reply == nil {
		return
	}
	if err := reply.Send(ctx, ack); err != nil {
		log.Warn("failed to send acknowledgement", zap.Error(err))
	}
}
