package domain

// MessageType tags every message exchanged with a foreground controller.
type MessageType string

// Inbound commands.
const (
	CmdStartMonitoring   MessageType = "START_MONITORING"
	CmdStopMonitoring    MessageType = "STOP_MONITORING"
	CmdNotificationClick MessageType = "NOTIFICATION_CLICK"
)

// Outbound messages.
const (
	MsgMonitoringStarted MessageType = "MONITORING_STARTED"
	MsgMonitoringStopped MessageType = "MONITORING_STOPPED"
	MsgNotification      MessageType = "NOTIFICATION"
	MsgNavigate          MessageType = "NAVIGATE"
)

// Command is the inbound payload from a foreground controller.
// NotificationID and Action are only set on NOTIFICATION_CLICK.
type Command struct {
	Type           MessageType `json:"type"`
	QueueID        string      `json:"queueId,omitempty"`
	NotificationID string      `json:"notificationId,omitempty"`
	Action         string      `json:"action,omitempty"`
}

// Ack acknowledges a lifecycle command.
type Ack struct {
	Type    MessageType `json:"type"`
	Success bool        `json:"success"`
	QueueID QueueID     `json:"queueId,omitempty"`
}

// Envelope carries a pushed message (notification or navigation) to a foreground controller.
type Envelope struct {
	Type         MessageType         `json:"type"`
	QueueID      QueueID             `json:"queueId"`
	Notification *NotificationIntent `json:"notification,omitempty"`
	Navigation   *NavigationIntent   `json:"navigation,omitempty"`
}
