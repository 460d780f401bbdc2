package domain

import "time"

// ActionView is the notification action that opens the queue status page.
const ActionView = "view"

// NotificationAction is one button shown on a notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// NotificationIntent is a one-shot description of a user-facing alert.
// It is built only from snapshots that report IsCalled.
type NotificationIntent struct {
	ID                 string               `json:"id"`
	QueueID            QueueID              `json:"queueId"`
	Title              string               `json:"title"`
	Body               string               `json:"body"`
	Icon               string               `json:"icon,omitempty"`
	Badge              string               `json:"badge,omitempty"`
	Vibrate            []int                `json:"vibrate,omitempty"`
	RequireInteraction bool                 `json:"requireInteraction"`
	Actions            []NotificationAction `json:"actions"`
	StatusURL          string               `json:"statusUrl"`
	CreatedAt          time.Time            `json:"createdAt"`
}

// HasAction reports whether the intent offers the given action.
func (n *NotificationIntent) HasAction(action string) bool {
	for _, a := range n.Actions {
		if a.Action == action {
			return true
		}
	}
	return false
}

// Interaction is a user's response to a displayed notification.
// An empty Action means the notification body itself was clicked.
type Interaction struct {
	NotificationID string  `json:"notificationId"`
	QueueID        QueueID `json:"queueId,omitempty"`
	Action         string  `json:"action,omitempty"`
}

// Opens reports whether the interaction should navigate to the status page.
func (i Interaction) Opens() bool {
	return i.Action == "" || i.Action == ActionView
}

// NavigationIntent asks the foreground surface to open the status view for a queue.
type NavigationIntent struct {
	QueueID QueueID `json:"queueId"`
	URL     string  `json:"url"`
}
