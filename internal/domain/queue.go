package domain

import (
	"encoding/json"
	"strings"
	"unicode"
)

const maxQueueIDLen = 128

// QueueID identifies one user's ticket in a service queue.
// It is opaque to this service; the queue backend issues it.
type QueueID string

// ParseQueueID trims s and validates it as a QueueID.
// The id ends up as a URL path segment, so path and query delimiters are rejected.
func ParseQueueID(s string) (QueueID, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxQueueIDLen {
		return "", ErrInvalidQueueID
	}
	for _, r := range s {
		if unicode.IsSpace(r) || r == '/' || r == '?' || r == '#' {
			return "", ErrInvalidQueueID
		}
	}
	return QueueID(s), nil
}

func (id QueueID) String() string { return string(id) }

// StatusLabel is the display block the queue backend attaches to a status read.
type StatusLabel struct {
	Text     string `json:"text"`
	Class    string `json:"class"`
	Priority string `json:"priority"`
}

// StatusSnapshot is a point-in-time read of a queue entry.
// Only IsCalled drives behaviour; the rest is passed through for display.
// The queue backend sends snake_case keys; isCalled and queueId are also
// accepted on decode.
type StatusSnapshot struct {
	QueueID          QueueID     `json:"queue_id,omitempty"`
	IsCalled         bool        `json:"is_called"`
	IsPresent        bool        `json:"is_present"`
	QueueNumber      string      `json:"queue_number,omitempty"`
	DepartmentPrefix string      `json:"department_prefix,omitempty"`
	AdminStatus      string      `json:"admin_status,omitempty"`
	Status           StatusLabel `json:"status"`
}

// UnmarshalJSON decodes the snake_case body and falls back to the camelCase
// isCalled and queueId keys. Either key reporting called is enough.
func (s *StatusSnapshot) UnmarshalJSON(data []byte) error {
	type plain StatusSnapshot
	aux := struct {
		*plain
		IsCalledCamel bool    `json:"isCalled"`
		QueueIDCamel  QueueID `json:"queueId"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.IsCalled = s.IsCalled || aux.IsCalledCamel
	if s.QueueID == "" {
		s.QueueID = aux.QueueIDCamel
	}
	return nil
}
