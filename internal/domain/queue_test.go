package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/notifyhub/queue-watch/internal/domain"
)

func TestParseQueueID(t *testing.T) {
	t.Run("valid id passes", func(t *testing.T) {
		id, err := domain.ParseQueueID("A42")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "A42" {
			t.Fatalf("expected A42, got %q", id)
		}
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		id, err := domain.ParseQueueID("  b7f3c1  ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "b7f3c1" {
			t.Fatalf("expected trimmed id, got %q", id)
		}
	})

	t.Run("id at max length passes", func(t *testing.T) {
		if _, err := domain.ParseQueueID(strings.Repeat("x", 128)); err != nil {
			t.Fatalf("expected no error at max length, got %v", err)
		}
	})

	rejected := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"too long", strings.Repeat("x", 129)},
		{"slash", "A/42"},
		{"query", "A42?x=1"},
		{"fragment", "A42#top"},
		{"inner space", "A 42"},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := domain.ParseQueueID(tc.in); err != domain.ErrInvalidQueueID {
				t.Fatalf("expected ErrInvalidQueueID, got %v", err)
			}
		})
	}
}

func TestInteraction_Opens(t *testing.T) {
	tests := []struct {
		action string
		want   bool
	}{
		{"", true},
		{domain.ActionView, true},
		{"close", false},
		{"snooze", false},
	}
	for _, tc := range tests {
		got := domain.Interaction{NotificationID: "n1", Action: tc.action}.Opens()
		if got != tc.want {
			t.Fatalf("action %q: expected Opens()=%v, got %v", tc.action, tc.want, got)
		}
	}
}

func TestNotificationIntent_HasAction(t *testing.T) {
	n := domain.NotificationIntent{
		Actions: []domain.NotificationAction{{Action: domain.ActionView, Title: "View Queue"}},
	}
	if !n.HasAction(domain.ActionView) {
		t.Fatal("expected view action to be present")
	}
	if n.HasAction("close") {
		t.Fatal("expected close action to be absent")
	}
}

func TestStatusSnapshot_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantCalled bool
		wantID     domain.QueueID
	}{
		{"snake case called", `{"queue_id":"A42","is_called":true}`, true, "A42"},
		{"camel case called", `{"queueId":"A42","isCalled":true}`, true, "A42"},
		{"camel case waiting", `{"queueId":"A42","isCalled":false}`, false, "A42"},
		{"snake key wins for id", `{"queue_id":"A42","queueId":"B7"}`, false, "A42"},
		{"either key reports called", `{"is_called":false,"isCalled":true}`, true, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var snap domain.StatusSnapshot
			if err := json.Unmarshal([]byte(tc.body), &snap); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if snap.IsCalled != tc.wantCalled {
				t.Fatalf("IsCalled = %v, want %v", snap.IsCalled, tc.wantCalled)
			}
			if snap.QueueID != tc.wantID {
				t.Fatalf("QueueID = %q, want %q", snap.QueueID, tc.wantID)
			}
		})
	}

	t.Run("display fields still decode", func(t *testing.T) {
		var snap domain.StatusSnapshot
		body := `{"isCalled":true,"queue_number":"042","status":{"text":"Serving"}}`
		if err := json.Unmarshal([]byte(body), &snap); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if snap.QueueNumber != "042" || snap.Status.Text != "Serving" {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	})
}
