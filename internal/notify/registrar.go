package notify

import (
	"context"
	"time"

	"remindcal/internal/model"
)

// Metadata keys carried on every trigger.
const (
	MetaItemID   = "itemId"
	MetaRepeat   = "repeat"
	MetaCategory = "category"
)

// Notification is a single message handed to a Deliverer.
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
	// AutoCancel marks notifications that should disappear once seen.
	AutoCancel bool `json:"autoCancel"`
}

// Trigger describes a future (possibly repeating) notification.
type Trigger struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	Body     string                `json:"body"`
	FireAt   time.Time             `json:"fireAt"`
	Repeat   model.RepeatFrequency `json:"repeat"`
	Exact    bool                  `json:"exact"`
	Metadata map[string]string     `json:"metadata,omitempty"`
}

// Notification builds the message delivered each time the trigger fires.
func (t Trigger) Notification() Notification {
	return Notification{
		Title:      t.Title,
		Body:       t.Body,
		Metadata:   t.Metadata,
		AutoCancel: !t.Repeat.Repeats(),
	}
}

// Registrar owns registered triggers. CancelTrigger on an unknown or already
// fired id is a no-op.
type Registrar interface {
	SubmitTrigger(ctx context.Context, trigger Trigger) (string, error)
	SubmitImmediate(ctx context.Context, n Notification) error
	CancelTrigger(ctx context.Context, id string) error
	CancelAllTriggers(ctx context.Context) error
}
