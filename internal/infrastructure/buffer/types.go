package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityProfile  = "profile"
	EntityPost     = "post"
	EntityDonation = "donation"

	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

const (
	minPriority     = 1
	maxPriority     = 5
	defaultPriority = 3
)

// Item is a write that could not reach Postgres and waits to be replayed.
// Lower priority values drain first; within a priority, items keep their
// enqueue order for their whole life. Subject identifies the row the write
// targets so writes to the same row replay in order.
type Item struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	Subject   string          `json:"subject,omitempty"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	LastError string          `json:"last_error,omitempty"`
	FailedAt  time.Time       `json:"failed_at,omitempty"`
	Timestamp time.Time       `json:"timestamp"`

	key []byte
}

// SubjectKey scopes Subject by entity. Empty when the item has no subject.
func (i Item) SubjectKey() string {
	if i.Subject == "" {
		return ""
	}
	return i.Entity + "/" + i.Subject
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority < minPriority || i.Priority > maxPriority {
		i.Priority = defaultPriority
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}

func (i *Item) deadSince() time.Time {
	if !i.FailedAt.IsZero() {
		return i.FailedAt
	}
	return i.Timestamp
}
