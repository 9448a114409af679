package outbox

import (
	"context"
	"time"

	appoutbox "github.com/andresg0412/waiwahost-plataforma/internal/app/outbox"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// Store persists outbox records next to the writes that produced them and
// hands them to the relay one at a time.
type Store interface {
	appoutbox.Outbox
	// Claim returns the next due record, or nil when there is none.
	Claim(ctx context.Context, workerID string) (*Record, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// Record is an outbox entry with its delivery state.
type Record struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by"`
	ClaimedAt   time.Time         `bson:"claimed_at"`
	SentAt      time.Time         `bson:"sent_at"`
	LastError   string            `bson:"last_error"`
}

// NewRecord wraps an event for storage, due immediately.
func NewRecord(ev appoutbox.EventRecord, now time.Time) Record {
	return Record{
		ID:          ev.ID,
		Name:        ev.Name,
		Payload:     ev.Payload,
		OccurredAt:  ev.OccurredAt,
		Aggregate:   ev.Aggregate,
		Headers:     ev.Headers,
		State:       StateNew,
		NextAttempt: now,
	}
}
