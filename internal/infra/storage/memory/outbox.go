package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	appoutbox "github.com/andresg0412/waiwahost-plataforma/internal/app/outbox"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	infraoutbox "github.com/andresg0412/waiwahost-plataforma/internal/infra/outbox"
)

// OutboxStore keeps outbox records in memory. Records added inside a memory
// unit of work only become visible when that unit commits.
type OutboxStore struct {
	mu      sync.Mutex
	records map[string]*infraoutbox.Record
	now     func() time.Time
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{records: make(map[string]*infraoutbox.Record), now: time.Now}
}

func (o *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			return mu.onCommit(func() { o.put(record) })
		}
	}
	o.put(record)
	return nil
}

func (o *OutboxStore) put(record appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec := infraoutbox.NewRecord(record, o.now().UTC())
	o.records[rec.ID] = &rec
}

// Flush is a no-op; the worker polls.
func (o *OutboxStore) Flush(context.Context) error {
	return nil
}

// Claim hands out the oldest due record.
func (o *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now().UTC()
	var due []*infraoutbox.Record
	for _, rec := range o.records {
		if (rec.State == infraoutbox.StateNew || rec.State == infraoutbox.StateFailed) && !rec.NextAttempt.After(now) {
			due = append(due, rec)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].OccurredAt.Equal(due[j].OccurredAt) {
			return due[i].OccurredAt.Before(due[j].OccurredAt)
		}
		return due[i].ID < due[j].ID
	})
	rec := due[0]
	rec.State = infraoutbox.StateClaimed
	rec.ClaimedBy = workerID
	rec.ClaimedAt = now
	out := *rec
	return &out, nil
}

func (o *OutboxStore) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec, ok := o.records[id]; ok {
		rec.State = infraoutbox.StateSent
		rec.SentAt = o.now().UTC()
	}
	return nil
}

func (o *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec, ok := o.records[id]; ok {
		rec.State = infraoutbox.StateFailed
		rec.NextAttempt = next
		rec.LastError = errMsg
		rec.Attempts++
	}
	return nil
}

// Pending counts records not yet sent.
func (o *OutboxStore) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, rec := range o.records {
		if rec.State != infraoutbox.StateSent {
			n++
		}
	}
	return n
}

var _ infraoutbox.Store = (*OutboxStore)(nil)
