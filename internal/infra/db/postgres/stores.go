package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
	appoutbox "github.com/andresg0412/waiwahost-plataforma/internal/app/outbox"
	infraoutbox "github.com/andresg0412/waiwahost-plataforma/internal/infra/outbox"
)

// OutboxStore keeps the outbox in app_outbox. Add joins the transaction bound
// to ctx, so records commit with the interval writes.
type OutboxStore struct {
	DB *sql.DB
}

func (s OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	rec := infraoutbox.NewRecord(record, time.Now().UTC())
	headers, err := json.Marshal(rec.Headers)
	if err != nil {
		return err
	}
	_, err = conn(ctx, s.DB).ExecContext(ctx, `INSERT INTO app_outbox
		(id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Name, rec.Payload, rec.OccurredAt.UTC(), rec.Aggregate, headers, rec.State, rec.NextAttempt)
	return err
}

// Flush is a no-op; the worker polls.
func (s OutboxStore) Flush(context.Context) error {
	return nil
}

// Claim locks the oldest due record, skipping rows other workers hold.
func (s OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Record, error) {
	row := s.DB.QueryRowContext(ctx, `UPDATE app_outbox SET state = $1, claimed_by = $2, claimed_at = now()
		WHERE id = (
			SELECT id FROM app_outbox
			WHERE state = ANY($3) AND next_attempt_at <= $4
			ORDER BY next_attempt_at, occurred_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, state, attempts, next_attempt_at, claimed_by`,
		infraoutbox.StateClaimed, workerID,
		pq.Array([]string{infraoutbox.StateNew, infraoutbox.StateFailed}), time.Now().UTC())

	var (
		rec     infraoutbox.Record
		headers []byte
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.Payload, &rec.OccurredAt, &rec.Aggregate, &headers,
		&rec.State, &rec.Attempts, &rec.NextAttempt, &rec.ClaimedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &rec.Headers); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (s OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, "UPDATE app_outbox SET state = $1, sent_at = now() WHERE id = $2", infraoutbox.StateSent, id)
	return err
}

func (s OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE app_outbox
		SET state = $1, next_attempt_at = $2, last_error = $3, attempts = attempts + 1
		WHERE id = $4`, infraoutbox.StateFailed, next.UTC(), errMsg, id)
	return err
}

// IdempotencyStore keeps replayable command results. Rows older than TTL are
// ignored on read and removed by Prune.
type IdempotencyStore struct {
	DB  *sql.DB
	TTL time.Duration
}

func (s IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	err := s.DB.QueryRowContext(ctx,
		"SELECT command, payload, occurred_at FROM app_idempotency WHERE key = $1 AND created_at > $2",
		key, s.cutoff()).Scan(&rec.Command, &rec.Payload, &rec.OccurredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

func (s IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO app_idempotency (key, command, payload, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (key) DO UPDATE SET command = EXCLUDED.command, payload = EXCLUDED.payload,
			occurred_at = EXCLUDED.occurred_at, created_at = EXCLUDED.created_at`,
		rec.Key, rec.Command, rec.Payload, rec.OccurredAt.UTC())
	return err
}

func (s IdempotencyStore) cutoff() time.Time {
	if s.TTL <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().Add(-s.TTL)
}

// Prune deletes expired records and reports how many went.
func (s IdempotencyStore) Prune(ctx context.Context) (int64, error) {
	if s.TTL <= 0 {
		return 0, nil
	}
	res, err := s.DB.ExecContext(ctx, "DELETE FROM app_idempotency WHERE created_at <= $1", s.cutoff())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InboxStore records consumed event ids per consumer.
type InboxStore struct {
	DB       *sql.DB
	Consumer string
}

// Seen records eventID and reports whether it had been recorded before.
func (s InboxStore) Seen(ctx context.Context, eventID string) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO app_inbox (event_id, consumer) VALUES ($1, $2) ON CONFLICT DO NOTHING", eventID, s.Consumer)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

var _ infraoutbox.Store = OutboxStore{}
var _ middleware.IdempotencyStore = IdempotencyStore{}
