package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
)

const idempotencyCollection = "command_replays"

// IdempotencyStore keeps replayable command results keyed by
// "<command>:<Idempotency-Key>". Mongo's TTL monitor removes a record once
// expires_at passes; Get also hides records the monitor has not reached yet.
type IdempotencyStore struct {
	col *mongo.Collection
	ttl time.Duration
	now func() time.Time
}

func NewIdempotencyStore(db *mongo.Database, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &IdempotencyStore{col: db.Collection(idempotencyCollection), ttl: ttl, now: time.Now}
}

// EnsureIndexes installs the expiry index. The key is the document id, so no
// other index is needed.
func (s *IdempotencyStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": s.now().UTC()}}
	var doc replayDocument
	err := s.col.FindOne(ctx, filter).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return middleware.IdempotencyRecord{}, false, nil
	case err != nil:
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{
		Key:        doc.Key,
		Command:    doc.Command,
		Payload:    doc.Result,
		OccurredAt: doc.OccurredAt,
	}, true, nil
}

// Save replaces any earlier record for the key, which only happens when the
// previous one expired between Get and Save.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	doc := replayDocument{
		Key:        rec.Key,
		Command:    rec.Command,
		Result:     rec.Payload,
		OccurredAt: rec.OccurredAt,
		ExpiresAt:  s.now().UTC().Add(s.ttl),
	}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": rec.Key}, doc, options.Replace().SetUpsert(true))
	return err
}

type replayDocument struct {
	Key        string    `bson:"_id"`
	Command    string    `bson:"command"`
	Result     []byte    `bson:"result,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
