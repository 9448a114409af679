package outbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "github.com/andresg0412/waiwahost-plataforma/internal/app/outbox"
)

// MongoStore keeps the outbox in the app_outbox collection. Add uses the
// session carried by ctx, so records commit with the interval writes.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	col := db.Collection("app_outbox")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoStore{col: col}
}

func (s *MongoStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := time.Now().UTC()
	doc := NewRecord(record, now)
	_, err := s.col.InsertOne(ctx, bson.M{
		"_id":             doc.ID,
		"name":            doc.Name,
		"payload":         doc.Payload,
		"occurred_at":     doc.OccurredAt,
		"aggregate":       doc.Aggregate,
		"headers":         doc.Headers,
		"state":           doc.State,
		"attempts":        0,
		"next_attempt_at": doc.NextAttempt,
		"created_at":      now,
	})
	return err
}

// Flush is a no-op; the worker polls.
func (s *MongoStore) Flush(context.Context) error {
	return nil
}

func (s *MongoStore) Claim(ctx context.Context, workerID string) (*Record, error) {
	now := time.Now().UTC()
	filter := bson.M{"state": bson.M{"$in": []string{StateNew, StateFailed}}, "next_attempt_at": bson.M{"$lte": now}}
	update := bson.M{"$set": bson.M{"state": StateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}})
	var doc Record
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (s *MongoStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"state": StateSent, "sent_at": time.Now().UTC()}})
	return err
}

func (s *MongoStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"state":           StateFailed,
			"next_attempt_at": next,
			"last_error":      errMsg,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return err
}

var _ Store = (*MongoStore)(nil)
