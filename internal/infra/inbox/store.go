package inbox

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store deduplicates consumed events. Seen records eventID and reports
// whether it was already there.
type Store interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

type MongoStore struct {
	col      *mongo.Collection
	consumer string
}

func NewMongoStore(db *mongo.Database, consumer string) *MongoStore {
	col := db.Collection("app_inbox")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}}, Options: options.Index().SetUnique(true)})
	return &MongoStore{col: col, consumer: consumer}
}

func (s *MongoStore) Seen(ctx context.Context, eventID string) (bool, error) {
	doc := bson.M{"event_id": eventID, "consumer": s.consumer, "received_at": time.Now().UTC()}
	_, err := s.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, err
}

// Memory remembers event ids for the life of the process.
type Memory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (m *Memory) Seen(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[eventID]; ok {
		return true, nil
	}
	m.seen[eventID] = struct{}{}
	return false, nil
}

var _ Store = (*MongoStore)(nil)
var _ Store = (*Memory)(nil)
