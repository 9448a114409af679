package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	intervalsCollection     = "intervals"
	propertiesCollection    = "properties"
	propertyLocksCollection = "property_locks"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the window reads rely on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	_, err := c.DB.Collection(intervalsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "start", Value: 1}, {Key: "end", Value: 1}}},
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "start", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = c.DB.Collection(propertiesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "name", Value: 1}},
	})
	return err
}
