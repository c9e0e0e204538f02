package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hum-search/models"
)

type MongoClient struct {
	client  *mongo.Client
	lookups *mongo.Collection
}

func NewMongoClient(ctx context.Context, uri, database string) (*MongoClient, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach mongo: %v", err)
	}
	return &MongoClient{
		client:  client,
		lookups: client.Database(database).Collection("lookups"),
	}, nil
}

func (c *MongoClient) RecordLookup(ctx context.Context, l models.Lookup) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if _, err := c.lookups.InsertOne(ctx, l); err != nil {
		return fmt.Errorf("failed to record lookup: %v", err)
	}
	return nil
}

func (c *MongoClient) RecentLookups(ctx context.Context, limit int) ([]models.Lookup, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := c.lookups.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %v", err)
	}

	lookups := make([]models.Lookup, 0, limit)
	if err := cursor.All(ctx, &lookups); err != nil {
		return nil, fmt.Errorf("failed to decode lookups: %v", err)
	}
	return lookups, nil
}

func (c *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}
