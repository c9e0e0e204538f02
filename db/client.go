// Package db stores the lookup journal: one entry per search request with
// what was asked and how it went. Search results are never stored.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hum-search/config"
	"hum-search/models"
)

type DBClient interface {
	RecordLookup(ctx context.Context, lookup models.Lookup) error
	RecentLookups(ctx context.Context, limit int) ([]models.Lookup, error)
	Close() error
}

// NewDBClient opens the backend named by cfg.DBType. An empty type gives a
// client that discards everything.
func NewDBClient(cfg config.Config) (DBClient, error) {
	switch strings.ToLower(cfg.DBType) {
	case "", "none":
		return NopClient{}, nil
	case "sqlite":
		return NewSQLiteClient(cfg.SQLitePath)
	case "mongo", "mongodb":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", cfg.DBType)
	}
}

// NopClient is the journal used when none is configured.
type NopClient struct{}

func (NopClient) RecordLookup(context.Context, models.Lookup) error { return nil }

func (NopClient) RecentLookups(context.Context, int) ([]models.Lookup, error) {
	return []models.Lookup{}, nil
}

func (NopClient) Close() error { return nil }
