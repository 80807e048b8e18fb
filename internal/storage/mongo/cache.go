// Package mongo provides a MongoDB-backed ResultCache.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

const connectTimeout = 10 * time.Second

// Config identifies the collection holding cache documents.
type Config struct {
	URI        string
	Database   string
	Collection string
}

type document struct {
	TargetURL    string    `bson:"_id"`
	ManifestText string    `bson:"manifest_text"`
	CreatedAt    time.Time `bson:"created_at"`
}

// Cache keeps one document per normalized target URL, keyed by _id.
type Cache struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to MongoDB and verifies the deployment with a ping.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.URI == "" || cfg.Database == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("mongo uri, database and collection are required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Cache{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// NewWithCollection wraps an existing collection (primarily for testing).
func NewWithCollection(coll *mongo.Collection) *Cache {
	return &Cache{coll: coll}
}

// Close disconnects the client when the cache owns it.
func (c *Cache) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}

// Get loads the document for targetURL.
func (c *Cache) Get(ctx context.Context, targetURL string) (llmstxt.CacheEntry, bool, error) {
	var doc document
	err := c.coll.FindOne(ctx, bson.D{{Key: "_id", Value: targetURL}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return llmstxt.CacheEntry{}, false, nil
	}
	if err != nil {
		return llmstxt.CacheEntry{}, false, fmt.Errorf("find cache entry: %w", err)
	}
	return llmstxt.CacheEntry{
		TargetURL:    doc.TargetURL,
		ManifestText: doc.ManifestText,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, true, nil
}

// Put replaces the document for entry.TargetURL, inserting it when absent.
func (c *Cache) Put(ctx context.Context, entry llmstxt.CacheEntry) error {
	if entry.TargetURL == "" {
		return fmt.Errorf("target url is required")
	}
	doc := document{
		TargetURL:    entry.TargetURL,
		ManifestText: entry.ManifestText,
		CreatedAt:    entry.CreatedAt.UTC(),
	}
	_, err := c.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: entry.TargetURL}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Invalidate removes the document for targetURL.
func (c *Cache) Invalidate(ctx context.Context, targetURL string) error {
	if _, err := c.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: targetURL}}); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}
