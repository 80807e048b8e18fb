// Package gcs provides a ResultCache backed by Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/llmstxt-generator/internal/hash/sha256"
	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// Cache stores one JSON object per normalized URL in a bucket.
type Cache struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed cache.
func New(client *storage.Client, cfg Config) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Cache{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Get downloads and decodes the entry for targetURL.
func (c *Cache) Get(ctx context.Context, targetURL string) (llmstxt.CacheEntry, bool, error) {
	reader, err := c.object(targetURL).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return llmstxt.CacheEntry{}, false, nil
	}
	if err != nil {
		return llmstxt.CacheEntry{}, false, fmt.Errorf("open object: %w", err)
	}
	defer reader.Close() //nolint:errcheck // read-only close
	data, err := io.ReadAll(reader)
	if err != nil {
		return llmstxt.CacheEntry{}, false, fmt.Errorf("read object: %w", err)
	}
	var entry llmstxt.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return llmstxt.CacheEntry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return entry, true, nil
}

// Put uploads the entry. GCS object writes become visible atomically on Close.
func (c *Cache) Put(ctx context.Context, entry llmstxt.CacheEntry) error {
	if strings.TrimSpace(entry.TargetURL) == "" {
		return fmt.Errorf("target url is required")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	writer := c.object(entry.TargetURL).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Invalidate deletes the object for targetURL; a missing object is not an error.
func (c *Cache) Invalidate(ctx context.Context, targetURL string) error {
	err := c.object(targetURL).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ObjectName returns the object path used for targetURL.
func (c *Cache) ObjectName(targetURL string) string {
	return sha256.ObjectKey(c.prefix, targetURL)
}

func (c *Cache) object(targetURL string) *storage.ObjectHandle {
	return c.client.Bucket(c.bucket).Object(c.ObjectName(targetURL))
}
