// Package local implements a ResultCache on the local filesystem: one JSON
// file per normalized URL, enough to rebuild freshness decisions after a
// process restart.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/llmstxt-generator/internal/hash/sha256"
	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

// Config captures the parameters for the local filesystem cache.
type Config struct {
	// BaseDir is the root directory where cache entries are stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Cache stores manifests under BaseDir.
type Cache struct {
	baseDir string
}

// New creates a filesystem-backed cache, creating BaseDir if needed and
// verifying it is writable.
func New(cfg Config) (*Cache, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Cache{baseDir: cfg.BaseDir}, nil
}

// Get reads the entry for targetURL. A missing file is a miss.
func (c *Cache) Get(_ context.Context, targetURL string) (llmstxt.CacheEntry, bool, error) {
	data, err := os.ReadFile(c.entryPath(targetURL))
	if errors.Is(err, os.ErrNotExist) {
		return llmstxt.CacheEntry{}, false, nil
	}
	if err != nil {
		return llmstxt.CacheEntry{}, false, fmt.Errorf("read cache entry: %w", err)
	}
	var entry llmstxt.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return llmstxt.CacheEntry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return entry, true, nil
}

// Put writes the entry to a temp file and renames it into place so readers
// never observe a partially written entry.
func (c *Cache) Put(_ context.Context, entry llmstxt.CacheEntry) error {
	if strings.TrimSpace(entry.TargetURL) == "" {
		return fmt.Errorf("target url is required")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	fullPath := c.entryPath(entry.TargetURL)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename cache entry: %w", err)
	}
	return nil
}

// Invalidate deletes the entry for targetURL; a missing entry is not an error.
func (c *Cache) Invalidate(_ context.Context, targetURL string) error {
	if err := os.Remove(c.entryPath(targetURL)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

func (c *Cache) entryPath(targetURL string) string {
	return filepath.Join(c.baseDir, filepath.FromSlash(sha256.ObjectKey("", targetURL)))
}
