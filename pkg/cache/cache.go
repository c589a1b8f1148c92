package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/apperrors"
)

// FileCache is a content-addressed directory of cache entries. A zero TTL
// means entries never expire. Readers treat anything missing, expired or
// unreadable as a miss.
type FileCache struct {
	dir    string
	ttl    time.Duration
	ext    string
	now    func() time.Time
	logger *zap.Logger
}

// New creates a cache rooted at dir. Files are stored as <key><ext>.
func New(dir string, ttl time.Duration, ext string, logger *zap.Logger) *FileCache {
	return &FileCache{
		dir:    dir,
		ttl:    ttl,
		ext:    ext,
		now:    time.Now,
		logger: logger.Named("cache"),
	}
}

// Key hashes parts into a hex SHA-256 digest.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Path returns the file backing key.
func (c *FileCache) Path(key string) string {
	return filepath.Join(c.dir, key+c.ext)
}

// Get returns the cached bytes for key when present and fresh.
func (c *FileCache) Get(key string) ([]byte, bool) {
	path := c.Path(key)
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Cache entry unreadable", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(info.ModTime()) > c.ttl {
		c.logger.Debug("Cache entry expired", zap.String("path", path))
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("Cache entry unreadable", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	return data, true
}

// Put stores data under key. The entry is written to a temporary file in the
// cache directory and renamed into place.
func (c *FileCache) Put(key string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", apperrors.ErrCache, c.dir, err)
	}
	if err := WriteFileAtomic(c.Path(key), data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCache, err)
	}
	return nil
}

// Invalidate removes the entry for key if present.
func (c *FileCache) Invalidate(key string) {
	if err := os.Remove(c.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("Failed to remove cache entry", zap.String("key", key), zap.Error(err))
	}
}

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place so readers never observe partial content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpName, err := StageFile(path, data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// StageFile writes data to a synced temp file in the directory of path and
// returns its name. The caller renames it onto path or removes it.
func StageFile(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimPrefix(filepath.Base(path), ".")+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	return tmpName, nil
}
