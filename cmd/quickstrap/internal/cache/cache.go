// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package cache persists a validity-checked copy of the manifest so
repeated CLI invocations skip re-reading and re-validating the source.

# Problem Statement

Every quickstrap command needs the manifest. Parsing and validating it
on each of the dozens of invocations in a typical session is wasted
work, but a stale copy is worse than no copy: the manifest changes
whenever the generator reruns, and a command acting on yesterday's
phases table would silently do the wrong thing.

# Solution

A file pair under the cache directory:

	manifest.cache       verbatim copy of the manifest bytes
	manifest.cache.meta  YAML sidecar: schema version, capture time,
	                     source mtime, TTL

A cached copy is served only when BOTH hold:

  - the source file's mtime equals the recorded mtime, and
  - the copy's age is within the TTL.

Either failing falls through to the source and rewrites the pair.
Writes go through a temp file in the same directory followed by a
rename, so a concurrent reader sees either the old pair or the new
pair, never a torn write. When the cache directory cannot be created
the cache degrades to a session-scoped temp directory rather than
failing the command.
*/
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/manifest"
	"github.com/quickstrap/quickstrap/pkg/logging"
)

// =============================================================================
// Error Sentinel Values
// =============================================================================

// ErrSourceMissing is returned when the manifest source file does not
// exist. The cache never serves a copy of a deleted source.
var ErrSourceMissing = errors.New("manifest source missing")

// metaSchemaVersion guards against reading sidecars written by an
// incompatible quickstrap. Any mismatch is treated as a cache miss.
const metaSchemaVersion = 1

const (
	cacheFileName = "manifest.cache"
	metaFileName  = "manifest.cache.meta"
)

// meta is the sidecar describing one cached copy.
type meta struct {
	SchemaVersion int   `yaml:"schema_version"`
	CachedAt      int64 `yaml:"cached_at"`
	SourceMtime   int64 `yaml:"source_mtime"`
	TTLSeconds    int64 `yaml:"ttl_seconds"`
}

// Status reports how a Get was satisfied.
type Status string

const (
	// StatusHit means the cached copy was valid and served.
	StatusHit Status = "hit"

	// StatusMiss means no usable copy existed and the source was read.
	StatusMiss Status = "miss"

	// StatusStale means a copy existed but failed the mtime or TTL
	// check and the source was re-read.
	StatusStale Status = "stale"
)

// =============================================================================
// Cache
// =============================================================================

// Cache is a staleness-aware persistent copy of one source file.
//
// Safe for concurrent use; concurrent Load calls for the same source
// are coalesced so the source is read and parsed once.
type Cache struct {
	source string
	dir    string
	ttl    time.Duration
	logger *logging.Logger

	group singleflight.Group

	// now is injected for TTL tests.
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache for one source file.
//
// # Inputs
//
//   - source: path to the manifest file being cached
//   - dir: cache directory; created if absent. When creation fails the
//     cache falls back to a fresh temp directory so commands still run.
//   - ttl: maximum age of a served copy
//   - logger: structured logger (required)
func New(source, dir string, ttl time.Duration, logger *logging.Logger, opts ...Option) *Cache {
	if err := os.MkdirAll(dir, 0755); err != nil {
		tmp, tmpErr := os.MkdirTemp("", "quickstrap-cache-")
		if tmpErr != nil {
			// Both locations failed; leave dir as-is and let writes
			// fail individually. Reads from source still work.
			logger.Warn("cache directory unavailable, caching disabled",
				"dir", dir, "error", err)
		} else {
			logger.Warn("cache directory unavailable, using temp dir",
				"dir", dir, "temp", tmp, "error", err)
			dir = tmp
		}
	}

	c := &Cache{
		source: source,
		dir:    dir,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the directory the cache writes into. After a fallback
// this is the temp directory, not the configured one.
func (c *Cache) Dir() string {
	return c.dir
}

// Get returns the manifest bytes, serving the cached copy when valid.
//
// # Description
//
// Stats the source first: a missing source is an error regardless of
// what the cache holds. A valid copy (matching mtime, within TTL) is
// served as-is. Otherwise the source is read, the pair is rewritten
// atomically, and the fresh bytes are returned. A failed cache write
// degrades to serving the source bytes directly; it never fails Get.
//
// # Outputs
//
//   - []byte: manifest bytes
//   - Status: hit, miss, or stale
//   - error: ErrSourceMissing or a read failure
func (c *Cache) Get() ([]byte, Status, error) {
	info, err := os.Stat(c.source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, StatusMiss, fmt.Errorf("%w: %s", ErrSourceMissing, c.source)
		}
		return nil, StatusMiss, fmt.Errorf("stat source: %w", err)
	}
	mtime := info.ModTime().Unix()

	status := StatusMiss
	if m, ok := c.readMeta(); ok {
		age := c.now().Unix() - m.CachedAt
		switch {
		case m.SourceMtime != mtime:
			status = StatusStale
			c.logger.Debug("cache stale: source changed", "source", c.source)
		case age > m.TTLSeconds:
			status = StatusStale
			c.logger.Debug("cache stale: ttl expired",
				"age_seconds", age, "ttl_seconds", m.TTLSeconds)
		default:
			data, err := os.ReadFile(filepath.Join(c.dir, cacheFileName))
			if err == nil {
				c.logger.Debug("cache hit", "source", c.source)
				return data, StatusHit, nil
			}
			// Sidecar without payload; treat as miss.
			status = StatusStale
		}
	}

	data, err := os.ReadFile(c.source)
	if err != nil {
		return nil, status, fmt.Errorf("read source: %w", err)
	}

	if err := c.write(data, mtime); err != nil {
		c.logger.Warn("cache write failed, serving source directly",
			"dir", c.dir, "error", err)
	}
	return data, status, nil
}

// Invalidate removes the cached pair. Missing files are not errors.
func (c *Cache) Invalidate() error {
	var first error
	for _, name := range []string{metaFileName, cacheFileName} {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
			if first == nil {
				first = err
			}
		}
	}
	if first == nil {
		c.logger.Debug("cache invalidated", "dir", c.dir)
	}
	return first
}

// Load returns the parsed manifest, reading through the cache.
//
// Concurrent callers are coalesced with singleflight: one goroutine
// performs the Get+Parse and everyone shares the result.
func (c *Cache) Load() (*manifest.Manifest, Status, error) {
	type loaded struct {
		m      *manifest.Manifest
		status Status
	}
	v, err, _ := c.group.Do(c.source, func() (any, error) {
		data, status, err := c.Get()
		if err != nil {
			return loaded{status: status}, err
		}
		m, err := manifest.Parse(data)
		if err != nil {
			// A cached copy that no longer parses is poison; drop it
			// so the next attempt goes back to the source.
			_ = c.Invalidate()
			return loaded{status: status}, err
		}
		return loaded{m: m, status: status}, nil
	})
	l := v.(loaded)
	return l.m, l.status, err
}

// readMeta loads and sanity-checks the sidecar. Any failure (missing,
// unparsable, wrong schema) reads as "no cached copy".
func (c *Cache) readMeta() (meta, bool) {
	data, err := os.ReadFile(filepath.Join(c.dir, metaFileName))
	if err != nil {
		return meta{}, false
	}
	var m meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return meta{}, false
	}
	if m.SchemaVersion != metaSchemaVersion {
		return meta{}, false
	}
	return m, true
}

// write persists the pair atomically: payload first, then sidecar, each
// via temp-file-and-rename in the cache directory. A reader racing a
// writer sees a complete old pair or a complete new pair.
func (c *Cache) write(data []byte, mtime int64) error {
	if err := writeAtomic(filepath.Join(c.dir, cacheFileName), data); err != nil {
		return err
	}
	m := meta{
		SchemaVersion: metaSchemaVersion,
		CachedAt:      c.now().Unix(),
		SourceMtime:   mtime,
		TTLSeconds:    int64(c.ttl.Seconds()),
	}
	raw, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(c.dir, metaFileName), raw)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
