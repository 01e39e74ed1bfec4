// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quickstrap/quickstrap/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
}

func writeSource(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestCache_Get(t *testing.T) {
	t.Run("miss then hit", func(t *testing.T) {
		src := writeSource(t, t.TempDir(), "version: \"1\"\n")
		c := New(src, t.TempDir(), time.Hour, quietLogger())

		data, status, err := c.Get()
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if status != StatusMiss {
			t.Errorf("first status = %v, want miss", status)
		}
		if string(data) != "version: \"1\"\n" {
			t.Errorf("data = %q", data)
		}

		_, status, err = c.Get()
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if status != StatusHit {
			t.Errorf("second status = %v, want hit", status)
		}
	})

	t.Run("source change invalidates", func(t *testing.T) {
		dir := t.TempDir()
		src := writeSource(t, dir, "version: \"1\"\n")
		c := New(src, t.TempDir(), time.Hour, quietLogger())

		if _, _, err := c.Get(); err != nil {
			t.Fatalf("Get: %v", err)
		}

		// Rewrite with a future mtime so the change is visible even on
		// coarse-grained filesystems.
		writeSource(t, dir, "version: \"2\"\n")
		future := time.Now().Add(2 * time.Second)
		if err := os.Chtimes(src, future, future); err != nil {
			t.Fatalf("Chtimes: %v", err)
		}

		data, status, err := c.Get()
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if status != StatusStale {
			t.Errorf("status = %v, want stale", status)
		}
		if string(data) != "version: \"2\"\n" {
			t.Errorf("data = %q, want updated content", data)
		}
	})

	t.Run("ttl expiry with unchanged mtime", func(t *testing.T) {
		src := writeSource(t, t.TempDir(), "version: \"1\"\n")

		now := time.Now()
		clock := now
		c := New(src, t.TempDir(), time.Hour, quietLogger(),
			WithClock(func() time.Time { return clock }))

		if _, _, err := c.Get(); err != nil {
			t.Fatalf("Get: %v", err)
		}

		clock = now.Add(2 * time.Hour)
		_, status, err := c.Get()
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if status != StatusStale {
			t.Errorf("status = %v, want stale after ttl", status)
		}
	})

	t.Run("missing source is an error even with a cached copy", func(t *testing.T) {
		dir := t.TempDir()
		src := writeSource(t, dir, "version: \"1\"\n")
		c := New(src, t.TempDir(), time.Hour, quietLogger())

		if _, _, err := c.Get(); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if err := os.Remove(src); err != nil {
			t.Fatalf("Remove: %v", err)
		}

		_, _, err := c.Get()
		if !errors.Is(err, ErrSourceMissing) {
			t.Errorf("err = %v, want ErrSourceMissing", err)
		}
	})

	t.Run("no partial files after write", func(t *testing.T) {
		src := writeSource(t, t.TempDir(), "version: \"1\"\n")
		cacheDir := t.TempDir()
		c := New(src, cacheDir, time.Hour, quietLogger())

		if _, _, err := c.Get(); err != nil {
			t.Fatalf("Get: %v", err)
		}

		entries, err := os.ReadDir(cacheDir)
		if err != nil {
			t.Fatalf("ReadDir: %v", err)
		}
		names := map[string]bool{}
		for _, e := range entries {
			names[e.Name()] = true
		}
		if len(names) != 2 || !names[cacheFileName] || !names[metaFileName] {
			t.Errorf("cache dir contents = %v, want exactly the pair", names)
		}
	})
}

func TestCache_Invalidate(t *testing.T) {
	src := writeSource(t, t.TempDir(), "version: \"1\"\n")
	cacheDir := t.TempDir()
	c := New(src, cacheDir, time.Hour, quietLogger())

	if _, _, err := c.Get(); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := c.Invalidate(); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, cacheFileName)); !os.IsNotExist(err) {
		t.Error("payload should be removed")
	}

	// Idempotent.
	if err := c.Invalidate(); err != nil {
		t.Errorf("second Invalidate: %v", err)
	}

	_, status, err := c.Get()
	if err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if status != StatusMiss {
		t.Errorf("status = %v, want miss", status)
	}
}

func TestCache_Load(t *testing.T) {
	t.Run("parses through cache", func(t *testing.T) {
		src := writeSource(t, t.TempDir(), "version: \"1\"\nscripts:\n  git: {file: setup_git.sh}\n")
		c := New(src, t.TempDir(), time.Hour, quietLogger())

		m, status, err := c.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if status != StatusMiss {
			t.Errorf("status = %v, want miss", status)
		}
		if _, ok := m.Scripts["git"]; !ok {
			t.Error("parsed manifest missing git script")
		}
	})

	t.Run("unparsable source drops the cached copy", func(t *testing.T) {
		src := writeSource(t, t.TempDir(), ":\nnot yaml: [")
		cacheDir := t.TempDir()
		c := New(src, cacheDir, time.Hour, quietLogger())

		if _, _, err := c.Load(); err == nil {
			t.Fatal("Load should fail on unparsable source")
		}
		if _, err := os.Stat(filepath.Join(cacheDir, cacheFileName)); !os.IsNotExist(err) {
			t.Error("poison copy should be invalidated")
		}
	})

	t.Run("concurrent loads coalesce", func(t *testing.T) {
		src := writeSource(t, t.TempDir(), "version: \"1\"\n")
		c := New(src, t.TempDir(), time.Hour, quietLogger())

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, errs[i] = c.Load()
			}(i)
		}
		wg.Wait()
		for i, err := range errs {
			if err != nil {
				t.Errorf("Load[%d]: %v", i, err)
			}
		}
	})
}

func TestNew_FallbackDir(t *testing.T) {
	src := writeSource(t, t.TempDir(), "version: \"1\"\n")

	// A file where the cache dir should be forces MkdirAll to fail.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, nil, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := New(src, filepath.Join(blocked, "cache"), time.Hour, quietLogger())
	if c.Dir() == filepath.Join(blocked, "cache") {
		t.Error("Dir() should point at the fallback temp dir")
	}
	defer os.RemoveAll(c.Dir())

	if _, _, err := c.Get(); err != nil {
		t.Fatalf("Get with fallback dir: %v", err)
	}
	if _, _, err := c.Get(); err != nil {
		t.Fatalf("second Get: %v", err)
	}
}
