// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates the cache whenever the source file changes on disk.
//
// # Description
//
// Watches the source's parent directory (not the file itself) because
// generators typically rewrite via rename, which replaces the inode a
// file-level watch is bound to. Runs until ctx is cancelled. Intended
// for long-lived interactive sessions; one-shot commands rely on the
// mtime check in Get instead.
//
// # Outputs
//
//   - error: watcher setup failure; nil after a clean ctx cancellation
func (c *Cache) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.source)); err != nil {
		return err
	}
	c.logger.Debug("watching manifest source", "source", c.source)

	target := filepath.Clean(c.source)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			c.logger.Info("manifest source changed, invalidating cache",
				"source", c.source, "op", event.Op.String())
			if err := c.Invalidate(); err != nil {
				c.logger.Warn("invalidate after change failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watch error", "error", err)
		}
	}
}
