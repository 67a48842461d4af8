// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrNotWatchable is returned by Watch for stores that have no backing file.
var ErrNotWatchable = errors.New("store: backend has no file to watch")

// Pather is implemented by file-backed stores.
type Pather interface {
	Path() string
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// Watcher reports writes to a file-backed store made by any process.
// Bursts of events are coalesced into a single pending notification.
type Watcher struct {
	watcher *fsnotify.Watcher
	names   map[string]struct{}
	changes chan struct{}
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Watch starts watching the file behind s.
//
// The parent directory is watched rather than the file itself because
// atomic writes replace the file with a renamed temp file. SQLite sidecar
// files (-wal, -journal) count as writes to the database.
func Watch(s Store, log zerolog.Logger) (*Watcher, error) {
	p, ok := s.(Pather)
	if !ok || p.Path() == "" {
		return nil, ErrNotWatchable
	}

	abs, err := filepath.Abs(p.Path())
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	base := filepath.Base(abs)
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher: fw,
		names: map[string]struct{}{
			base:              {},
			base + "-wal":     {},
			base + "-journal": {},
		},
		changes: make(chan struct{}, 1),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Changes delivers one value per coalesced burst of writes.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops watching and releases the fsnotify handle.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			select {
			case w.changes <- struct{}{}:
			default:
				// A notification is already pending
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("store watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".tmp-") {
		return false
	}
	_, ok := w.names[name]
	return ok
}
