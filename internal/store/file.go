// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/jeranaias/sessionguard/internal/util"
)

// File is a Store backed by a single JSON object on disk.
//
// Every Get re-reads the file so that values written by other processes of
// the same user are observed on the next read. Writes replace the file
// atomically, so readers see either the old or the new document.
//
// Each operation holds an advisory lock on path+".lock": shared for Get,
// exclusive for the read-modify-write of Set and Remove, so concurrent
// processes never drop each other's keys.
type File struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFile returns a file store at path. The file is created on first write.
func NewFile(path string) *File {
	return &File{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Get returns the value for key.
func (f *File) Get(key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	unlock, err := f.acquire(false)
	if err != nil {
		return "", false, err
	}
	defer unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set stores value under key.
func (f *File) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	unlock, err := f.acquire(true)
	if err != nil {
		return err
	}
	defer unlock()

	values, err := f.load()
	if err != nil {
		// A corrupt document is replaced rather than blocking every write.
		if !errors.Is(err, ErrCorrupt) {
			return err
		}
		values = make(map[string]string)
	}
	values[key] = value
	return f.save(values)
}

// Remove deletes key.
func (f *File) Remove(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	unlock, err := f.acquire(true)
	if err != nil {
		return err
	}
	defer unlock()

	values, err := f.load()
	if err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return err
		}
		values = make(map[string]string)
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

// acquire takes the in-process mutex and then the file lock. The mutex is
// required because a Flock handle treats a second Lock from the same
// handle as already held.
func (f *File) acquire(exclusive bool) (func(), error) {
	f.mu.Lock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	lock := f.lock.RLock
	if exclusive {
		lock = f.lock.Lock
	}
	if err := lock(); err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("failed to lock store file: %w", err)
	}
	return func() {
		_ = f.lock.Unlock()
		f.mu.Unlock()
	}, nil
}

func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]string), nil
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, err)
	}
	return values, nil
}

func (f *File) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(f.path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return nil
}
