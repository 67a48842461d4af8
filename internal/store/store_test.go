// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testContract exercises the behaviour every backend must share.
func testContract(t *testing.T, s Store) {
	t.Helper()

	t.Run("absent key", func(t *testing.T) {
		v, ok, err := s.Get("missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set("k", "v1"))
		v, ok, err := s.Get("k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v1", v)

		require.NoError(t, s.Set("k", "v2"))
		v, _, err = s.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "v2", v)
	})

	t.Run("empty value is present", func(t *testing.T) {
		require.NoError(t, s.Set("empty", ""))
		_, ok, err := s.Get("empty")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.Set("gone", "x"))
		require.NoError(t, s.Remove("gone"))
		_, ok, err := s.Get("gone")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Remove("gone"), "removing an absent key is not an error")
	})

	t.Run("empty key", func(t *testing.T) {
		_, _, err := s.Get("")
		assert.ErrorIs(t, err, ErrEmptyKey)
		assert.ErrorIs(t, s.Set("", "x"), ErrEmptyKey)
		assert.ErrorIs(t, s.Remove(""), ErrEmptyKey)
	})

	t.Run("expiry codec", func(t *testing.T) {
		at := time.Date(2025, 3, 1, 9, 30, 15, 500, time.UTC)
		require.NoError(t, WriteExpiry(s, at))

		got, err := ReadExpiry(s)
		require.NoError(t, err)
		assert.Equal(t, at.Unix(), got.Unix())

		raw, _, err := s.Get(KeySessionExpiry)
		require.NoError(t, err)
		assert.Equal(t, "1740821415", raw)

		require.NoError(t, ClearExpiry(s))
		_, err = ReadExpiry(s)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					assert.NoError(t, s.Set("shared", "x"))
					_, _, err := s.Get("shared")
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()
	})
}

// =============================================================================
// BACKEND TESTS
// =============================================================================

func TestMemory_Contract(t *testing.T) {
	testContract(t, NewMemory())
}

func TestFile_Contract(t *testing.T) {
	testContract(t, NewFile(filepath.Join(t.TempDir(), "session.json")))
}

func TestSQLite_Contract(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer s.Close()

	testContract(t, s)
}

func TestRedis_Contract(t *testing.T) {
	url := os.Getenv("SESSIONGUARD_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SESSIONGUARD_TEST_REDIS_URL not set")
	}

	prefix := "sessionguard-test:" + t.Name() + ":"
	s, err := OpenRedis(context.Background(), url, prefix)
	require.NoError(t, err)
	defer s.Close()

	testContract(t, s)
}

func TestOpenRedis_Errors(t *testing.T) {
	_, err := OpenRedis(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrEmptyRedisURL)

	_, err = OpenRedis(context.Background(), "not a url", "")
	assert.ErrorIs(t, err, ErrRedisURL)
}

// =============================================================================
// EXPIRY CODEC TESTS
// =============================================================================

func TestReadExpiry_Corrupt(t *testing.T) {
	tests := []string{"", "abc", "12.5", "-5", "0"}

	for _, raw := range tests {
		s := NewMemory()
		require.NoError(t, s.Set(KeySessionExpiry, raw))
		_, err := ReadExpiry(s)
		assert.ErrorIs(t, err, ErrCorrupt, "raw=%q", raw)
	}
}

func TestReadExpiry_TrimsWhitespace(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Set(KeySessionExpiry, " 1740821415\n"))

	got, err := ReadExpiry(s)
	require.NoError(t, err)
	assert.Equal(t, int64(1740821415), got.Unix())
}

func TestWriteExpiry_RejectsEpoch(t *testing.T) {
	assert.ErrorIs(t, WriteExpiry(NewMemory(), time.Unix(0, 0)), ErrCorrupt)
}

// =============================================================================
// FILE BACKEND TESTS
// =============================================================================

func TestFile_SharedBetweenInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	a := NewFile(path)
	b := NewFile(path)

	require.NoError(t, a.Set(KeySessionExpiry, "1740821415"))

	v, ok, err := b.Get(KeySessionExpiry)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1740821415", v)
}

func TestFile_ConcurrentHandlesKeepEveryKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	handles := []*File{NewFile(path), NewFile(path)}
	const perHandle = 50

	var wg sync.WaitGroup
	for h, f := range handles {
		wg.Add(1)
		go func(h int, f *File) {
			defer wg.Done()
			for i := 0; i < perHandle; i++ {
				assert.NoError(t, f.Set(fmt.Sprintf("h%d-k%d", h, i), "v"))
			}
		}(h, f)
	}
	wg.Wait()

	reader := NewFile(path)
	for h := range handles {
		for i := 0; i < perHandle; i++ {
			_, ok, err := reader.Get(fmt.Sprintf("h%d-k%d", h, i))
			require.NoError(t, err)
			assert.True(t, ok, "h%d-k%d was lost", h, i)
		}
	}
}

func TestFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0600))
	f := NewFile(path)

	_, _, err := f.Get(KeySessionExpiry)
	assert.ErrorIs(t, err, ErrCorrupt)

	// The corrupt document does not block writes.
	require.NoError(t, f.Set(KeySessionExpiry, "1740821415"))
	got, err := ReadExpiry(f)
	require.NoError(t, err)
	assert.Equal(t, int64(1740821415), got.Unix())
}

func TestFile_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	require.NoError(t, NewFile(path).Set("k", "v"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSQLite_ClosedAndReopened(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeySessionExpiry, "1740821415"))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, _, err = s.Get(KeySessionExpiry)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set("k", "v"), ErrClosed)

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(KeySessionExpiry)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1740821415", v)
}

// =============================================================================
// OPEN TESTS
// =============================================================================

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, Options{Path: filepath.Join(dir, "a.json")})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	s, err = Open(ctx, Options{Backend: BackendSQLite, Path: filepath.Join(dir, "a.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, Close(s))

	s, err = Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.NoError(t, Close(s))

	_, err = Open(ctx, Options{Backend: BackendFile})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)
}

// =============================================================================
// RETRY BOOKKEEPING TESTS
// =============================================================================

func TestRetries(t *testing.T) {
	s := NewMemory()
	r := NewRetries(s)

	n, err := r.Attempts()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for want := 1; want <= 3; want++ {
		n, err = r.Increment()
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	require.NoError(t, r.MarkFailed("extend"))
	op, ok, err := r.FailedOperation()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "extend", op)

	raw, _, err := s.Get(KeyRetryAttempts)
	require.NoError(t, err)
	assert.Equal(t, "3", raw)

	require.NoError(t, r.Clear())
	n, err = r.Attempts()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, ok, err = r.FailedOperation()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetries_CorruptCounter(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Set(KeyRetryAttempts, "many"))
	r := NewRetries(s)

	n, err := r.Attempts()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = r.Increment()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRetries_DoesNotTouchExpiry(t *testing.T) {
	s := NewMemory()
	require.NoError(t, WriteExpiry(s, time.Unix(1740821415, 0)))

	r := NewRetries(s)
	_, err := r.Increment()
	require.NoError(t, err)
	require.NoError(t, r.Clear())

	got, err := ReadExpiry(s)
	require.NoError(t, err)
	assert.Equal(t, int64(1740821415), got.Unix())
}
