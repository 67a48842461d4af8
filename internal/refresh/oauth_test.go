// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package refresh

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCreds(t *testing.T, refreshToken string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, SaveCredentials(path, &Credentials{
		AccessToken:  "old-access",
		RefreshToken: refreshToken,
		ClientID:     "sessionguard",
	}))
	return path
}

func newRefresher(t *testing.T, srv *httptest.Server, path string) *OAuth {
	t.Helper()
	r, err := NewOAuth(Options{
		TokenURL:        srv.URL + "/oauth/token",
		ClientID:        "sessionguard",
		CredentialsPath: path,
		Timeout:         5 * time.Second,
		HTTPClient:      srv.Client(),
		Logger:          zerolog.Nop(),
	})
	require.NoError(t, err)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func signedAccessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

// =============================================================================
// CONSTRUCTION TESTS
// =============================================================================

func TestNewOAuth_Validation(t *testing.T) {
	_, err := NewOAuth(Options{CredentialsPath: "x"})
	assert.ErrorIs(t, err, ErrMissingTokenURL)

	_, err = NewOAuth(Options{TokenURL: "https://auth.example.com/token"})
	assert.ErrorIs(t, err, ErrMissingCredentialsPath)

	r, err := NewOAuth(Options{TokenURL: "https://auth.example.com/token", CredentialsPath: "x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, r.timeout)
}

// =============================================================================
// REFRESH TESTS
// =============================================================================

func TestRefresh_Success(t *testing.T) {
	jwtExpiry := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	access := signedAccessToken(t, jwtExpiry)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "sessionguard", r.PostForm.Get("client_id"))

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  access,
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "rt-2",
		})
	}))
	defer srv.Close()

	path := writeCreds(t, "rt-1")
	r := newRefresher(t, srv, path)

	ok, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	issued, known := r.IssuedExpiry()
	require.True(t, known)
	assert.Equal(t, jwtExpiry.Unix(), issued.Unix(), "exp claim is earlier than expires_in")

	saved, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, access, saved.AccessToken)
	assert.Equal(t, "rt-2", saved.RefreshToken)
	assert.Equal(t, "Bearer", saved.TokenType)
}

func TestRefresh_OpaqueTokenKeepsRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "opaque-access",
			"token_type":   "Bearer",
			"expires_in":   600,
		})
	}))
	defer srv.Close()

	path := writeCreds(t, "rt-1")
	r := newRefresher(t, srv, path)

	before := time.Now()
	ok, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	issued, known := r.IssuedExpiry()
	require.True(t, known)
	assert.WithinDuration(t, before.Add(10*time.Minute), issued, 5*time.Second)

	saved, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", saved.RefreshToken)
}

func TestRefresh_InvalidGrantIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "refresh token expired",
		})
	}))
	defer srv.Close()

	r := newRefresher(t, srv, writeCreds(t, "rt-1"))

	ok, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, known := r.IssuedExpiry()
	assert.False(t, known)
}

func TestRefresh_ServerErrorIsError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := newRefresher(t, srv, writeCreds(t, "rt-1"))

	ok, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRefresh_UnreachableIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	r, err := NewOAuth(Options{
		TokenURL:        srv.URL + "/oauth/token",
		CredentialsPath: writeCreds(t, "rt-1"),
		Timeout:         time.Second,
	})
	require.NoError(t, err)

	ok, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
}

func TestRefresh_MissingCredentialsIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("token endpoint must not be called without credentials")
	}))
	defer srv.Close()

	r := newRefresher(t, srv, filepath.Join(t.TempDir(), "missing.json"))
	ok, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	r = newRefresher(t, srv, writeCreds(t, ""))
	ok, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// CREDENTIAL FILE TESTS
// =============================================================================

func TestCredentials_RoundTripAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	_, err := LoadCredentials(path)
	assert.ErrorIs(t, err, ErrNoCredentials)

	require.NoError(t, SaveCredentials(path, &Credentials{AccessToken: "a", RefreshToken: "r"}))
	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "r", creds.RefreshToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, RemoveCredentials(path))
	require.NoError(t, RemoveCredentials(path))
	_, err = LoadCredentials(path)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestCredentials_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCredentials)
}
