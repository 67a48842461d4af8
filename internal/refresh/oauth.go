// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package refresh

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout bounds a single refresh round trip.
	DefaultTimeout = 15 * time.Second
)

var (
	// ErrMissingTokenURL is returned by NewOAuth without a token endpoint.
	ErrMissingTokenURL = errors.New("refresh: token URL is required")

	// ErrMissingCredentialsPath is returned by NewOAuth without a
	// credentials file.
	ErrMissingCredentialsPath = errors.New("refresh: credentials path is required")
)

// OAuth error codes that mean the refresh token is no longer honoured.
var rejectedCodes = map[string]bool{
	"invalid_grant":       true,
	"invalid_token":       true,
	"unauthorized_client": true,
}

// SECURITY: TLS verification required, TLS 1.2 minimum
var defaultHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Options configures an OAuth refresher.
type Options struct {
	TokenURL        string
	ClientID        string
	ClientSecret    string
	Scopes          []string
	CredentialsPath string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Logger          zerolog.Logger
}

// OAuth renews the session with the refresh_token grant.
//
// A response with an OAuth error such as invalid_grant is a rejection: the
// authority has answered and the session cannot continue. Transport
// failures and server errors are returned as errors.
type OAuth struct {
	conf    *oauth2.Config
	path    string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger

	mu        sync.Mutex
	issued    time.Time
	hasIssued bool
}

// NewOAuth creates a refresher from opts.
func NewOAuth(opts Options) (*OAuth, error) {
	if opts.TokenURL == "" {
		return nil, ErrMissingTokenURL
	}
	if opts.CredentialsPath == "" {
		return nil, ErrMissingCredentialsPath
	}

	authStyle := oauth2.AuthStyleInParams
	if opts.ClientSecret != "" {
		authStyle = oauth2.AuthStyleInHeader
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = defaultHTTPClient
	}

	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Scopes:       opts.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  opts.TokenURL,
				AuthStyle: authStyle,
			},
		},
		path:    opts.CredentialsPath,
		timeout: timeout,
		client:  client,
		log:     opts.Logger.With().Str("component", "refresh").Logger(),
	}, nil
}

// Refresh exchanges the stored refresh token for a new token set and saves
// it. Missing credentials count as a rejection.
func (o *OAuth) Refresh(ctx context.Context) (bool, error) {
	o.setIssued(time.Time{}, false)

	creds, err := LoadCredentials(o.path)
	if errors.Is(err, ErrNoCredentials) {
		o.log.Warn().Str("path", o.path).Msg("no stored credentials, cannot renew")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if creds.RefreshToken == "" {
		o.log.Warn().Err(ErrNoRefreshToken).Msg("cannot renew")
		return false, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	reqCtx = context.WithValue(reqCtx, oauth2.HTTPClient, o.client)

	token, err := o.conf.TokenSource(reqCtx, &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	if err != nil {
		if code, ok := rejection(err); ok {
			o.log.Warn().Str("error_code", code).Msg("refresh token rejected")
			return false, nil
		}
		return false, fmt.Errorf("token refresh failed: %w", err)
	}

	expiry := o.tokenExpiry(token)
	o.setIssued(expiry, !expiry.IsZero())

	updated := &Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresAt:    expiry,
		ClientID:     o.conf.ClientID,
	}
	if updated.RefreshToken == "" {
		updated.RefreshToken = creds.RefreshToken
	}
	if err := SaveCredentials(o.path, updated); err != nil {
		// The authority already issued the tokens. Keep the session and
		// let the next renewal surface a persistent problem.
		o.log.Error().Err(err).Msg("failed to save refreshed credentials")
	}

	o.log.Info().
		Time("expires_at", expiry).
		Bool("rotated", token.RefreshToken != "" && token.RefreshToken != creds.RefreshToken).
		Msg("token refreshed")
	return true, nil
}

// IssuedExpiry returns the expiry of the token obtained by the last
// successful Refresh.
func (o *OAuth) IssuedExpiry() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.issued, o.hasIssued
}

func (o *OAuth) setIssued(t time.Time, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.issued, o.hasIssued = t, ok
}

// tokenExpiry returns the earlier of the endpoint's expires_in and the
// access token's exp claim when the token is a JWT. The signature is not
// checked; only the authority validates tokens.
func (o *OAuth) tokenExpiry(token *oauth2.Token) time.Time {
	expiry := token.Expiry

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token.AccessToken, claims); err != nil {
		o.log.Debug().Err(err).Msg("access token is not a JWT")
		return expiry
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		if expiry.IsZero() || exp.Before(expiry) {
			expiry = exp
		}
	}
	return expiry
}

// rejection reports whether err is the authority refusing the refresh
// token, with the OAuth error code when one was sent.
func rejection(err error) (string, bool) {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return "", false
	}
	if rejectedCodes[re.ErrorCode] {
		return re.ErrorCode, true
	}
	if re.Response != nil {
		switch re.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return re.ErrorCode, true
		}
	}
	return re.ErrorCode, false
}
