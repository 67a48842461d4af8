// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for scripts and status bars.

package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/sessionguard/internal/session"
)

// JSONResponse is the envelope every --json command prints.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// OutputJSON runs handler and, in JSON mode, prints its result or error in
// the envelope. The handler's error is returned either way.
func OutputJSON(w io.Writer, jsonMode bool, command string, handler func() (any, error)) error {
	data, err := handler()
	if !jsonMode {
		return err
	}
	if err != nil {
		_ = NewJSONErrorResponse(command, err).Print(w)
		return err
	}
	return NewJSONResponse(command, data).Print(w)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// StatusData is the payload of `status --json`.
type StatusData struct {
	State            string     `json:"state"`
	RemainingSeconds int64      `json:"remaining_seconds"`
	Remaining        string     `json:"remaining"`
	Expiry           *time.Time `json:"expiry"`
	Reason           string     `json:"reason,omitempty"`
	Backend          string     `json:"backend"`
	Refresh          bool       `json:"refresh_configured"`
	RetryAttempts    int        `json:"retry_attempts"`
	FailedOperation  string     `json:"failed_operation,omitempty"`

	state session.State
}

// RetryData is the payload of `retry show --json`.
type RetryData struct {
	Attempts        int    `json:"attempts"`
	FailedOperation string `json:"failed_operation,omitempty"`
}
