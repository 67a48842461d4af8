// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Command errors and exit codes.
//
// Commands always return errors; main prints them once and exits with
// ExitCode(err).

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	// ExitAuthError means the session is over, either expired or refused
	// renewal by the token endpoint.
	ExitAuthError = 4
	// ExitNetworkError means the token endpoint could not be reached or
	// failed; retrying later may succeed.
	ExitNetworkError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a command failure with context.
type CommandError struct {
	Command string
	Action  string
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	var cmdErr *CommandError
	var ttyErr *TTYRequiredError

	switch {
	case err == nil:
		return ExitSuccess
	case config.IsValidationError(err):
		return ExitConfigError
	case errors.As(err, &cmdErr) && cmdErr.Command == "config",
		errors.Is(err, session.ErrNoRefresher):
		return ExitConfigError
	case errors.As(err, &ttyErr):
		return ExitUsageError
	case errors.Is(err, session.ErrRenewalFailed):
		return ExitNetworkError
	case errors.Is(err, session.ErrRenewalRejected),
		errors.Is(err, session.ErrExpired):
		return ExitAuthError
	default:
		return ExitGeneralError
	}
}
