// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"strings"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// CommandError wraps a command failure with the exit code it maps to.
//
// # Description
//
// Commands return a CommandError for every failure they detect themselves;
// errors cobra produces while parsing arguments are not wrapped and exit
// with exitUsage.
//
// # Example
//
//	err := NewCommandError("validate hazard_checks", exitFailure, "validation failed", mismatch)
//	fmt.Println(err.Error()) // "validate hazard_checks: validation failed: check mismatch at frame ..."
//
//	var cmdErr *CommandError
//	if errors.As(err, &cmdErr) {
//	    os.Exit(cmdErr.ExitCode)
//	}
type CommandError struct {
	// Command is the command path that failed.
	Command string

	// ExitCode is the process exit code.
	ExitCode int

	// Message describes the failed step.
	Message string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error returns a formatted error message.
func (e *CommandError) Error() string {
	parts := []string{e.Command}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Wrapped != nil {
		parts = append(parts, e.Wrapped.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

// NewCommandError creates a CommandError.
//
// # Inputs
//
//   - cmd: The command path (e.g., "validate dt_ranges")
//   - exitCode: Process exit code
//   - message: The failed step (will be trimmed)
//   - wrapped: Underlying error (may be nil)
func NewCommandError(cmd string, exitCode int, message string, wrapped error) *CommandError {
	return &CommandError{
		Command:  cmd,
		ExitCode: exitCode,
		Message:  strings.TrimSpace(message),
		Wrapped:  wrapped,
	}
}

// WrapCommandError wraps err into a CommandError if it isn't already one.
func WrapCommandError(err error, cmd string, exitCode int) *CommandError {
	if err == nil {
		return nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr
	}
	return NewCommandError(cmd, exitCode, "", err)
}

// exitCodeFor maps an Execute error to a process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return exitUsage
}

// usageError reports bad positional arguments.
func usageError(cmd, format string, args ...any) *CommandError {
	return NewCommandError(cmd, exitUsage, fmt.Sprintf(format, args...), nil)
}
