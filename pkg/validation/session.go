// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for values that
// end up embedded in storage keys.
//
// Journal keys have the form "plan:{session_id}:{seq_num}". A session ID
// containing colons or control characters would make one session's key
// range overlap another's prefix scan. Validating IDs at the journal
// boundary prevents that class of key-structure injection.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// sessionIDPattern matches valid journal session identifiers.
// Allows: letters, digits, dots, underscores, hyphens.
// Max length: 64 characters (UUIDs are 36).
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// ValidateSessionID validates a journal session identifier.
//
// Valid session IDs:
//   - 1-64 characters
//   - Letters A-Z, a-z and digits 0-9
//   - Dots (.), underscores (_), and hyphens (-) after the first character
//
// Generated UUIDs always pass. Caller-chosen IDs with colons, spaces, or
// control characters are rejected before they can reach a key prefix.
//
// Example:
//
//	if err := validation.ValidateSessionID(sessionID); err != nil {
//	    return nil, fmt.Errorf("invalid session: %w", err)
//	}
//	// Safe to embed in a journal key
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session ID: %q (must be 1-64 alphanumeric chars, dots, underscores, or hyphens)", id)
	}

	return nil
}

// SanitizeSessionID normalizes and validates a session identifier.
// Returns the trimmed ID if valid, or an error if invalid.
//
// Use this on user-provided IDs (CLI flags, request fields) where
// surrounding whitespace is likely:
//
//	session, err := validation.SanitizeSessionID(flagValue)
//	if err != nil {
//	    return err
//	}
//	// session is trimmed and validated
func SanitizeSessionID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if err := ValidateSessionID(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
