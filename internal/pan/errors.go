// Package pan implements a client for the Baidu Netdisk REST API:
// OAuth token acquisition and refresh, file listing and search, directory
// and file management, chunked upload, download, and share links.
//
// The API reports its own failures through an errno field in every JSON
// payload. The client never converts a non-zero errno into a Go error —
// payloads are returned to the caller for inspection, and Go errors are
// reserved for local preconditions and transport failures.
package pan

import (
	"errors"
	"fmt"
)

// Local precondition errors. These fire before any network call is made.
// Use errors.Is to check.
var (
	ErrNoAccessToken  = errors.New("pan: no access token set (authorize first)")
	ErrNoRefreshToken = errors.New("pan: no refresh token available")
	ErrNotRegularFile = errors.New("pan: not a regular file")
)

// Protocol errors for responses that are malformed rather than merely failed.
var (
	ErrNoUploadID     = errors.New("pan: precreate response missing uploadid")
	ErrNoDownloadLink = errors.New("pan: no download link for file")
)

// AuthError is returned when an OAuth token endpoint responds without an
// access_token. The token endpoints do not use errno — failure is keyed on
// the absence of access_token, with error/error_description carrying detail.
type AuthError struct {
	Code        string // e.g. "invalid_grant"
	Description string
}

func (e *AuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("pan: token request failed: %s: %s", e.Code, e.Description)
	}

	return fmt.Sprintf("pan: token request failed: %s", e.Code)
}
