// Package coreerr defines the orchestrator's error taxonomy: a closed set of
// classification codes carried by every error an indexer adapter, download
// client, or metadata resolver can return, so callers can branch on cause
// (retry, backoff, surface to the user) without string matching.
package coreerr

import (
	"errors"
	"fmt"
)

// Code classifies the cause of a failure across indexer, grab, and metadata
// operations.
type Code string

const (
	// CloudflareProtected indicates the origin responded with a challenge
	// page instead of results.
	CloudflareProtected Code = "cloudflare_protected"
	// Timeout indicates the request exceeded its deadline.
	Timeout Code = "timeout"
	// RateLimited indicates the origin or the local governor rejected the
	// request due to rate limiting (HTTP 429 or local bucket exhaustion).
	RateLimited Code = "rate_limited"
	// Unauthorized indicates invalid or expired indexer credentials.
	Unauthorized Code = "unauthorized"
	// DuplicateDownload indicates the release was already grabbed and is
	// being rejected by the grab dispatcher's grab-history check.
	DuplicateDownload Code = "duplicate_download"
	// CategoryMismatch indicates a release's category does not satisfy the
	// requested search criteria.
	CategoryMismatch Code = "category_mismatch"
	// UpgradeRejected indicates a release failed to clear the existing
	// grabbed release's quality/custom-format threshold.
	UpgradeRejected Code = "upgrade_rejected"
	// ResolutionFailed indicates a magnet/torrent/NZB URL could not be
	// resolved to fetchable content.
	ResolutionFailed Code = "resolution_failed"
	// Unknown is the fallback for errors with no specific classification.
	Unknown Code = "unknown"
)

// Error is a classified error carrying the indexer/component that produced
// it alongside the underlying cause.
type Error struct {
	Code    Code
	Source  string // indexer ID, download client ID, or component name
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Source != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Source, e.Code, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Code, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Code, allowing
// errors.Is(err, coreerr.New(coreerr.Timeout, "", "")) style checks when
// combined with HasCode.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// New constructs a classified Error.
func New(code Code, source, message string) *Error {
	return &Error{Code: code, Source: source, Message: message}
}

// Wrap constructs a classified Error around an existing cause.
func Wrap(code Code, source, message string, cause error) *Error {
	return &Error{Code: code, Source: source, Message: message, Cause: cause}
}

// CodeOf extracts the Code from err if it is (or wraps) a *Error, otherwise
// returns Unknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// HasCode reports whether err is (or wraps) a *Error carrying code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether a failure of this code is worth retrying
// against a different indexer, after backoff, rather than treated as final.
func IsRetryable(code Code) bool {
	switch code {
	case CloudflareProtected, Timeout, RateLimited, ResolutionFailed:
		return true
	default:
		return false
	}
}
