// Package errs defines the pipeline error taxonomy. Transient errors are
// retried inside the responsible client; everything else propagates to the
// orchestrator, which marks the job failed or partial.
package errs

import (
	"errors"
	"fmt"
)

// FetchError reports a failed video download. Not retried automatically.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError reports malformed or unsupported source media. Fatal for
// the job without a re-fetch.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TransientServiceError reports a service-side condition (rate limit,
// timeout, 5xx) that is worth retrying with backoff.
type TransientServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *TransientServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s service: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s service: %v", e.Service, e.Err)
}

func (e *TransientServiceError) Unwrap() error { return e.Err }

// AuthError reports rejected credentials. Never retried.
type AuthError struct {
	Service string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s service rejected credentials", e.Service)
}

// UnsupportedAudioError reports audio the transcription service cannot
// process. Fatal.
type UnsupportedAudioError struct {
	Path   string
	Reason string
}

func (e *UnsupportedAudioError) Error() string {
	return fmt.Sprintf("unsupported audio %s: %s", e.Path, e.Reason)
}

// AssemblyError reports a timing invariant violation in the entries handed
// to the assembler. Indicates an upstream contract breach.
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string {
	return "assemble captions: " + e.Reason
}

// CacheError reports a failed artifact cache operation.
type CacheError struct {
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Path, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried by the calling client.
func IsTransient(err error) bool {
	var t *TransientServiceError
	return errors.As(err, &t)
}

// Reason maps an error to the human-readable failure reason shown on the
// playback page.
func Reason(err error) string {
	var (
		fetchErr *FetchError
		extErr   *ExtractionError
		svcErr   *TransientServiceError
		authErr  *AuthError
		audioErr *UnsupportedAudioError
		asmErr   *AssemblyError
		cacheErr *CacheError
	)
	switch {
	case errors.As(err, &fetchErr):
		return "video unavailable"
	case errors.As(err, &extErr):
		return "audio extraction failed"
	case errors.As(err, &authErr):
		return "service credentials rejected"
	case errors.As(err, &audioErr):
		return "audio not supported by transcription service"
	case errors.As(err, &svcErr):
		if svcErr.Service == "translation" {
			return "translation service unreachable"
		}
		return "transcription service unreachable"
	case errors.As(err, &asmErr):
		return "caption assembly failed"
	case errors.As(err, &cacheErr):
		return "local cache failure"
	case errors.Is(err, nil):
		return ""
	default:
		return "internal error"
	}
}
