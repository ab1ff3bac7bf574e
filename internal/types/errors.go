package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout           = errors.New("operation timed out")
	ErrListingExhausted  = errors.New("listing has no more pages")
	ErrNavigationMissing = errors.New("navigation region not found")
	ErrInvalidSource     = errors.New("invalid source")
	ErrEmptyResponse     = errors.New("empty response body")
)

// FetchError wraps errors that occur during static fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RenderError wraps failures of the headless browser: navigation, automation, or content read.
type RenderError struct {
	URL     string
	Action  string
	Err     error
	Timeout bool
}

func (e *RenderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("render %s timed out for %s: %v", e.Action, e.URL, e.Err)
	}
	return fmt.Sprintf("render %s failed for %s: %v", e.Action, e.URL, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTimeout) match timed out renders.
func (e *RenderError) Is(target error) bool {
	return e.Timeout && target == ErrTimeout
}

// StorageError wraps errors that occur in the persistence gateway.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur while cleaning listing candidates.
type PipelineError struct {
	Stage string
	Href  string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q for %s: %v", e.Stage, e.Href, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
