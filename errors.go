package pagetran

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindRateLimited       ErrorKind = "rate_limited"
	KindAuthFailed        ErrorKind = "auth_failed"
	KindNetwork           ErrorKind = "network"
	KindUnsupportedLang   ErrorKind = "unsupported_lang"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// TranslationError reports that a document could not be translated by any
// provider in the fallback chain.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates a remote provider failure.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	Message    string
	Cause      error
	RetryAfter time.Duration // Server-provided delay hint, if any
}

func (e *ProviderError) Error() string {
	prefix := "provider error"
	if e.Provider != "" {
		prefix = fmt.Sprintf("%s error", e.Provider)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", prefix, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", prefix, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure may clear on a later attempt.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindNetwork, KindMalformedResponse:
		return true
	default:
		return false
	}
}

// ParseError indicates that an input document could not be turned into a tree.
type ParseError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Path != "" {
		msg = fmt.Sprintf("parse error in %s", e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", msg, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// RewriteError indicates a mismatch between a document and its spans at rewrite time.
type RewriteError struct {
	Path    string
	Span    int // Index of the offending span, -1 if not span-specific
	Message string
}

func (e *RewriteError) Error() string {
	if e.Span >= 0 {
		return fmt.Sprintf("rewrite error in %s (span %d): %s", e.Path, e.Span, e.Message)
	}
	return fmt.Sprintf("rewrite error in %s: %s", e.Path, e.Message)
}

// ConfigError indicates an unusable global configuration. It aborts a run
// before any file is processed.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates a provider returned a different number of translations than expected.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}

// ErrorKindOf returns the provider error kind wrapped in err, or "".
func ErrorKindOf(err error) ErrorKind {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Kind
	}
	return ""
}

// FailureReason renders a short, single-line reason for a failed file.
func FailureReason(err error) string {
	var (
		parseErr   *ParseError
		rewriteErr *RewriteError
		transErr   *TranslationError
		provErr    *ProviderError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &parseErr):
		return "parse error: " + parseErr.Message
	case errors.As(err, &rewriteErr):
		return "rewrite error: " + rewriteErr.Message
	case errors.As(err, &transErr) && errors.As(err, &provErr):
		return fmt.Sprintf("translation failed: %s %s", provErr.Provider, provErr.Kind)
	case errors.As(err, &provErr):
		return fmt.Sprintf("%s %s", provErr.Provider, provErr.Kind)
	default:
		return err.Error()
	}
}
