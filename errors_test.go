package pagetran

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTranslationError(t *testing.T) {
	cause := errors.New("underlying error")
	err := &TranslationError{Message: "translation failed", Cause: cause}

	if err.Error() != "translation failed: underlying error" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}

	err2 := &TranslationError{Message: "simple error"}
	if err2.Error() != "simple error" {
		t.Errorf("unexpected error message: %s", err2.Error())
	}
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{Provider: "deepl", Kind: KindRateLimited, Message: "too many requests"}

	if err.Error() != "deepl error (rate_limited): too many requests" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	if !err.Retryable() {
		t.Error("rate limited error should be retryable")
	}
}

func TestProviderError_Retryable(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		retryable bool
	}{
		{KindRateLimited, true},
		{KindNetwork, true},
		{KindMalformedResponse, true},
		{KindAuthFailed, false},
		{KindUnsupportedLang, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := &ProviderError{Kind: tt.kind}
			if err.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", err.Retryable(), tt.retryable)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	err := &ParseError{Path: "b.html", Message: "unclosed <div>"}

	if err.Error() != "parse error in b.html: unclosed <div>" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestRewriteError(t *testing.T) {
	err := &RewriteError{Path: "a.html", Span: 3, Message: "node detached"}

	if err.Error() != "rewrite error in a.html (span 3): node detached" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Message: "no usable provider"}

	if err.Error() != "config error: no usable provider" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestCountMismatchError(t *testing.T) {
	err := &CountMismatchError{Expected: 5, Got: 3}

	expected := "translation count mismatch: expected 5, got 3"
	if err.Error() != expected {
		t.Errorf("unexpected error message: %s, want %s", err.Error(), expected)
	}
}

func TestErrorKindOf(t *testing.T) {
	wrapped := fmt.Errorf("batch 2: %w", &ProviderError{Kind: KindAuthFailed})

	if ErrorKindOf(wrapped) != KindAuthFailed {
		t.Errorf("ErrorKindOf() = %q, want %q", ErrorKindOf(wrapped), KindAuthFailed)
	}
	if ErrorKindOf(errors.New("plain")) != "" {
		t.Error("ErrorKindOf() should be empty for non-provider errors")
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"parse", &ParseError{Path: "b.html", Message: "unclosed <div>"}, "parse error: unclosed <div>"},
		{"rewrite", &RewriteError{Span: 1, Message: "node detached"}, "rewrite error: node detached"},
		{"cancelled", fmt.Errorf("batch 0: %w", context.Canceled), "cancelled"},
		{
			"exhausted chain",
			&TranslationError{Message: "all providers failed", Cause: &ProviderError{Provider: "chatgpt", Kind: KindMalformedResponse}},
			"translation failed: chatgpt malformed_response",
		},
		{"other", errors.New("disk full"), "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureReason(tt.err); got != tt.want {
				t.Errorf("FailureReason() = %q, want %q", got, tt.want)
			}
		})
	}
}
