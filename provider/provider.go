// Package provider implements the remote translation backends.
package provider

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ZaguanLabs/pagetran"
)

// Provider is an alias to the main package interface.
type Provider = pagetran.Provider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = pagetran.TranslateRequest

// BatchLimits is an alias to the main package type.
type BatchLimits = pagetran.BatchLimits

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 512

// statusKind maps an HTTP status code to a provider error kind. It returns
// "" for statuses that need a closer look at the body.
func statusKind(code int) pagetran.ErrorKind {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden, code == 456:
		return pagetran.KindAuthFailed
	case code == http.StatusTooManyRequests:
		return pagetran.KindRateLimited
	case code >= 500:
		return pagetran.KindNetwork
	default:
		return ""
	}
}

// statusError builds the ProviderError for a non-200 response. langHint is
// the body fragment that marks a rejected language on a 400.
func statusError(provider string, resp *http.Response, langHint string) *pagetran.ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))

	kind := statusKind(resp.StatusCode)
	if kind == "" {
		kind = pagetran.KindMalformedResponse
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), langHint) {
			kind = pagetran.KindUnsupportedLang
		}
	}

	err := &pagetran.ProviderError{
		Provider: provider,
		Kind:     kind,
		Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, msg),
	}
	if kind == pagetran.KindRateLimited {
		err.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return err
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func networkError(provider, msg string, cause error) *pagetran.ProviderError {
	return &pagetran.ProviderError{Provider: provider, Kind: pagetran.KindNetwork, Message: msg, Cause: cause}
}

func malformedError(provider, msg string, cause error) *pagetran.ProviderError {
	return &pagetran.ProviderError{Provider: provider, Kind: pagetran.KindMalformedResponse, Message: msg, Cause: cause}
}

// checkCount rejects a batch whose translation count differs from the input.
func checkCount(provider string, expected, got int) error {
	if expected == got {
		return nil
	}
	return malformedError(provider, "translation count differs from input", &pagetran.CountMismatchError{
		Expected: expected,
		Got:      got,
	})
}
