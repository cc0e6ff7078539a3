package pagetran

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedProvider upper-cases its input and fails the first len(failures) calls.
type scriptedProvider struct {
	name     string
	limits   BatchLimits
	failures []error
	reply    func(req TranslateRequest) []string
	delay    time.Duration

	mu       sync.Mutex
	requests []TranslateRequest
	calls    int32
}

func (p *scriptedProvider) Name() string              { return p.name }
func (p *scriptedProvider) Limits() BatchLimits       { return p.limits }
func (p *scriptedProvider) Supports(lang string) bool { return true }

func (p *scriptedProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	n := int(atomic.AddInt32(&p.calls, 1))

	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if n <= len(p.failures) {
		return nil, p.failures[n-1]
	}
	if p.reply != nil {
		return p.reply(req), nil
	}

	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		out[i] = strings.ToUpper(text)
	}
	return out, nil
}

func makeSpans(texts ...string) []*Span {
	spans := make([]*Span, len(texts))
	for i, text := range texts {
		spans[i] = &Span{Kind: SpanText, Text: text, Hash: HashText(text)}
	}
	return spans
}

func fastTranslator(opts ...BatchOption) *BatchTranslator {
	return NewBatchTranslator(append([]BatchOption{WithRetryConfig(testRetryConfig())}, opts...)...)
}

func TestSplitBatches(t *testing.T) {
	spans := makeSpans("aaaa", "bbbb", "cccc", "dddd", "eeee")
	all := []int{0, 1, 2, 3, 4}

	tests := []struct {
		name   string
		limits BatchLimits
		sizes  []int
	}{
		{"unlimited", BatchLimits{}, []int{5}},
		{"by items", BatchLimits{MaxItems: 2}, []int{2, 2, 1}},
		{"by chars", BatchLimits{MaxChars: 10}, []int{2, 2, 1}},
		{"items and chars", BatchLimits{MaxItems: 3, MaxChars: 8}, []int{2, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := SplitBatches(spans, all, tt.limits)
			if len(batches) != len(tt.sizes) {
				t.Fatalf("Expected %d batches, got %d", len(tt.sizes), len(batches))
			}
			next := 0
			for i, b := range batches {
				if b.Index != i {
					t.Errorf("Batch %d has index %d", i, b.Index)
				}
				if len(b.Spans) != tt.sizes[i] {
					t.Errorf("Batch %d: expected %d spans, got %d", i, tt.sizes[i], len(b.Spans))
				}
				for _, si := range b.Spans {
					if si != next {
						t.Errorf("Spans out of order: got %d, want %d", si, next)
					}
					next++
				}
			}
		})
	}
}

func TestSplitBatches_OversizedSpanAlone(t *testing.T) {
	spans := makeSpans("ab", strings.Repeat("x", 50), "cd")
	batches := SplitBatches(spans, []int{0, 1, 2}, BatchLimits{MaxChars: 10})

	if len(batches) != 3 {
		t.Fatalf("Expected 3 batches, got %d", len(batches))
	}
	if len(batches[1].Spans) != 1 || batches[1].Spans[0] != 1 {
		t.Errorf("Expected oversized span alone, got %v", batches[1].Spans)
	}
}

func TestSplitBatches_CountsCharacters(t *testing.T) {
	// Four runes, twelve bytes
	spans := makeSpans("日本語!", "日本語!")
	batches := SplitBatches(spans, []int{0, 1}, BatchLimits{MaxChars: 8})

	if len(batches) != 1 {
		t.Errorf("Expected 1 batch, got %d", len(batches))
	}
}

func TestBatchTranslator_PreservesOrderAcrossBatches(t *testing.T) {
	texts := []string{"one", "two", "three", "four", "five", "six", "seven"}
	p := &scriptedProvider{name: "fake", limits: BatchLimits{MaxItems: 2}}

	out, err := fastTranslator(WithConcurrency(4)).TranslateDocument(context.Background(), makeSpans(texts...), "fr", p)
	if err != nil {
		t.Fatalf("TranslateDocument failed: %v", err)
	}

	for i, text := range texts {
		if out[i] != strings.ToUpper(text) {
			t.Errorf("out[%d] = %q, want %q", i, out[i], strings.ToUpper(text))
		}
	}
	if p.calls != 4 {
		t.Errorf("Expected 4 calls, got %d", p.calls)
	}
}

func TestBatchTranslator_NoDeduplication(t *testing.T) {
	p := &scriptedProvider{name: "fake"}

	_, err := fastTranslator().TranslateDocument(context.Background(), makeSpans("Hello", "Hello", "Hello"), "fr", p)
	if err != nil {
		t.Fatalf("TranslateDocument failed: %v", err)
	}

	if got := len(p.requests[0].Texts); got != 3 {
		t.Errorf("Expected 3 submitted strings, got %d", got)
	}
}

func TestBatchTranslator_PassesRequestFields(t *testing.T) {
	p := &scriptedProvider{name: "fake"}
	spans := makeSpans("Save")
	spans[0].Context = "button"

	bt := fastTranslator(
		WithSourceLang("en"),
		WithContext("Accounting app"),
		WithExcludedTerms([]string{"Acme"}),
		WithStyle(StyleFormal),
	)
	if _, err := bt.TranslateDocument(context.Background(), spans, "de", p); err != nil {
		t.Fatalf("TranslateDocument failed: %v", err)
	}

	req := p.requests[0]
	if req.TargetLang != "de" || req.SourceLang != "en" || req.Context != "Accounting app" {
		t.Errorf("Unexpected request: %+v", req)
	}
	if req.Style != StyleFormal || len(req.ExcludedTerms) != 1 {
		t.Errorf("Unexpected style or terms: %+v", req)
	}
	if len(req.TextContexts) != 1 || req.TextContexts[0] != "button" {
		t.Errorf("Unexpected text contexts: %v", req.TextContexts)
	}
}

func TestBatchTranslator_RetriesThenSucceeds(t *testing.T) {
	for n := 0; n <= 2; n++ {
		failures := make([]error, n)
		for i := range failures {
			failures[i] = &ProviderError{Provider: "fake", Kind: KindNetwork, Message: "reset"}
		}
		p := &scriptedProvider{name: "fake", failures: failures}

		out, err := fastTranslator().TranslateDocument(context.Background(), makeSpans("hi"), "fr", p)
		if err != nil {
			t.Fatalf("%d failures: unexpected error %v", n, err)
		}
		if out[0] != "HI" {
			t.Errorf("%d failures: got %q", n, out[0])
		}
		if int(p.calls) != n+1 {
			t.Errorf("%d failures: expected %d calls, got %d", n, n+1, p.calls)
		}
	}
}

func TestBatchTranslator_CountMismatchIsMalformed(t *testing.T) {
	p := &scriptedProvider{
		name:  "fake",
		reply: func(req TranslateRequest) []string { return []string{"only one"} },
	}

	_, err := fastTranslator().TranslateDocument(context.Background(), makeSpans("a", "b", "c"), "fr", p)

	if ErrorKindOf(err) != KindMalformedResponse {
		t.Fatalf("Expected malformed_response, got: %v", err)
	}
	var mismatch *CountMismatchError
	if !errors.As(err, &mismatch) || mismatch.Expected != 3 || mismatch.Got != 1 {
		t.Errorf("Expected count mismatch 3/1, got: %v", err)
	}
	// Malformed responses are retried up to the attempt budget
	if p.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", p.calls)
	}
}

func TestBatchTranslator_AuthFailureAbortsDocument(t *testing.T) {
	p := &scriptedProvider{
		name:     "fake",
		limits:   BatchLimits{MaxItems: 1},
		failures: []error{&ProviderError{Provider: "fake", Kind: KindAuthFailed, Message: "bad key"}},
	}

	_, err := fastTranslator().TranslateDocument(context.Background(), makeSpans("a", "b", "c"), "fr", p)

	if ErrorKindOf(err) != KindAuthFailed {
		t.Fatalf("Expected auth_failed, got: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("Expected the document to stop after 1 call, got %d", p.calls)
	}
}

func TestBatchTranslator_CallTimeoutIsNetwork(t *testing.T) {
	p := &scriptedProvider{name: "slow", delay: time.Second}
	bt := NewBatchTranslator(
		WithRetryConfig(RetryConfig{MaxAttempts: 1, RateLimitAttempts: 1}),
		WithCallTimeout(10*time.Millisecond),
	)

	_, err := bt.TranslateDocument(context.Background(), makeSpans("a"), "fr", p)

	if ErrorKindOf(err) != KindNetwork {
		t.Errorf("Expected network error, got: %v", err)
	}
}

func TestBatchTranslator_InFlightCallSurvivesCancel(t *testing.T) {
	p := &scriptedProvider{name: "slow", delay: 30 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	// The call completes; the document is reported as cancelled by the caller.
	out, err := fastTranslator().TranslateDocument(ctx, makeSpans("a"), "fr", p)
	if err != nil {
		t.Fatalf("Expected in-flight call to finish, got: %v", err)
	}
	if out[0] != "A" {
		t.Errorf("Unexpected output %v", out)
	}
	if ctx.Err() == nil {
		t.Error("Expected context to be cancelled")
	}
}

func TestBatchTranslator_NoNewBatchAfterCancel(t *testing.T) {
	p := &scriptedProvider{name: "fake", limits: BatchLimits{MaxItems: 1}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fastTranslator().TranslateDocument(ctx, makeSpans("a", "b"), "fr", p)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if p.calls != 0 {
		t.Errorf("Expected no calls, got %d", p.calls)
	}
}

func TestBatchTranslator_Cache(t *testing.T) {
	cache := newSlowCache(0)
	p := &scriptedProvider{name: "fake"}
	bt := fastTranslator(WithCache(cache))

	first, err := bt.TranslateWithFallback(context.Background(), makeSpans("a", "b"), "fr", []Provider{p})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.Cached != 0 || first.Batches != 1 {
		t.Errorf("Unexpected first run stats: %+v", first)
	}

	second, err := bt.TranslateWithFallback(context.Background(), makeSpans("a", "b", "c"), "fr", []Provider{p})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Cached != 2 {
		t.Errorf("Expected 2 cached spans, got %d", second.Cached)
	}
	if got := p.requests[1].Texts; len(got) != 1 || got[0] != "c" {
		t.Errorf("Expected only the miss to be sent, got %v", got)
	}
	if second.Texts[0] != "A" || second.Texts[2] != "C" {
		t.Errorf("Unexpected texts %v", second.Texts)
	}

	// Keys are scoped to the target language
	if _, ok := cache.Get(CacheKey(HashText("a"), "", "fr", "fake")); !ok {
		t.Error("Expected cache entry for fr")
	}
	if _, ok := cache.Get(CacheKey(HashText("a"), "", "de", "fake")); ok {
		t.Error("Unexpected cache entry for de")
	}
}

func TestTranslateWithFallback(t *testing.T) {
	broken := &scriptedProvider{
		name:     "deepl",
		failures: []error{&ProviderError{Provider: "deepl", Kind: KindAuthFailed}},
	}
	backup := &scriptedProvider{name: "chatgpt"}

	res, err := fastTranslator().TranslateWithFallback(context.Background(), makeSpans("a"), "fr", []Provider{broken, backup})
	if err != nil {
		t.Fatalf("Expected fallback to succeed, got: %v", err)
	}
	if res.Provider != "chatgpt" {
		t.Errorf("Expected chatgpt, got %q", res.Provider)
	}
	if len(res.Failures) != 1 || ErrorKindOf(res.Failures[0]) != KindAuthFailed {
		t.Errorf("Expected recorded deepl failure, got %v", res.Failures)
	}
}

func TestTranslateWithFallback_AllFail(t *testing.T) {
	chain := []Provider{
		&scriptedProvider{name: "deepl", failures: []error{&ProviderError{Provider: "deepl", Kind: KindAuthFailed}}},
		&scriptedProvider{name: "chatgpt", failures: []error{&ProviderError{Provider: "chatgpt", Kind: KindUnsupportedLang}}},
	}

	_, err := fastTranslator().TranslateWithFallback(context.Background(), makeSpans("a"), "fr", chain)

	var transErr *TranslationError
	if !errors.As(err, &transErr) {
		t.Fatalf("Expected TranslationError, got: %v", err)
	}
	if !strings.Contains(err.Error(), "auth_failed") || !strings.Contains(err.Error(), "unsupported_lang") {
		t.Errorf("Expected both failures in error, got: %v", err)
	}
	if FailureReason(err) != "translation failed: deepl auth_failed" {
		t.Errorf("Unexpected reason %q", FailureReason(err))
	}
}

func TestTranslateWithFallback_EmptyChain(t *testing.T) {
	_, err := fastTranslator().TranslateWithFallback(context.Background(), makeSpans("a"), "fr", nil)

	var transErr *TranslationError
	if !errors.As(err, &transErr) {
		t.Errorf("Expected TranslationError, got: %v", err)
	}
}

func TestApplyTranslations(t *testing.T) {
	spans := makeSpans("a", "b")

	if err := ApplyTranslations(spans, []string{"x"}); err == nil {
		t.Error("Expected count mismatch")
	}
	if err := ApplyTranslations(spans, []string{"x", "y"}); err != nil {
		t.Fatalf("ApplyTranslations failed: %v", err)
	}
	if got, ok := spans[1].Translation(); !ok || got != "y" {
		t.Errorf("Unexpected translation %q %v", got, ok)
	}
}
