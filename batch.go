package pagetran

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultCallTimeout bounds a single remote provider call.
const DefaultCallTimeout = 60 * time.Second

// Batch is a group of spans submitted together in one remote call.
type Batch struct {
	Index    int      // Position of the batch in the document
	Spans    []int    // Indexes into the span list, in document order
	Texts    []string // Source strings, aligned with Spans
	Contexts []string // Per-string disambiguation hints
	Chars    int      // Cumulative character count
}

// SplitBatches groups the spans selected by indexes into batches that
// respect limits. A span larger than MaxChars forms a batch on its own.
func SplitBatches(spans []*Span, indexes []int, limits BatchLimits) []Batch {
	var batches []Batch
	var cur Batch

	flush := func() {
		if len(cur.Spans) == 0 {
			return
		}
		cur.Index = len(batches)
		batches = append(batches, cur)
		cur = Batch{}
	}

	for _, i := range indexes {
		n := utf8.RuneCountInString(spans[i].Text)
		full := limits.MaxItems > 0 && len(cur.Spans) >= limits.MaxItems
		tooLong := limits.MaxChars > 0 && cur.Chars+n > limits.MaxChars
		if len(cur.Spans) > 0 && (full || tooLong) {
			flush()
		}
		cur.Spans = append(cur.Spans, i)
		cur.Texts = append(cur.Texts, spans[i].Text)
		cur.Contexts = append(cur.Contexts, spans[i].Context)
		cur.Chars += n
	}
	flush()

	return batches
}

// DocumentTranslation is the outcome of translating one document.
type DocumentTranslation struct {
	Texts    []string // Translations aligned with the input spans
	Provider string   // Provider that produced them
	Cached   int      // Spans served from the cache
	Batches  int      // Remote batches sent
	Failures []error  // Document-level aborts of earlier providers in the chain
}

// BatchTranslator drives providers over the spans of a document.
type BatchTranslator struct {
	retry         RetryConfig
	callTimeout   time.Duration
	concurrency   int
	cache         TranslationCache
	sourceLang    string
	context       string
	excludedTerms []string
	style         TranslationStyle
	logger        zerolog.Logger
}

// BatchOption is a functional option for configuring the BatchTranslator.
type BatchOption func(*BatchTranslator)

// WithRetryConfig sets the per-batch retry policy.
func WithRetryConfig(cfg RetryConfig) BatchOption {
	return func(b *BatchTranslator) {
		b.retry = cfg
	}
}

// WithCallTimeout sets the timeout of every remote call.
func WithCallTimeout(d time.Duration) BatchOption {
	return func(b *BatchTranslator) {
		b.callTimeout = d
	}
}

// WithConcurrency sets how many batches of one document may be in flight.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchTranslator) {
		b.concurrency = n
	}
}

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) BatchOption {
	return func(b *BatchTranslator) {
		b.cache = cache
	}
}

// WithSourceLang sets the source language ("" lets the provider detect it).
func WithSourceLang(lang string) BatchOption {
	return func(b *BatchTranslator) {
		b.sourceLang = lang
	}
}

// WithContext sets the global translation context.
func WithContext(ctx string) BatchOption {
	return func(b *BatchTranslator) {
		b.context = ctx
	}
}

// WithExcludedTerms sets terms that should not be translated.
func WithExcludedTerms(terms []string) BatchOption {
	return func(b *BatchTranslator) {
		b.excludedTerms = terms
	}
}

// WithStyle sets the translation style/register.
func WithStyle(style TranslationStyle) BatchOption {
	return func(b *BatchTranslator) {
		b.style = style
	}
}

// WithBatchLogger sets the logger.
func WithBatchLogger(logger zerolog.Logger) BatchOption {
	return func(b *BatchTranslator) {
		b.logger = logger
	}
}

// NewBatchTranslator creates a BatchTranslator with default retry policy,
// call timeout and sequential batches.
func NewBatchTranslator(opts ...BatchOption) *BatchTranslator {
	b := &BatchTranslator{
		retry:       DefaultRetryConfig(),
		callTimeout: DefaultCallTimeout,
		concurrency: 1,
		style:       StyleNeutral,
		logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.callTimeout <= 0 {
		b.callTimeout = DefaultCallTimeout
	}
	if b.concurrency < 1 {
		b.concurrency = 1
	}

	return b
}

// TranslateDocument translates spans with a single provider and returns the
// translations in span order.
func (b *BatchTranslator) TranslateDocument(ctx context.Context, spans []*Span, targetLang string, p Provider) ([]string, error) {
	res, err := b.translate(ctx, spans, targetLang, p)
	if err != nil {
		return nil, err
	}
	return res.Texts, nil
}

// TranslateWithFallback tries each provider of the chain in order. A
// document-level abort on one provider restarts the whole document on the
// next one.
func (b *BatchTranslator) TranslateWithFallback(ctx context.Context, spans []*Span, targetLang string, chain []Provider) (*DocumentTranslation, error) {
	if len(chain) == 0 {
		return nil, &TranslationError{Message: "no provider available"}
	}

	var failures []error
	for i, p := range chain {
		res, err := b.translate(ctx, spans, targetLang, p)
		if err == nil {
			res.Failures = failures
			return res, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		failures = append(failures, err)
		if i < len(chain)-1 {
			b.logger.Warn().
				Err(err).
				Str("provider", p.Name()).
				Str("fallback", chain[i+1].Name()).
				Msg("provider aborted document, falling back")
		}
	}

	return nil, &TranslationError{
		Message: fmt.Sprintf("all %d providers failed", len(chain)),
		Cause:   errors.Join(failures...),
	}
}

// ApplyTranslations records texts on the spans they belong to.
func ApplyTranslations(spans []*Span, texts []string) error {
	if len(spans) != len(texts) {
		return &CountMismatchError{Expected: len(spans), Got: len(texts)}
	}
	for i, s := range spans {
		s.SetTranslation(texts[i])
	}
	return nil
}

func (b *BatchTranslator) translate(ctx context.Context, spans []*Span, targetLang string, p Provider) (*DocumentTranslation, error) {
	out := make([]string, len(spans))
	res := &DocumentTranslation{Texts: out, Provider: p.Name()}

	hits, misses := CacheLookup(b.cache, spans, func(s *Span) string {
		return CacheKey(s.Hash, b.sourceLang, targetLang, p.Name())
	})
	for i, cached := range hits {
		out[i] = cached
	}
	res.Cached = len(hits)

	batches := SplitBatches(spans, misses, p.Limits())
	res.Batches = len(batches)
	results := make([][]string, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for _, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts, err := b.translateBatch(gctx, p, targetLang, batch)
			if err != nil {
				return fmt.Errorf("batch %d: %w", batch.Index, err)
			}
			results[batch.Index] = texts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for bi, batch := range batches {
		for j, si := range batch.Spans {
			out[si] = results[bi][j]
			if b.cache != nil {
				key := CacheKey(spans[si].Hash, b.sourceLang, targetLang, p.Name())
				if err := b.cache.Set(key, out[si]); err != nil {
					b.logger.Debug().Err(err).Msg("cache set failed")
				}
			}
		}
	}

	return res, nil
}

func (b *BatchTranslator) translateBatch(ctx context.Context, p Provider, targetLang string, batch Batch) ([]string, error) {
	req := TranslateRequest{
		Texts:         batch.Texts,
		TargetLang:    targetLang,
		SourceLang:    b.sourceLang,
		ExcludedTerms: b.excludedTerms,
		Context:       b.context,
		TextContexts:  batch.Contexts,
		Style:         b.style,
	}

	return WithRetry(ctx, b.retry, func(attempt int) ([]string, error) {
		// In-flight calls are bounded by their own timeout, not by run cancellation.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.callTimeout)
		defer cancel()

		out, err := p.Translate(callCtx, req)
		if err == nil && len(out) != len(req.Texts) {
			err = &ProviderError{
				Provider: p.Name(),
				Kind:     KindMalformedResponse,
				Message:  "provider returned a misaligned batch",
				Cause:    &CountMismatchError{Expected: len(req.Texts), Got: len(out)},
			}
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ErrorKindOf(err) == "" {
				err = &ProviderError{Provider: p.Name(), Kind: KindNetwork, Message: "call timed out", Cause: err}
			}
			b.logger.Debug().
				Err(err).
				Str("provider", p.Name()).
				Int("batch", batch.Index).
				Int("attempt", attempt+1).
				Msg("batch attempt failed")
			return nil, err
		}
		return out, nil
	})
}
