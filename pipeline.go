package pagetran

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FileState is the lifecycle position of one input file.
type FileState string

const (
	StatePending     FileState = "pending"
	StateExtracting  FileState = "extracting"
	StateTranslating FileState = "translating"
	StateRewriting   FileState = "rewriting"
	StateWriting     FileState = "writing"
	StateDone        FileState = "done"
	StateFailed      FileState = "failed"
	StateSkipped     FileState = "skipped"
)

// FileResult is the outcome of one input file.
type FileResult struct {
	Path        string    `json:"path"`
	Output      string    `json:"output,omitempty"`
	State       FileState `json:"state"`
	FailedIn    FileState `json:"failed_in,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	Spans       int       `json:"spans"`
	Cached      int       `json:"cached"`
	InputBytes  int       `json:"input_bytes"`
	OutputBytes int       `json:"output_bytes,omitempty"`
	Err         error     `json:"-"`
}

// RunResult summarizes a pipeline run.
type RunResult struct {
	RunID      string        `json:"run_id"`
	TargetLang string        `json:"target_lang"`
	Providers  []string      `json:"providers"`
	Files      []*FileResult `json:"files"`
	Translated int           `json:"translated"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	NotStarted int           `json:"not_started"`

	mu sync.Mutex
}

// record folds a finished file into the counters.
func (r *RunResult) record(fr *FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch fr.State {
	case StateDone:
		r.Translated++
	case StateSkipped:
		r.Skipped++
	case StateFailed:
		r.Failed++
	}
}

// finish counts files that never left the pending state.
func (r *RunResult) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, fr := range r.Files {
		if fr.State == StatePending {
			r.NotStarted++
		}
	}
}

// ExitCode is 1 when nothing was translated and at least one file failed.
func (r *RunResult) ExitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Translated == 0 && r.Failed > 0 {
		return 1
	}
	return 0
}

// LanguageDetector reports the ISO 639-1 code of a text sample.
type LanguageDetector interface {
	DetectISO(text string) (string, bool)
}

// Pipeline translates a set of HTML files into one target language.
type Pipeline struct {
	processor  Processor
	providers  []Provider
	translator *BatchTranslator
	detector   LanguageDetector
	workers    int
	logger     zerolog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the run logger.
func WithLogger(logger zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTranslator sets the batch translator used for every document.
func WithTranslator(t *BatchTranslator) PipelineOption {
	return func(p *Pipeline) {
		p.translator = t
	}
}

// WithFileWorkers sets how many files are processed at once.
func WithFileWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithDetector skips documents already written in the target language.
func WithDetector(d LanguageDetector) PipelineOption {
	return func(p *Pipeline) {
		p.detector = d
	}
}

// NewPipeline creates a pipeline over the given provider chain, in
// preference order.
func NewPipeline(processor Processor, providers []Provider, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		processor: processor,
		providers: providers,
		workers:   1,
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.translator == nil {
		p.translator = NewBatchTranslator(WithBatchLogger(p.logger))
	}

	return p
}

// Preflight validates the target language and returns the providers that
// support it, in chain order.
func (p *Pipeline) Preflight(targetLang string) ([]Provider, error) {
	if _, err := ParseLanguage(targetLang); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("invalid target language %q", targetLang), Cause: err}
	}

	var chain []Provider
	for _, provider := range p.providers {
		if provider == nil {
			continue
		}
		if !provider.Supports(targetLang) {
			p.logger.Warn().Str("provider", provider.Name()).Str("lang", targetLang).Msg("provider does not support target language, dropped")
			continue
		}
		chain = append(chain, provider)
	}

	if len(chain) == 0 {
		return nil, &ConfigError{Message: fmt.Sprintf("no configured provider supports %q", targetLang)}
	}
	return chain, nil
}

// Run processes files and reports every outcome. The error is non-nil only
// when pre-flight fails, in which case no file is touched.
func (p *Pipeline) Run(ctx context.Context, files []string, targetLang string) (*RunResult, error) {
	chain, err := p.Preflight(targetLang)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:      uuid.NewString(),
		TargetLang: targetLang,
		Files:      make([]*FileResult, len(files)),
	}
	for _, provider := range chain {
		result.Providers = append(result.Providers, provider.Name())
	}
	for i, path := range files {
		result.Files[i] = &FileResult{Path: path, State: StatePending}
	}

	logger := p.logger.With().Str("run_id", result.RunID).Str("lang", targetLang).Logger()
	logger.Info().Int("files", len(files)).Strs("providers", result.Providers).Msg("run started")

	var g errgroup.Group
	g.SetLimit(p.workers)

	for _, fr := range result.Files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			p.processFile(ctx, logger.With().Str("file", fr.Path).Logger(), fr, targetLang, chain)
			result.record(fr)
			return nil
		})
	}
	_ = g.Wait()
	result.finish()

	logger.Info().
		Int("translated", result.Translated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("not_started", result.NotStarted).
		Msg("run finished")

	return result, nil
}

func (p *Pipeline) processFile(ctx context.Context, logger zerolog.Logger, fr *FileResult, targetLang string, chain []Provider) {
	fail := func(err error) {
		fr.FailedIn = fr.State
		fr.State = StateFailed
		fr.Err = err
		fr.Reason = FailureReason(err)
		logger.Warn().Err(err).Str("state", string(fr.FailedIn)).Msg("file failed")
	}

	fr.State = StateExtracting
	src, err := os.ReadFile(fr.Path) // #nosec G304 - paths come from the operator
	if err != nil {
		fail(fmt.Errorf("reading input: %w", err))
		return
	}
	fr.InputBytes = len(src)

	doc, err := p.processor.Extract(fr.Path, src)
	if err != nil {
		fail(err)
		return
	}
	fr.Spans = len(doc.Spans)

	if len(doc.Spans) == 0 {
		fr.State = StateSkipped
		fr.Reason = "no translatable content"
		logger.Info().Msg("skipped: no translatable content")
		return
	}

	if p.detector != nil {
		code, ok := p.detector.DetectISO(strings.Join(doc.Texts(), "\n"))
		if ok && strings.EqualFold(code, BaseLanguage(targetLang)) {
			fr.State = StateSkipped
			fr.Reason = "already in " + BaseLanguage(targetLang)
			logger.Info().Str("detected", code).Msg("skipped: already in target language")
			return
		}
	}

	fr.State = StateTranslating
	translated, err := p.translator.TranslateWithFallback(ctx, doc.Spans, targetLang, chain)
	if err != nil {
		fail(err)
		return
	}
	if err := ctx.Err(); err != nil {
		fail(err)
		return
	}
	fr.Provider = translated.Provider
	fr.Cached = translated.Cached

	fr.State = StateRewriting
	if err := ApplyTranslations(doc.Spans, translated.Texts); err != nil {
		fail(err)
		return
	}
	doc.TargetLang = targetLang

	out, err := p.processor.Rewrite(doc)
	if err != nil {
		fail(err)
		return
	}

	fr.State = StateWriting
	if err := ctx.Err(); err != nil {
		fail(err)
		return
	}
	output := OutputPath(fr.Path, targetLang)
	if err := writeFileAtomic(output, out); err != nil {
		fail(err)
		return
	}

	fr.Output = output
	fr.OutputBytes = len(out)
	fr.State = StateDone
	logger.Info().
		Str("provider", fr.Provider).
		Int("spans", fr.Spans).
		Int("cached", fr.Cached).
		Str("output", output).
		Msg("file translated")
}

// OutputPath returns <dir>/<stem>-<lang>.html for an input path.
func OutputPath(path, targetLang string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(path), stem+"-"+targetLang+".html")
}

// writeFileAtomic replaces path with data via a temporary sibling file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pagetran-*")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing output: %w", err)
	}
	return nil
}

// Discover lists the *.html files directly inside dir, leaving out outputs
// of earlier runs: names ending in -<lang>.html for the target language and
// every excluded suffix.
func Discover(dir, targetLang string, excludedSuffixes []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("reading directory %s", dir), Cause: err}
	}

	suffixes := append([]string{targetLang}, excludedSuffixes...)

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".html") {
			continue
		}
		if isGenerated(name, suffixes) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

func isGenerated(name string, suffixes []string) bool {
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && strings.HasSuffix(stem, "-"+s) {
			return true
		}
	}
	return false
}
