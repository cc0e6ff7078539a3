package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaguanLabs/pagetran"
	"github.com/ZaguanLabs/pagetran/cache"
	"github.com/ZaguanLabs/pagetran/internal/config"
	"github.com/ZaguanLabs/pagetran/internal/detector"
	"github.com/ZaguanLabs/pagetran/internal/logging"
	"github.com/ZaguanLabs/pagetran/processor"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type translateOptions struct {
	dryRun bool
	json   bool
}

func newTranslateCmd(root *rootOptions) *cobra.Command {
	opts := &translateOptions{}
	v := config.New()

	cmd := &cobra.Command{
		Use:   "translate [files...]",
		Short: "Translate HTML files",
		Long: `Translate the given HTML files, or every *.html file in --dir when
none are given. Outputs of earlier runs (*-<lang>.html for the target
language and every excluded suffix) are never picked up as inputs.

Exit status is 2 when the configuration is unusable, 1 when no file was
translated and at least one failed, and 0 otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(root.envFile); err != nil {
				return &pagetran.ConfigError{Message: "loading env file", Cause: err}
			}
			cfg, err := config.Load(v, root.configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			if err != nil {
				return &pagetran.ConfigError{Message: "configuring logger", Cause: err}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runTranslate(ctx, cmd, cfg, logger, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringP("lang", "l", "", "Target language (default fr, env TARGET_LANG)")
	f.String("source", "", "Source language (default: detected by the provider)")
	f.StringP("dir", "d", "", "Directory searched for *.html when no files are given (default .)")
	f.StringSlice("exclude-suffixes", nil, "Language suffixes of generated files to ignore (default fr,es,de)")
	f.StringSlice("providers", nil, "Provider chain in preference order (default deepl,chatgpt,libre)")
	f.String("deepl-key", "", "DeepL auth key (env DEEPL_KEY)")
	f.String("deepl-url", "", "DeepL API base URL")
	f.String("chatgpt-key", "", "OpenAI API key (env CHATGPT_KEY or OPENAI_API_KEY)")
	f.String("chatgpt-model", "", "OpenAI model (default gpt-4o-mini)")
	f.String("chatgpt-url", "", "OpenAI-compatible API base URL")
	f.StringSlice("libre-url", nil, "LibreTranslate server URLs (env LIBRE_URLS)")
	f.Bool("libre-public", false, "Use public LibreTranslate servers when no URL is set")
	f.Bool("arbitrate", false, "Let ChatGPT pick between candidate translations")
	f.StringSlice("arbiter-candidates", nil, "Providers compared by the arbiter (default deepl,libre)")
	f.Duration("timeout", 0, "Timeout of one provider call (default 60s)")
	f.Int("concurrency", 0, "Batches translated at once per document (default 1)")
	f.Int("workers", 0, "Files processed at once (default 1)")
	f.Int("rpm", 0, "Requests per minute per provider, 0 for no limit")
	f.Bool("set-lang", false, "Set lang and dir on the <html> element")
	f.StringSlice("skip", nil, "CSS selectors of elements left untranslated")
	f.StringSlice("attrs", nil, "Translated attributes (default alt,title,placeholder,aria-label)")
	f.String("context", "", "Description of the site given to AI providers")
	f.String("style", "", "Translation style: formal, neutral, casual, marketing, technical")
	f.String("cache", "", "Translation cache: none, memory or redis")
	f.Duration("cache-ttl", 0, "Cache entry lifetime, 0 for no expiry")
	f.String("cache-file", "", "Snapshot file loaded into and saved from the memory cache")
	f.String("redis-url", "", "Redis URL for the redis cache")
	f.Bool("detect-lang", false, "Skip pages already written in the target language")
	f.String("log-level", "", "Log level (default info)")
	f.String("log-format", "", "Log format: json or console (default json)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "List translatable spans without calling any provider")
	f.BoolVar(&opts.json, "json", false, "Print the summary as JSON")

	bindFlags(v, f, map[string]string{
		config.KeyTargetLang:        "lang",
		config.KeySourceLang:        "source",
		config.KeyDir:               "dir",
		config.KeyExcludedSuffixes:  "exclude-suffixes",
		config.KeyProviders:         "providers",
		config.KeyDeepLKey:          "deepl-key",
		config.KeyDeepLBaseURL:      "deepl-url",
		config.KeyChatGPTKey:        "chatgpt-key",
		config.KeyChatGPTModel:      "chatgpt-model",
		config.KeyChatGPTBaseURL:    "chatgpt-url",
		config.KeyLibreURLs:         "libre-url",
		config.KeyLibrePublic:       "libre-public",
		config.KeyArbitrate:         "arbitrate",
		config.KeyArbiterCandidates: "arbiter-candidates",
		config.KeyCallTimeout:       "timeout",
		config.KeyConcurrency:       "concurrency",
		config.KeyFileWorkers:       "workers",
		config.KeyRequestsPerMinute: "rpm",
		config.KeySetLang:           "set-lang",
		config.KeySkipSelectors:     "skip",
		config.KeyAttrs:             "attrs",
		config.KeyContext:           "context",
		config.KeyStyle:             "style",
		config.KeyCacheBackend:      "cache",
		config.KeyCacheTTL:          "cache-ttl",
		config.KeyCacheFile:         "cache-file",
		config.KeyCacheRedisURL:     "redis-url",
		config.KeyDetectLanguage:    "detect-lang",
		config.KeyLogLevel:          "log-level",
		config.KeyLogFormat:         "log-format",
	})

	return cmd
}

// bindFlags makes explicitly set flags override every other source.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

func runTranslate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger zerolog.Logger, args []string, opts *translateOptions) error {
	proc, err := newProcessor(cfg)
	if err != nil {
		return err
	}

	files := args
	if len(files) == 0 {
		files, err = pagetran.Discover(cfg.Dir, cfg.TargetLang, cfg.ExcludedSuffixes)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if opts.dryRun {
		return dryRun(out, proc, files, opts.json)
	}

	translationCache, closeCache, err := cache.Open(cache.Config{
		Backend:  cfg.Cache.Backend,
		TTL:      cfg.Cache.TTL,
		RedisURL: cfg.Cache.RedisURL,
		File:     cfg.Cache.File,
	}, logger)
	if err != nil {
		return &pagetran.ConfigError{Message: "opening cache", Cause: err}
	}
	defer func() {
		if err := closeCache(); err != nil {
			logger.Error().Err(err).Msg("closing cache")
		}
	}()

	pipeline := pagetran.NewPipeline(proc, buildProviders(cfg, logger), pipelineOptions(cfg, translationCache, logger)...)

	result, err := pipeline.Run(ctx, files, cfg.TargetLang)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	} else if err := pagetran.WriteSummary(out, result); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	if code := result.ExitCode(); code != exitOK {
		return &exitCodeError{code: code}
	}
	return nil
}

func newProcessor(cfg *config.Config) (*processor.HTMLProcessor, error) {
	opts := []processor.Option{processor.WithLangAttr(cfg.SetLang)}
	if len(cfg.Attrs) > 0 {
		opts = append(opts, processor.WithTranslatableAttrs(cfg.Attrs...))
	}
	if len(cfg.SkipSelectors) > 0 {
		opts = append(opts, processor.WithSkipSelectors(cfg.SkipSelectors...))
	}
	return processor.NewHTMLProcessor(opts...)
}

func pipelineOptions(cfg *config.Config, c pagetran.TranslationCache, logger zerolog.Logger) []pagetran.PipelineOption {
	batchOpts := []pagetran.BatchOption{
		pagetran.WithRetryConfig(cfg.Retry),
		pagetran.WithCallTimeout(cfg.CallTimeout),
		pagetran.WithConcurrency(cfg.Concurrency),
		pagetran.WithSourceLang(cfg.SourceLang),
		pagetran.WithContext(cfg.Context),
		pagetran.WithStyle(cfg.Style),
		pagetran.WithBatchLogger(logger),
	}
	if c != nil {
		batchOpts = append(batchOpts, pagetran.WithCache(c))
	}

	opts := []pagetran.PipelineOption{
		pagetran.WithLogger(logger),
		pagetran.WithTranslator(pagetran.NewBatchTranslator(batchOpts...)),
		pagetran.WithFileWorkers(cfg.FileWorkers),
	}
	if cfg.DetectLanguage {
		opts = append(opts, pagetran.WithDetector(detector.New()))
	}
	return opts
}
