// Package config loads pagetran settings from flags, an optional YAML file,
// the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ZaguanLabs/pagetran"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Keys understood by Load. Flags bind to these names.
const (
	KeyTargetLang        = "target_lang"
	KeySourceLang        = "source_lang"
	KeyDir               = "dir"
	KeyExcludedSuffixes  = "excluded_suffixes"
	KeyProviders         = "providers"
	KeyDeepLKey          = "deepl.key"
	KeyDeepLBaseURL      = "deepl.base_url"
	KeyChatGPTKey        = "chatgpt.key"
	KeyChatGPTModel      = "chatgpt.model"
	KeyChatGPTBaseURL    = "chatgpt.base_url"
	KeyLibreURLs         = "libre.urls"
	KeyLibreKey          = "libre.key"
	KeyLibrePublic       = "libre.public"
	KeyArbitrate         = "arbiter.enabled"
	KeyArbiterCandidates = "arbiter.candidates"
	KeyMaxAttempts       = "retry.max_attempts"
	KeyRateLimitAttempts = "retry.rate_limit_attempts"
	KeyBaseDelay         = "retry.base_delay"
	KeyMaxDelay          = "retry.max_delay"
	KeyCallTimeout       = "call_timeout"
	KeyConcurrency       = "concurrency"
	KeyFileWorkers       = "file_workers"
	KeyRequestsPerMinute = "requests_per_minute"
	KeySetLang           = "set_lang"
	KeySkipSelectors     = "skip_selectors"
	KeyAttrs             = "attrs"
	KeyContext           = "context"
	KeyStyle             = "style"
	KeyCacheBackend      = "cache.backend"
	KeyCacheTTL          = "cache.ttl"
	KeyCacheRedisURL     = "cache.redis_url"
	KeyCacheFile         = "cache.file"
	KeyDetectLanguage    = "detect_language"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
)

// Providers known to the CLI, in default preference order.
var knownProviders = []string{"deepl", "chatgpt", "libre"}

// legacyEnv maps keys to the unprefixed variable names used by existing CI
// setups. The prefixed name always wins.
var legacyEnv = map[string][]string{
	KeyTargetLang:       {"TARGET_LANG"},
	KeyExcludedSuffixes: {"EXCLUDED_LANG_SUFFIXES"},
	KeyDeepLKey:         {"DEEPL_KEY", "DEEPL_API_KEY"},
	KeyChatGPTKey:       {"CHATGPT_KEY", "OPENAI_API_KEY"},
	KeyLibreURLs:        {"LIBRE_URLS"},
	KeyLibreKey:         {"LIBRE_KEY"},
}

var defaults = map[string]interface{}{
	KeyTargetLang:        "fr",
	KeySourceLang:        "",
	KeyDir:               ".",
	KeyExcludedSuffixes:  "fr,es,de",
	KeyProviders:         strings.Join(knownProviders, ","),
	KeyChatGPTModel:      "gpt-4o-mini",
	KeyLibrePublic:       false,
	KeyArbitrate:         false,
	KeyArbiterCandidates: "deepl,libre",
	KeyMaxAttempts:       3,
	KeyRateLimitAttempts: 6,
	KeyBaseDelay:         time.Second,
	KeyMaxDelay:          30 * time.Second,
	KeyCallTimeout:       pagetran.DefaultCallTimeout,
	KeyConcurrency:       1,
	KeyFileWorkers:       1,
	KeyRequestsPerMinute: 0,
	KeySetLang:           false,
	KeyStyle:             string(pagetran.StyleNeutral),
	KeyCacheBackend:      "none",
	KeyCacheTTL:          time.Duration(0),
	KeyDetectLanguage:    false,
	KeyLogLevel:          "info",
	KeyLogFormat:         "json",
}

// Config is the resolved configuration of one run.
type Config struct {
	TargetLang       string
	SourceLang       string
	Dir              string
	ExcludedSuffixes []string
	Providers        []string

	DeepL   DeepLConfig
	ChatGPT ChatGPTConfig
	Libre   LibreConfig
	Arbiter ArbiterConfig
	Retry   pagetran.RetryConfig
	Cache   CacheConfig
	Log     LogConfig

	CallTimeout       time.Duration
	Concurrency       int
	FileWorkers       int
	RequestsPerMinute int
	SetLang           bool
	SkipSelectors     []string
	Attrs             []string
	Context           string
	Style             pagetran.TranslationStyle
	DetectLanguage    bool
}

// DeepLConfig holds DeepL credentials.
type DeepLConfig struct {
	Key     string
	BaseURL string
}

// ChatGPTConfig holds OpenAI-compatible endpoint settings.
type ChatGPTConfig struct {
	Key     string
	Model   string
	BaseURL string
}

// LibreConfig lists LibreTranslate servers. Public falls back to the
// well-known public servers when URLs is empty.
type LibreConfig struct {
	URLs   []string
	Key    string
	Public bool
}

// ArbiterConfig enables ChatGPT arbitration between candidate providers.
type ArbiterConfig struct {
	Enabled    bool
	Candidates []string
}

// CacheConfig selects the translation cache.
type CacheConfig struct {
	Backend  string
	TTL      time.Duration
	RedisURL string
	File     string
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string
	Format string
}

// LoadEnvFile loads variables from a .env file without overriding the
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("PAGETRAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		prefixed := "PAGETRAN_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		_ = v.BindEnv(append([]string{key, prefixed}, names...)...)
	}

	return v
}

// Load resolves a Config from v, reading configFile first when given.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &pagetran.ConfigError{Message: "reading config file " + configFile, Cause: err}
		}
	}

	cfg := &Config{
		TargetLang:       strings.TrimSpace(v.GetString(KeyTargetLang)),
		SourceLang:       strings.TrimSpace(v.GetString(KeySourceLang)),
		Dir:              v.GetString(KeyDir),
		ExcludedSuffixes: list(v, KeyExcludedSuffixes),
		Providers:        list(v, KeyProviders),
		DeepL: DeepLConfig{
			Key:     strings.TrimSpace(v.GetString(KeyDeepLKey)),
			BaseURL: v.GetString(KeyDeepLBaseURL),
		},
		ChatGPT: ChatGPTConfig{
			Key:     strings.TrimSpace(v.GetString(KeyChatGPTKey)),
			Model:   v.GetString(KeyChatGPTModel),
			BaseURL: v.GetString(KeyChatGPTBaseURL),
		},
		Libre: LibreConfig{
			URLs:   list(v, KeyLibreURLs),
			Key:    strings.TrimSpace(v.GetString(KeyLibreKey)),
			Public: v.GetBool(KeyLibrePublic),
		},
		Arbiter: ArbiterConfig{
			Enabled:    v.GetBool(KeyArbitrate),
			Candidates: list(v, KeyArbiterCandidates),
		},
		Retry: pagetran.RetryConfig{
			MaxAttempts:       v.GetInt(KeyMaxAttempts),
			RateLimitAttempts: v.GetInt(KeyRateLimitAttempts),
			BaseDelay:         v.GetDuration(KeyBaseDelay),
			MaxDelay:          v.GetDuration(KeyMaxDelay),
		},
		Cache: CacheConfig{
			Backend:  strings.ToLower(v.GetString(KeyCacheBackend)),
			TTL:      v.GetDuration(KeyCacheTTL),
			RedisURL: v.GetString(KeyCacheRedisURL),
			File:     v.GetString(KeyCacheFile),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		CallTimeout:       v.GetDuration(KeyCallTimeout),
		Concurrency:       v.GetInt(KeyConcurrency),
		FileWorkers:       v.GetInt(KeyFileWorkers),
		RequestsPerMinute: v.GetInt(KeyRequestsPerMinute),
		SetLang:           v.GetBool(KeySetLang),
		SkipSelectors:     list(v, KeySkipSelectors),
		Attrs:             list(v, KeyAttrs),
		Context:           v.GetString(KeyContext),
		Style:             pagetran.TranslationStyle(strings.ToLower(v.GetString(KeyStyle))),
		DetectLanguage:    v.GetBool(KeyDetectLanguage),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// list reads a comma separated string or a YAML sequence.
func list(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = cast.ToStringSlice(val)
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// maxRetryAttempts bounds the per-batch retry budgets.
const maxRetryAttempts = 20

// Validate rejects values no run could use.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return &pagetran.ConfigError{Message: fmt.Sprintf(format, args...)}
	}

	if c.TargetLang == "" {
		return invalid("target language is required")
	}
	for _, name := range c.Providers {
		if !isKnownProvider(name) {
			return invalid("unknown provider %q (known: %s)", name, strings.Join(knownProviders, ", "))
		}
	}
	for _, name := range c.Arbiter.Candidates {
		if !isKnownProvider(name) || name == "chatgpt" {
			return invalid("invalid arbiter candidate %q (use deepl or libre)", name)
		}
	}
	if c.Arbiter.Enabled && len(c.Arbiter.Candidates) < 2 {
		return invalid("arbitration needs at least two candidate providers")
	}
	if c.Retry.MaxAttempts < 1 || c.Retry.RateLimitAttempts < 1 {
		return invalid("retry attempts must be >= 1")
	}
	if c.Retry.MaxAttempts > maxRetryAttempts || c.Retry.RateLimitAttempts > maxRetryAttempts {
		return invalid("retry attempts must be <= %d", maxRetryAttempts)
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return invalid("retry delays must not be negative")
	}
	if c.CallTimeout <= 0 {
		return invalid("call timeout must be positive")
	}
	if c.Concurrency < 1 {
		return invalid("concurrency must be >= 1")
	}
	if c.FileWorkers < 1 {
		return invalid("file workers must be >= 1")
	}
	if c.RequestsPerMinute < 0 {
		return invalid("requests per minute must not be negative")
	}
	if c.Cache.TTL < 0 {
		return invalid("cache ttl must not be negative")
	}

	switch c.Cache.Backend {
	case "", "none", "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return invalid("redis cache requires a redis url")
		}
	default:
		return invalid("unknown cache backend %q", c.Cache.Backend)
	}

	switch c.Style {
	case pagetran.StyleFormal, pagetran.StyleNeutral, pagetran.StyleCasual, pagetran.StyleMarketing, pagetran.StyleTechnical:
	default:
		return invalid("unknown style %q", c.Style)
	}

	return nil
}

func isKnownProvider(name string) bool {
	for _, known := range knownProviders {
		if name == known {
			return true
		}
	}
	return false
}
