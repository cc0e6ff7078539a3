package main

import (
	"github.com/ZaguanLabs/pagetran"
	"github.com/ZaguanLabs/pagetran/internal/config"
	"github.com/ZaguanLabs/pagetran/provider"
	"github.com/rs/zerolog"
)

// buildProviders returns the configured chain, leaving out providers that
// have no credentials. With arbitration enabled and usable, the arbiter
// leads the chain and the plain providers follow as fallbacks.
func buildProviders(cfg *config.Config, logger zerolog.Logger) []pagetran.Provider {
	built := make(map[string]pagetran.Provider)
	var judge *provider.ChatGPTProvider

	get := func(name string) pagetran.Provider {
		if p, ok := built[name]; ok {
			return p
		}
		var p pagetran.Provider

		switch name {
		case "deepl":
			if cfg.DeepL.Key == "" {
				logger.Debug().Str("provider", name).Msg("no key configured, skipped")
				break
			}
			p = provider.NewDeepLProvider(provider.DeepLConfig{
				APIKey:  cfg.DeepL.Key,
				BaseURL: cfg.DeepL.BaseURL,
			})

		case "chatgpt":
			if cfg.ChatGPT.Key == "" {
				logger.Debug().Str("provider", name).Msg("no key configured, skipped")
				break
			}
			judge = provider.NewChatGPTProvider(provider.ChatGPTConfig{
				APIKey:  cfg.ChatGPT.Key,
				Model:   cfg.ChatGPT.Model,
				BaseURL: cfg.ChatGPT.BaseURL,
			})
			p = judge

		case "libre":
			servers := cfg.Libre.URLs
			if len(servers) == 0 && cfg.Libre.Public {
				servers = provider.PublicLibreServers
			}
			libre := provider.NewLibreProvider(provider.LibreConfig{
				Servers: servers,
				APIKey:  cfg.Libre.Key,
			})
			if libre == nil {
				logger.Debug().Str("provider", name).Msg("no server configured, skipped")
				break
			}
			p = libre
		}

		if p != nil && cfg.RequestsPerMinute > 0 {
			p = pagetran.NewRateLimitedProvider(p, pagetran.RateLimitConfig{RequestsPerMinute: cfg.RequestsPerMinute})
		}
		built[name] = p
		return p
	}

	var chain []pagetran.Provider
	for _, name := range cfg.Providers {
		if p := get(name); p != nil {
			chain = append(chain, p)
		}
	}

	if !cfg.Arbiter.Enabled {
		return chain
	}

	get("chatgpt")
	var candidates []pagetran.Provider
	for _, name := range cfg.Arbiter.Candidates {
		candidates = append(candidates, get(name))
	}

	arbiter := provider.NewArbiterProvider(judge, candidates...)
	if arbiter == nil {
		logger.Warn().Strs("candidates", cfg.Arbiter.Candidates).Msg("arbitration needs a ChatGPT key and two usable candidates, disabled")
		return chain
	}
	logger.Debug().Strs("candidates", arbiter.Candidates()).Msg("arbitration enabled")

	return append([]pagetran.Provider{arbiter}, chain...)
}
