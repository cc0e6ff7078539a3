package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/ZaguanLabs/pagetran"
)

// LibreProvider implements Provider using one or more LibreTranslate servers.
// Each call tries the servers in random order until one succeeds.
type LibreProvider struct {
	servers []string
	apiKey  string
	client  *http.Client
	shuffle func(n int, swap func(i, j int))
}

// PublicLibreServers are community LibreTranslate instances, used only when
// asked for and no server is configured.
var PublicLibreServers = []string{
	"https://translate.argosopentech.com",
	"https://libretranslate.de",
	"https://libretranslate.terraprint.co",
	"https://lt.vern.cc",
	"https://trans.zillyhuhn.com",
}

// LibreConfig holds configuration for the LibreTranslate provider.
type LibreConfig struct {
	Servers    []string     // Server base URLs
	APIKey     string       // Optional API key
	HTTPClient *http.Client // Custom client (optional)
}

// NewLibreProvider creates a LibreTranslate provider. It returns nil when no
// server is configured.
func NewLibreProvider(cfg LibreConfig) *LibreProvider {
	var servers []string
	for _, s := range cfg.Servers {
		if s = strings.TrimRight(strings.TrimSpace(s), "/"); s != "" {
			servers = append(servers, s)
		}
	}
	if len(servers) == 0 {
		return nil
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &LibreProvider{
		servers: servers,
		apiKey:  cfg.APIKey,
		client:  client,
		shuffle: rand.Shuffle,
	}
}

// Name returns "libre".
func (p *LibreProvider) Name() string {
	return "libre"
}

// Limits returns the LibreTranslate request bounds.
func (p *LibreProvider) Limits() BatchLimits {
	return BatchLimits{MaxItems: 25, MaxChars: 5000}
}

// Supports accepts any valid language tag; servers report unknown
// languages per call.
func (p *LibreProvider) Supports(lang string) bool {
	_, err := pagetran.ParseLanguage(lang)
	return err == nil
}

// Servers returns the configured server URLs.
func (p *LibreProvider) Servers() []string {
	return p.servers
}

type libreRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText []string `json:"translatedText"`
}

// Translate translates a batch of texts, trying each server in turn.
func (p *LibreProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	source := "auto"
	if req.SourceLang != "" {
		source = pagetran.BaseLanguage(req.SourceLang)
	}

	body, err := json.Marshal(libreRequest{
		Q:      req.Texts,
		Source: source,
		Target: pagetran.BaseLanguage(req.TargetLang),
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return nil, err
	}

	order := make([]string, len(p.servers))
	copy(order, p.servers)
	p.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var failures []error
	for _, server := range order {
		out, err := p.translateOn(ctx, server, body, len(req.Texts))
		if err == nil {
			return out, nil
		}
		failures = append(failures, err)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, &pagetran.ProviderError{
		Provider: p.Name(),
		Kind:     commonKind(failures),
		Message:  fmt.Sprintf("all %d servers failed", len(failures)),
		Cause:    errors.Join(failures...),
	}
}

func (p *LibreProvider) translateOn(ctx context.Context, server string, body []byte, expected int) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, networkError(p.Name(), server, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", pagetran.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, networkError(p.Name(), server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		perr := statusError(p.Name(), resp, "language")
		perr.Message = server + ": " + perr.Message
		return nil, perr
	}

	var decoded libreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, malformedError(p.Name(), server+": failed to decode response", err)
	}
	if err := checkCount(p.Name(), expected, len(decoded.TranslatedText)); err != nil {
		return nil, err
	}
	return decoded.TranslatedText, nil
}

// commonKind returns the kind shared by every failure, or network when the
// servers failed in different ways.
func commonKind(failures []error) pagetran.ErrorKind {
	kind := pagetran.KindNetwork
	for i, err := range failures {
		k := pagetran.ErrorKindOf(err)
		if i == 0 {
			kind = k
		} else if k != kind {
			return pagetran.KindNetwork
		}
	}
	if kind == "" {
		return pagetran.KindNetwork
	}
	return kind
}

// Verify LibreProvider implements Provider
var _ Provider = (*LibreProvider)(nil)
