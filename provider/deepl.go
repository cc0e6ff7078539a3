package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ZaguanLabs/pagetran"
	"golang.org/x/text/language"
)

const (
	deeplFreeURL = "https://api-free.deepl.com"
	deeplProURL  = "https://api.deepl.com"
)

// deeplTargets lists the target languages DeepL accepts, by primary subtag.
var deeplTargets = map[string]bool{
	"ar": true, "bg": true, "cs": true, "da": true, "de": true, "el": true,
	"en": true, "es": true, "et": true, "fi": true, "fr": true, "hu": true,
	"id": true, "it": true, "ja": true, "ko": true, "lt": true, "lv": true,
	"nb": true, "nl": true, "pl": true, "pt": true, "ro": true, "ru": true,
	"sk": true, "sl": true, "sv": true, "tr": true, "uk": true, "zh": true,
}

// DeepLProvider implements Provider using the DeepL REST API.
type DeepLProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// DeepLConfig holds configuration for the DeepL provider.
type DeepLConfig struct {
	APIKey     string       // DeepL auth key; keys ending in ":fx" use the free endpoint
	BaseURL    string       // Custom base URL (optional)
	HTTPClient *http.Client // Custom client (optional)
}

// NewDeepLProvider creates a new DeepL provider.
func NewDeepLProvider(cfg DeepLConfig) *DeepLProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = deeplProURL
		if strings.HasSuffix(cfg.APIKey, ":fx") {
			baseURL = deeplFreeURL
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &DeepLProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name returns "deepl".
func (p *DeepLProvider) Name() string {
	return "deepl"
}

// Limits returns the DeepL request bounds.
func (p *DeepLProvider) Limits() BatchLimits {
	return BatchLimits{MaxItems: 50, MaxChars: 30000}
}

// Supports reports whether DeepL can translate into lang.
func (p *DeepLProvider) Supports(lang string) bool {
	return deeplTargetCode(lang) != ""
}

// BaseURL returns the endpoint the provider talks to.
func (p *DeepLProvider) BaseURL() string {
	return p.baseURL
}

type deeplRequest struct {
	Text               []string `json:"text"`
	TargetLang         string   `json:"target_lang"`
	SourceLang         string   `json:"source_lang,omitempty"`
	Context            string   `json:"context,omitempty"`
	Formality          string   `json:"formality,omitempty"`
	PreserveFormatting bool     `json:"preserve_formatting"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate translates a batch of texts using DeepL.
func (p *DeepLProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	target := deeplTargetCode(req.TargetLang)
	if target == "" {
		return nil, &pagetran.ProviderError{
			Provider: p.Name(),
			Kind:     pagetran.KindUnsupportedLang,
			Message:  "target language " + req.TargetLang + " is not supported",
		}
	}

	body, err := json.Marshal(deeplRequest{
		Text:               req.Texts,
		TargetLang:         target,
		SourceLang:         deeplSourceCode(req.SourceLang),
		Context:            req.Context,
		Formality:          deeplFormality(req.Style),
		PreserveFormatting: true,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/translate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)
	httpReq.Header.Set("User-Agent", pagetran.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, networkError(p.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(p.Name(), resp, "target_lang")
	}

	var decoded deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, malformedError(p.Name(), "failed to decode response", err)
	}

	if err := checkCount(p.Name(), len(req.Texts), len(decoded.Translations)); err != nil {
		return nil, err
	}

	out := make([]string, len(decoded.Translations))
	for i, t := range decoded.Translations {
		out[i] = t.Text
	}
	return out, nil
}

// deeplTargetCode maps a language code to the DeepL target_lang value, or
// "" when DeepL cannot translate into it.
func deeplTargetCode(lang string) string {
	tag, err := pagetran.ParseLanguage(lang)
	if err != nil {
		return ""
	}
	b, _ := tag.Base()
	base := b.String()
	region, regionConf := tag.Region()
	hasRegion := regionConf == language.Exact

	switch base {
	case "no":
		base = "nb"
	case "en":
		if hasRegion && region.String() == "GB" {
			return "EN-GB"
		}
		return "EN-US"
	case "pt":
		if hasRegion && region.String() == "BR" {
			return "PT-BR"
		}
		return "PT-PT"
	case "zh":
		if script, conf := tag.Script(); conf == language.Exact && script.String() == "Hant" {
			return "ZH-HANT"
		}
		if hasRegion && (region.String() == "TW" || region.String() == "HK") {
			return "ZH-HANT"
		}
		return "ZH-HANS"
	}

	if !deeplTargets[base] {
		return ""
	}
	return strings.ToUpper(base)
}

// deeplSourceCode maps a language code to the DeepL source_lang value.
// Source languages carry no regional variant.
func deeplSourceCode(lang string) string {
	if lang == "" {
		return ""
	}
	return strings.ToUpper(pagetran.BaseLanguage(lang))
}

func deeplFormality(style pagetran.TranslationStyle) string {
	switch style {
	case pagetran.StyleFormal:
		return "prefer_more"
	case pagetran.StyleCasual:
		return "prefer_less"
	default:
		return ""
	}
}

// Verify DeepLProvider implements Provider
var _ Provider = (*DeepLProvider)(nil)
