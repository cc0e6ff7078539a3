package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/pagetran"
	"github.com/sashabaranov/go-openai"
)

// ChatGPTProvider implements Provider using OpenAI's chat completion API.
type ChatGPTProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// ChatGPTConfig holds configuration for the ChatGPT provider.
type ChatGPTConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewChatGPTProvider creates a new ChatGPT provider.
func NewChatGPTProvider(cfg ChatGPTConfig) *ChatGPTProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &ChatGPTProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Name returns "chatgpt".
func (p *ChatGPTProvider) Name() string {
	return "chatgpt"
}

// Limits returns the request bounds used for chat completion batches.
func (p *ChatGPTProvider) Limits() BatchLimits {
	return BatchLimits{MaxItems: 40, MaxChars: 8000}
}

// Supports accepts any valid language tag.
func (p *ChatGPTProvider) Supports(lang string) bool {
	_, err := pagetran.ParseLanguage(lang)
	return err == nil
}

// Translate translates a batch of texts using a chat completion.
func (p *ChatGPTProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	systemPrompt := p.buildSystemPrompt(req)
	userMessage := p.buildUserMessage(req)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(p.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return nil, malformedError(p.Name(), "no choices in response", nil)
	}

	return p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
}

func (p *ChatGPTProvider) buildSystemPrompt(req TranslateRequest) string {
	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = "en"
	}

	sourceName := pagetran.GetLanguageName(sourceLang)
	targetName := pagetran.GetLanguageName(req.TargetLang)
	localeHint := pagetran.GetLocaleClarification(req.TargetLang)
	styleDesc := pagetran.GetStyleDescription(req.Style)

	contextText := "The content is text taken from web pages."
	if req.Context != "" {
		contextText = fmt.Sprintf("The content is for: %s. Adapt the tone to be appropriate for this context.", req.Context)
	}

	prompt := fmt.Sprintf(`# Role
You are an expert native translator. You translate %s web content to %s with the fluency and nuance of a highly educated native speaker.

# Context
%s

# Register
%s

# Task
Translate the provided texts into idiomatic %s. Each input string is the text of one HTML node or attribute value.

# Style Guide
- **Natural Flow**: Avoid literal translations. Rephrase sentences to sound completely natural to a native speaker.
- **Vocabulary**: Use precise, culturally relevant terminology.
- **Idioms**: Never translate idioms literally. Replace them with natural %s equivalents.
- **Code Safety**: Do NOT translate URLs, email addresses, or content inside backticks.
- **Interpolation**: Do NOT translate variables or placeholders (e.g., {{name}}, {count}, %%s, $1).
- **Formatting**: Keep each string as plain text. Do not add markup, quotes or notes.`, sourceName, targetName, contextText, styleDesc, targetName, targetName)

	if localeHint != "" {
		prompt += fmt.Sprintf("\n- **Locale**: %s", localeHint)
	}

	prompt += `

# Format
Return a valid JSON object with a single key "translations" containing an array of strings in the exact same order as the input, one output string per input string.
Example: { "translations": ["translated string 1", "translated string 2"] }
- Do NOT wrap in Markdown code blocks.
- Do NOT merge or split strings.`

	if len(req.ExcludedTerms) > 0 {
		terms := strings.Join(req.ExcludedTerms, "\n- ")
		prompt += fmt.Sprintf("\n\n# Exclusions\nDo NOT translate the following terms. Keep them exactly as they appear in the source:\n- %s", terms)
	}

	return prompt
}

func (p *ChatGPTProvider) buildUserMessage(req TranslateRequest) string {
	hasContexts := false
	for _, ctx := range req.TextContexts {
		if ctx != "" {
			hasContexts = true
			break
		}
	}

	if !hasContexts {
		data, _ := json.Marshal(req.Texts)
		return string(data)
	}

	// Object format with contexts
	type item struct {
		Text    string `json:"text"`
		Context string `json:"context,omitempty"`
	}

	items := make([]item, len(req.Texts))
	for i, text := range req.Texts {
		items[i].Text = text
		if i < len(req.TextContexts) {
			items[i].Context = req.TextContexts[i]
		}
	}

	data, _ := json.Marshal(map[string][]item{"items": items})
	return string(data)
}

func (p *ChatGPTProvider) parseResponse(content string, expectedCount int) ([]string, error) {
	var obj struct {
		Translations []json.RawMessage `json:"translations"`
	}
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, malformedError(p.Name(), "response is not a JSON object", err)
	}
	if obj.Translations == nil {
		return nil, malformedError(p.Name(), `response has no "translations" array`, nil)
	}

	if err := checkCount(p.Name(), expectedCount, len(obj.Translations)); err != nil {
		return nil, err
	}

	out := make([]string, len(obj.Translations))
	for i, raw := range obj.Translations {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, malformedError(p.Name(), fmt.Sprintf("translation %d is not a string", i), err)
		}
	}
	return out, nil
}

// classifyOpenAIError maps a go-openai client error to a ProviderError.
func classifyOpenAIError(provider string, err error) error {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
	)

	kind := pagetran.KindNetwork
	switch {
	case errors.As(err, &apiErr):
		kind = statusKind(apiErr.HTTPStatusCode)
		if kind == "" {
			kind = pagetran.KindMalformedResponse
			if apiErr.HTTPStatusCode == 404 {
				kind = pagetran.KindAuthFailed
			}
		}
	case errors.As(err, &reqErr):
		if k := statusKind(reqErr.HTTPStatusCode); k != "" {
			kind = k
		}
	}

	return &pagetran.ProviderError{
		Provider: provider,
		Kind:     kind,
		Message:  "chat completion failed",
		Cause:    err,
	}
}

// Verify ChatGPTProvider implements Provider
var _ Provider = (*ChatGPTProvider)(nil)
