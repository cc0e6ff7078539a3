package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/pagetran"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// ArbiterProvider asks several providers for candidate translations and lets
// ChatGPT pick the best one wherever they disagree.
type ArbiterProvider struct {
	candidates []Provider
	judge      *ChatGPTProvider
}

// NewArbiterProvider returns an arbiter over candidates in preference order.
// It returns nil without a judge or with fewer than two candidates.
func NewArbiterProvider(judge *ChatGPTProvider, candidates ...Provider) *ArbiterProvider {
	var usable []Provider
	for _, c := range candidates {
		if c != nil {
			usable = append(usable, c)
		}
	}
	if judge == nil || len(usable) < 2 {
		return nil
	}
	return &ArbiterProvider{candidates: usable, judge: judge}
}

// Name returns "arbiter".
func (p *ArbiterProvider) Name() string {
	return "arbiter"
}

// Candidates returns the names of the candidate providers.
func (p *ArbiterProvider) Candidates() []string {
	names := make([]string, len(p.candidates))
	for i, c := range p.candidates {
		names[i] = c.Name()
	}
	return names
}

// Limits returns the tightest bounds of the candidates and the judge.
func (p *ArbiterProvider) Limits() BatchLimits {
	limits := p.judge.Limits()
	for _, c := range p.candidates {
		l := c.Limits()
		if l.MaxItems > 0 && (limits.MaxItems == 0 || l.MaxItems < limits.MaxItems) {
			limits.MaxItems = l.MaxItems
		}
		if l.MaxChars > 0 && (limits.MaxChars == 0 || l.MaxChars < limits.MaxChars) {
			limits.MaxChars = l.MaxChars
		}
	}
	return limits
}

// Supports reports whether the judge and every candidate support lang.
func (p *ArbiterProvider) Supports(lang string) bool {
	if !p.judge.Supports(lang) {
		return false
	}
	for _, c := range p.candidates {
		if !c.Supports(lang) {
			return false
		}
	}
	return true
}

// Translate collects one candidate batch per provider and resolves the texts
// they disagree on. A failed candidate is left out; when only one remains its
// output is returned as is.
func (p *ArbiterProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	outputs := make([][]string, len(p.candidates))
	errs := make([]error, len(p.candidates))

	var g errgroup.Group
	for i, c := range p.candidates {
		g.Go(func() error {
			out, err := c.Translate(ctx, req)
			if err == nil {
				err = checkCount(c.Name(), len(req.Texts), len(out))
			}
			outputs[i], errs[i] = out, err
			return nil
		})
	}
	_ = g.Wait()

	var usable [][]string
	for i, out := range outputs {
		if errs[i] == nil {
			usable = append(usable, out)
		}
	}
	switch len(usable) {
	case 0:
		return nil, errors.Join(errs...)
	case 1:
		return usable[0], nil
	}

	var disputed []int
	for i := range req.Texts {
		first := strings.TrimSpace(usable[0][i])
		for _, out := range usable[1:] {
			if strings.TrimSpace(out[i]) != first {
				disputed = append(disputed, i)
				break
			}
		}
	}

	result := make([]string, len(req.Texts))
	copy(result, usable[0])
	if len(disputed) == 0 {
		return result, nil
	}

	items := make([]choiceItem, len(disputed))
	for n, i := range disputed {
		items[n] = choiceItem{Text: req.Texts[i]}
		if i < len(req.TextContexts) {
			items[n].Context = req.TextContexts[i]
		}
		for _, out := range usable {
			items[n].Candidates = append(items[n].Candidates, out[i])
		}
	}

	choices, err := p.judge.choose(ctx, req, items)
	if err != nil {
		return nil, err
	}
	for n, i := range disputed {
		result[i] = usable[choices[n]][i]
	}
	return result, nil
}

// choiceItem is one source text and its competing translations.
type choiceItem struct {
	Text       string   `json:"text"`
	Context    string   `json:"context,omitempty"`
	Candidates []string `json:"candidates"`
}

// choose asks the model for the index of the best candidate of every item.
func (p *ChatGPTProvider) choose(ctx context.Context, req TranslateRequest, items []choiceItem) ([]int, error) {
	data, err := json.Marshal(map[string][]choiceItem{"items": items})
	if err != nil {
		return nil, fmt.Errorf("encoding choices: %w", err)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildChoicePrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: string(data)},
		},
		Temperature: 0.2,
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

	return p.parseChoices(resp.Choices[0].Message.Content, items)
}

func (p *ChatGPTProvider) buildChoicePrompt(req TranslateRequest) string {
	targetName := pagetran.GetLanguageName(req.TargetLang)

	prompt := fmt.Sprintf(`# Role
You are an expert %s editor reviewing machine translations of web pages.

# Task
Each item holds a source text, an optional description of where it appears on the page, and candidate translations into %s. For every item pick the candidate that is the most accurate and natural for that place on the page.

# Format
Return a valid JSON object with a single key "choices" containing one zero-based candidate index per item, in item order.
Example: { "choices": [0, 1] }
- Do NOT wrap in Markdown code blocks.
- Do NOT rewrite the candidates.`, targetName, targetName)

	if req.Context != "" {
		prompt += fmt.Sprintf("\n\n# Site\n%s", req.Context)
	}
	if hint := pagetran.GetLocaleClarification(req.TargetLang); hint != "" {
		prompt += fmt.Sprintf("\n\n# Locale\n%s", hint)
	}
	return prompt
}

func (p *ChatGPTProvider) parseChoices(content string, items []choiceItem) ([]int, error) {
	var obj struct {
		Choices []json.RawMessage `json:"choices"`
	}
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, malformedError(p.Name(), "choice response is not a JSON object", err)
	}
	if obj.Choices == nil {
		return nil, malformedError(p.Name(), `response has no "choices" array`, nil)
	}
	if err := checkCount(p.Name(), len(items), len(obj.Choices)); err != nil {
		return nil, err
	}

	out := make([]int, len(obj.Choices))
	for i, raw := range obj.Choices {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, malformedError(p.Name(), fmt.Sprintf("choice %d is not an integer", i), err)
		}
		if out[i] < 0 || out[i] >= len(items[i].Candidates) {
			return nil, malformedError(p.Name(), fmt.Sprintf("choice %d out of range: %d", i, out[i]), nil)
		}
	}
	return out, nil
}

var _ Provider = (*ArbiterProvider)(nil)
