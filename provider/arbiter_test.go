package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ZaguanLabs/pagetran"
)

// judgeServer answers every chat completion with content and records the
// user message of the last request.
func judgeServer(t *testing.T, content string) (*httptest.Server, *int32, *string) {
	t.Helper()
	var calls int32
	var lastUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		for _, m := range req.Messages {
			if m.Role == "user" {
				lastUser = m.Content
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completion(content)))
	}))
	t.Cleanup(server.Close)
	return server, &calls, &lastUser
}

func newJudge(server *httptest.Server) *ChatGPTProvider {
	return NewChatGPTProvider(ChatGPTConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
}

func libreMock() *MockProvider {
	return &MockProvider{
		ProviderName: "libre",
		Translations: map[string]string{"Hello": "Salut", "World": "Monde"},
		BatchLimits:  BatchLimits{MaxItems: 25, MaxChars: 5000},
	}
}

func TestNewArbiterProvider_RequiresJudgeAndTwoCandidates(t *testing.T) {
	server, _, _ := judgeServer(t, `{"choices": []}`)
	judge := newJudge(server)

	if NewArbiterProvider(nil, NewMockProvider(), libreMock()) != nil {
		t.Error("Expected nil without a judge")
	}
	if NewArbiterProvider(judge, NewMockProvider(), nil) != nil {
		t.Error("Expected nil with a single candidate")
	}

	p := NewArbiterProvider(judge, NewMockProvider(), libreMock())
	if p == nil || p.Name() != "arbiter" {
		t.Fatal("Expected arbiter over two candidates")
	}
	if got := strings.Join(p.Candidates(), ","); got != "mock,libre" {
		t.Errorf("Unexpected candidates %q", got)
	}
}

func TestArbiterProvider_Metadata(t *testing.T) {
	server, _, _ := judgeServer(t, `{"choices": []}`)
	deepl := &MockProvider{ProviderName: "deepl", Unsupported: map[string]bool{"sw": true}, BatchLimits: BatchLimits{MaxItems: 50, MaxChars: 30000}}
	p := NewArbiterProvider(newJudge(server), deepl, libreMock())

	if l := p.Limits(); l.MaxItems != 25 || l.MaxChars != 5000 {
		t.Errorf("Expected the tightest limits, got %+v", l)
	}
	if !p.Supports("fr") || p.Supports("sw") {
		t.Error("Every candidate must support the language")
	}
}

func TestArbiterProvider_AgreementSkipsJudge(t *testing.T) {
	server, calls, _ := judgeServer(t, `{"choices": [0]}`)
	same := &MockProvider{ProviderName: "deepl", Translations: map[string]string{"World": "Monde"}}
	p := NewArbiterProvider(newJudge(server), same, libreMock())

	out, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"World"}, TargetLang: "fr"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(out) != 1 || out[0] != "Monde" {
		t.Errorf("Unexpected output %v", out)
	}
	if *calls != 0 {
		t.Errorf("Judge should not be asked when candidates agree, got %d calls", *calls)
	}
}

func TestArbiterProvider_JudgePicksDisputedTexts(t *testing.T) {
	server, calls, lastUser := judgeServer(t, `{"choices": [1]}`)
	p := NewArbiterProvider(newJudge(server), NewMockProvider(), libreMock())

	out, err := p.Translate(context.Background(), TranslateRequest{
		Texts:        []string{"Hello", "World"},
		TextContexts: []string{"in <h1>", "in <p>"},
		TargetLang:   "fr",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if len(out) != 2 || out[0] != "Salut" || out[1] != "Monde" {
		t.Errorf("Unexpected output %v", out)
	}
	if *calls != 1 {
		t.Errorf("Expected one judge call, got %d", *calls)
	}
	for _, want := range []string{`"text":"Hello"`, `"Bonjour"`, `"Salut"`, `"context":"in <h1>"`} {
		if !strings.Contains(*lastUser, want) {
			t.Errorf("Judge request should contain %s, got %s", want, *lastUser)
		}
	}
	if strings.Contains(*lastUser, "World") {
		t.Errorf("Undisputed texts should not reach the judge: %s", *lastUser)
	}
}

func TestArbiterProvider_MalformedChoices(t *testing.T) {
	tests := map[string]string{
		"not json":     `pick the second`,
		"no choices":   `{"translations": ["Salut"]}`,
		"out of range": `{"choices": [2]}`,
		"negative":     `{"choices": [-1]}`,
		"not integer":  `{"choices": ["1"]}`,
		"too many":     `{"choices": [0, 1]}`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			server, _, _ := judgeServer(t, content)
			p := NewArbiterProvider(newJudge(server), NewMockProvider(), libreMock())

			_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: "fr"})
			if pagetran.ErrorKindOf(err) != pagetran.KindMalformedResponse {
				t.Errorf("Expected malformed_response, got: %v", err)
			}
		})
	}
}

func TestArbiterProvider_JudgeUnauthorized(t *testing.T) {
	server := chatServer(t, http.StatusUnauthorized, `{"error": {"message": "bad key"}}`)
	p := NewArbiterProvider(newJudge(server), NewMockProvider(), libreMock())

	_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: "fr"})
	if pagetran.ErrorKindOf(err) != pagetran.KindAuthFailed {
		t.Errorf("Expected auth_failed, got: %v", err)
	}
}

func TestArbiterProvider_FailedCandidateLeftOut(t *testing.T) {
	server, calls, _ := judgeServer(t, `{"choices": [0]}`)
	broken := NewMockProvider()
	broken.ProviderName = "deepl"
	broken.Failures = []error{FailWith("deepl", pagetran.KindNetwork)}
	p := NewArbiterProvider(newJudge(server), broken, libreMock())

	out, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: "fr"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out[0] != "Salut" || *calls != 0 {
		t.Errorf("Expected the remaining candidate without judging, got %v after %d calls", out, *calls)
	}
}

func TestArbiterProvider_MisalignedCandidateLeftOut(t *testing.T) {
	server, _, _ := judgeServer(t, `{"choices": [0]}`)
	short := &shortProvider{}
	p := NewArbiterProvider(newJudge(server), short, libreMock())

	out, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello", "World"}, TargetLang: "fr"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(out) != 2 || out[0] != "Salut" {
		t.Errorf("Unexpected output %v", out)
	}
}

func TestArbiterProvider_AllCandidatesFail(t *testing.T) {
	server, _, _ := judgeServer(t, `{"choices": [0]}`)
	a := &MockProvider{ProviderName: "deepl", Failures: []error{FailWith("deepl", pagetran.KindRateLimited)}}
	b := &MockProvider{ProviderName: "libre", Failures: []error{FailWith("libre", pagetran.KindNetwork)}}
	p := NewArbiterProvider(newJudge(server), a, b)

	_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: "fr"})
	if pagetran.ErrorKindOf(err) != pagetran.KindRateLimited {
		t.Errorf("Expected the first candidate's kind, got: %v", err)
	}
	if !strings.Contains(err.Error(), "libre") {
		t.Errorf("Every candidate failure should be reported: %v", err)
	}
}

// shortProvider always drops the last text.
type shortProvider struct{}

func (shortProvider) Name() string         { return "short" }
func (shortProvider) Limits() BatchLimits  { return BatchLimits{} }
func (shortProvider) Supports(string) bool { return true }
func (shortProvider) Translate(_ context.Context, req TranslateRequest) ([]string, error) {
	return req.Texts[:len(req.Texts)-1], nil
}
