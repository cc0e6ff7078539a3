package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZaguanLabs/pagetran"
)

// MockProvider is a mock provider for testing.
type MockProvider struct {
	ProviderName string            // Name reported by Name (default "mock")
	Translations map[string]string // Map of source text to translation
	Failures     []error           // Errors returned by the first calls, in order
	Unsupported  map[string]bool   // Languages reported as unsupported
	BatchLimits  BatchLimits       // Limits reported by Limits

	mu       sync.Mutex
	requests []TranslateRequest
}

// NewMockProvider creates a new mock provider with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"Hello":                "Bonjour",
			"World":                "Monde",
			"Hello World":          "Bonjour le monde",
			"Welcome to our site.": "Bienvenue sur notre site.",
		},
	}
}

// Name returns the configured name.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Limits returns the configured limits.
func (m *MockProvider) Limits() BatchLimits {
	return m.BatchLimits
}

// Supports reports every language not listed in Unsupported.
func (m *MockProvider) Supports(lang string) bool {
	return !m.Unsupported[lang]
}

// Translate returns mock translations, or the next scripted failure.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	call := len(m.requests)
	m.mu.Unlock()

	if call <= len(m.Failures) && m.Failures[call-1] != nil {
		return nil, m.Failures[call-1]
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if translation, ok := m.Translations[text]; ok {
			results[i] = translation
		} else {
			// Return bracketed text for unknown translations
			results[i] = fmt.Sprintf("[%s]", text)
		}
	}

	return results, nil
}

// CallCount returns the number of times Translate was called.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of the requests received so far.
func (m *MockProvider) Requests() []TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TranslateRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset forgets recorded requests.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// FailWith returns a scripted provider failure of the given kind.
func FailWith(provider string, kind pagetran.ErrorKind) error {
	return &pagetran.ProviderError{Provider: provider, Kind: kind, Message: "scripted failure"}
}

// Verify MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)
