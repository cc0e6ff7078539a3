package pagetran

import (
	"context"

	"golang.org/x/net/html"
)

// TranslationStyle controls the tone and formality of translations.
type TranslationStyle string

const (
	// StyleFormal uses formal, professional language suitable for official documents.
	StyleFormal TranslationStyle = "formal"
	// StyleNeutral uses a neutral, professional tone suitable for general content.
	StyleNeutral TranslationStyle = "neutral"
	// StyleCasual uses casual, conversational language suitable for blogs/social media.
	StyleCasual TranslationStyle = "casual"
	// StyleMarketing uses persuasive, engaging language for promotional content.
	StyleMarketing TranslationStyle = "marketing"
	// StyleTechnical uses precise, technical language for documentation.
	StyleTechnical TranslationStyle = "technical"
)

// SpanKind identifies what part of the document a Span refers to.
type SpanKind string

const (
	// SpanText is the content of a text node.
	SpanText SpanKind = "node_text"
	// SpanAttr is the value of an allow-listed attribute.
	SpanAttr SpanKind = "attribute_value"
)

// Span is one translatable unit of a Document. It refers to the tree node
// it came from rather than holding a copy of the markup around it.
type Span struct {
	Kind    SpanKind
	Node    *html.Node // Text node, or the element carrying Attr
	Attr    string     // Attribute name (SpanAttr only)
	Text    string     // Original text, trimmed
	Hash    string     // SHA-256 of Text
	Context string     // Disambiguation hint for AI providers

	// Start and End delimit the source bytes replaced on rewrite. For text
	// spans the range excludes leading and trailing whitespace.
	Start int
	End   int
	Quote byte // Attribute quote character, 0 when unquoted

	translation string
	translated  bool
}

// SetTranslation records the translated string for the span.
func (s *Span) SetTranslation(text string) {
	s.translation = text
	s.translated = true
}

// Translation returns the translated string and whether one was set.
func (s *Span) Translation() (string, bool) {
	return s.translation, s.translated
}

// Document is the in-memory form of one input file.
type Document struct {
	Path       string
	Source     []byte
	Root       *html.Node
	Spans      []*Span
	TargetLang string // Set by the pipeline before rewriting

	// Parsed holds processor-specific state needed by Rewrite.
	Parsed interface{}
}

// Texts returns the original text of every span in document order.
func (d *Document) Texts() []string {
	texts := make([]string, len(d.Spans))
	for i, s := range d.Spans {
		texts[i] = s.Text
	}
	return texts
}

// Processor turns source bytes into a Document and back.
type Processor interface {
	Extract(path string, src []byte) (*Document, error)
	Rewrite(doc *Document) ([]byte, error)
}

// BatchLimits bounds the size of one remote call. Zero means unlimited.
type BatchLimits struct {
	MaxItems int // Maximum strings per request
	MaxChars int // Maximum cumulative characters per request
}

// Provider is the interface for remote translation backends.
type Provider interface {
	Name() string
	Limits() BatchLimits
	Supports(lang string) bool
	Translate(ctx context.Context, req TranslateRequest) ([]string, error)
}

// TranslateRequest contains the parameters for a translation request.
type TranslateRequest struct {
	Texts         []string
	TargetLang    string
	SourceLang    string
	ExcludedTerms []string
	Context       string
	TextContexts  []string
	Style         TranslationStyle
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// RTLLanguages contains language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
}

// IgnoredTags contains HTML tags whose content should not be translated.
var IgnoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"code":     true,
	"pre":      true,
	"textarea": true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"math":     true,
}

// TranslatableAttrs contains the attributes whose values are translated by default.
var TranslatableAttrs = []string{"alt", "title", "placeholder", "aria-label"}
