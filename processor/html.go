package processor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/pagetran"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// HTMLProcessor extracts translatable spans from HTML and splices
// translations back into the original bytes.
type HTMLProcessor struct {
	ignoredTags map[string]bool
	attrs       map[string]bool
	selectors   []string
	matchers    []cascadia.Selector
	setLang     bool
}

// Option is a functional option for configuring the HTMLProcessor.
type Option func(*HTMLProcessor)

// WithIgnoredTags replaces the set of elements whose content is never translated.
func WithIgnoredTags(tags ...string) Option {
	return func(p *HTMLProcessor) {
		p.ignoredTags = make(map[string]bool)
		for _, tag := range tags {
			p.ignoredTags[strings.ToLower(tag)] = true
		}
	}
}

// WithTranslatableAttrs replaces the attribute allow-list.
func WithTranslatableAttrs(attrs ...string) Option {
	return func(p *HTMLProcessor) {
		p.attrs = make(map[string]bool)
		for _, attr := range attrs {
			p.attrs[strings.ToLower(attr)] = true
		}
	}
}

// WithSkipSelectors adds CSS selectors whose matching elements are skipped.
func WithSkipSelectors(selectors ...string) Option {
	return func(p *HTMLProcessor) {
		p.selectors = append(p.selectors, selectors...)
	}
}

// WithLangAttr enables updating lang and dir on the <html> element.
func WithLangAttr(enabled bool) Option {
	return func(p *HTMLProcessor) {
		p.setLang = enabled
	}
}

// NewHTMLProcessor creates a new HTML processor with default ignored tags
// and attribute allow-list.
func NewHTMLProcessor(opts ...Option) (*HTMLProcessor, error) {
	p := &HTMLProcessor{
		ignoredTags: pagetran.IgnoredTags,
	}
	WithTranslatableAttrs(pagetran.TranslatableAttrs...)(p)

	for _, opt := range opts {
		opt(p)
	}

	for _, sel := range p.selectors {
		m, err := cascadia.Compile(sel)
		if err != nil {
			return nil, &pagetran.ConfigError{Message: fmt.Sprintf("invalid skip selector %q", sel), Cause: err}
		}
		p.matchers = append(p.matchers, m)
	}

	return p, nil
}

// Extract parses src and returns its translatable spans in document order.
func (p *HTMLProcessor) Extract(path string, src []byte) (*pagetran.Document, error) {
	parsed, err := parseTree(path, src)
	if err != nil {
		return nil, err
	}

	skipped := make(map[*html.Node]bool)
	if len(p.matchers) > 0 {
		doc := goquery.NewDocumentFromNode(parsed.root)
		for _, m := range p.matchers {
			doc.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
				for _, n := range s.Nodes {
					skipped[n] = true
				}
			})
		}
	}

	var spans []*pagetran.Span

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if p.skip(n) || skipped[n] {
				return
			}
			spans = append(spans, p.attrSpans(src, parsed, n)...)

		case html.TextNode:
			if n.Parent != nil && literalTextElements[n.Parent.Data] {
				return
			}
			if span := textSpan(src, parsed, n); span != nil {
				span.Context = p.buildContext(n)
				spans = append(spans, span)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(parsed.root)

	return &pagetran.Document{
		Path:   path,
		Source: src,
		Root:   parsed.root,
		Spans:  spans,
		Parsed: parsed,
	}, nil
}

// skip reports whether the subtree rooted at n is excluded from translation.
func (p *HTMLProcessor) skip(n *html.Node) bool {
	if p.ignoredTags[n.Data] {
		return true
	}
	for _, attr := range n.Attr {
		switch attr.Key {
		case "data-no-translate":
			return true
		case "translate":
			if strings.EqualFold(strings.TrimSpace(attr.Val), "no") {
				return true
			}
		}
	}
	return false
}

func (p *HTMLProcessor) attrSpans(src []byte, parsed *parsedHTML, n *html.Node) []*pagetran.Span {
	r, ok := parsed.ranges[n]
	if !ok {
		return nil
	}
	_, raws := scanAttrs(src[r.start:r.end])
	if len(raws) != len(n.Attr) {
		return nil
	}

	var spans []*pagetran.Span
	for i, attr := range n.Attr {
		if !p.attrs[attr.Key] {
			continue
		}
		text := strings.TrimSpace(attr.Val)
		if text == "" {
			continue
		}
		ra := raws[i]
		start, end := trimRange(src, r.start+ra.valStart, r.start+ra.valEnd)
		spans = append(spans, &pagetran.Span{
			Kind:    pagetran.SpanAttr,
			Node:    n,
			Attr:    attr.Key,
			Text:    text,
			Hash:    pagetran.HashText(text),
			Context: fmt.Sprintf("%s attribute of <%s>", attr.Key, n.Data),
			Start:   start,
			End:     end,
			Quote:   ra.quote,
		})
	}
	return spans
}

func textSpan(src []byte, parsed *parsedHTML, n *html.Node) *pagetran.Span {
	text := strings.TrimSpace(n.Data)
	if text == "" {
		return nil
	}
	r, ok := parsed.ranges[n]
	if !ok {
		return nil
	}
	start, end := trimRange(src, r.start, r.end)
	return &pagetran.Span{
		Kind:  pagetran.SpanText,
		Node:  n,
		Text:  text,
		Hash:  pagetran.HashText(text),
		Start: start,
		End:   end,
	}
}

// trimRange narrows [start, end) to drop the leading and trailing characters
// that strings.TrimSpace removes from the decoded value. A character
// reference counts as the character it decodes to, so an edge &nbsp; stays
// outside the range.
func trimRange(src []byte, start, end int) (int, int) {
	type unit struct {
		start, end int
		space      bool
	}

	var units []unit
	for i := start; i < end; {
		n := refLen(src[i:end])
		var decoded string
		if n > 0 {
			decoded = html.UnescapeString(string(src[i : i+n]))
		} else {
			_, n = utf8.DecodeRune(src[i:end])
			decoded = string(src[i : i+n])
		}
		units = append(units, unit{start: i, end: i + n, space: strings.TrimSpace(decoded) == ""})
		i += n
	}

	lo, hi := 0, len(units)
	for lo < hi && units[lo].space {
		lo++
	}
	for hi > lo && units[hi-1].space {
		hi--
	}
	if lo == hi {
		return start, start
	}
	return units[lo].start, units[hi-1].end
}

// refLen returns the length of the character reference at the start of b,
// or 0 when b does not start with one.
func refLen(b []byte) int {
	if len(b) < 2 || b[0] != '&' {
		return 0
	}

	i := 1
	if b[i] == '#' {
		i++
		hex := i < len(b) && (b[i] == 'x' || b[i] == 'X')
		if hex {
			i++
		}
		digits := i
		for i < len(b) && (isDigit(b[i]) || hex && isHexLetter(b[i])) {
			i++
		}
		if i == digits {
			return 0
		}
	} else {
		for i < len(b) && (isDigit(b[i]) || isLetter(b[i])) {
			i++
		}
		if i == 1 {
			return 0
		}
	}

	if i < len(b) && b[i] == ';' {
		i++
	}
	return i
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isLetter(c byte) bool { return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }

func isHexLetter(c byte) bool { return 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' }

// buildContext creates a disambiguation context string for a text node.
func (p *HTMLProcessor) buildContext(n *html.Node) string {
	var parts []string

	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		parent := n.Parent
		tag := parent.Data

		// Get class or id if available
		var classAttr, idAttr string
		for _, attr := range parent.Attr {
			if attr.Key == "class" {
				classAttr = attr.Val
			} else if attr.Key == "id" {
				idAttr = attr.Val
			}
		}

		if classAttr != "" {
			parts = append(parts, fmt.Sprintf("in <%s class=\"%s\">", tag, classAttr))
		} else if idAttr != "" {
			parts = append(parts, fmt.Sprintf("in <%s id=\"%s\">", tag, idAttr))
		} else {
			parts = append(parts, fmt.Sprintf("in <%s>", tag))
		}

		// Get sibling text (up to 3 items)
		var siblings []string
		for sib := parent.FirstChild; sib != nil; sib = sib.NextSibling {
			if sib == n || sib.Type != html.TextNode {
				continue
			}
			sibText := strings.TrimSpace(sib.Data)
			if sibText != "" && len(sibText) < 100 {
				siblings = append(siblings, sibText)
			}
		}
		if len(siblings) > 3 {
			siblings = siblings[:3]
		}
		if len(siblings) > 0 {
			parts = append(parts, fmt.Sprintf("with: %s", strings.Join(siblings, ", ")))
		}

		// Get ancestor path (up to 3 levels)
		var ancestors []string
		ancestor := parent.Parent
		for i := 0; i < 3 && ancestor != nil; i++ {
			if ancestor.Type == html.ElementNode {
				name := ancestor.Data
				if name != "html" && name != "body" {
					ancestors = append(ancestors, name)
				}
			}
			ancestor = ancestor.Parent
		}
		if len(ancestors) > 0 {
			// Reverse to show outer to inner
			for i, j := 0, len(ancestors)-1; i < j; i, j = i+1, j-1 {
				ancestors[i], ancestors[j] = ancestors[j], ancestors[i]
			}
			parts = append(parts, fmt.Sprintf("inside: %s", strings.Join(ancestors, " > ")))
		}
	}

	return strings.Join(parts, " | ")
}

// Verify HTMLProcessor implements Processor
var _ pagetran.Processor = (*HTMLProcessor)(nil)
