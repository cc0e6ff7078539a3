package processor

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ZaguanLabs/pagetran"
	"golang.org/x/net/html"
)

// edit replaces src[start:end] with text. keep edits leave the source bytes
// untouched and only take part in the overlap check.
type edit struct {
	start int
	end   int
	text  string
	span  int
	keep  bool
}

// Rewrite splices span translations into the document source. Bytes outside
// spans are copied verbatim, and a span whose translation equals its
// original text keeps its original bytes.
func (p *HTMLProcessor) Rewrite(doc *pagetran.Document) ([]byte, error) {
	parsed, ok := doc.Parsed.(*parsedHTML)
	if !ok {
		return nil, &pagetran.RewriteError{Path: doc.Path, Span: -1, Message: "document was not extracted by the HTML processor"}
	}

	src := doc.Source
	edits := make([]edit, 0, len(doc.Spans)+1)

	for i, s := range doc.Spans {
		translated, ok := s.Translation()
		if !ok {
			return nil, &pagetran.RewriteError{Path: doc.Path, Span: i, Message: "span has no translation"}
		}
		if !attached(s.Node, doc.Root) {
			return nil, &pagetran.RewriteError{Path: doc.Path, Span: i, Message: "span node is no longer attached to the document"}
		}
		if s.Start < 0 || s.End < s.Start || s.End > len(src) {
			return nil, &pagetran.RewriteError{
				Path:    doc.Path,
				Span:    i,
				Message: fmt.Sprintf("span range [%d,%d) outside source of %d bytes", s.Start, s.End, len(src)),
			}
		}

		e := edit{start: s.Start, end: s.End, span: i}
		if translated == s.Text {
			e.keep = true
		} else {
			e.text = replacement(s, translated)
		}
		edits = append(edits, e)
	}

	if p.setLang && doc.TargetLang != "" && parsed.htmlTag != nil && attached(parsed.htmlTag, doc.Root) {
		edits = append(edits, langEdits(src, parsed, doc.TargetLang)...)
	}

	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].start < edits[j].start
	})
	for i := 1; i < len(edits); i++ {
		if edits[i].start < edits[i-1].end {
			return nil, &pagetran.RewriteError{Path: doc.Path, Span: edits[i].span, Message: "span overlaps a previous span"}
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(src))
	last := 0
	for _, e := range edits {
		if e.keep {
			continue
		}
		buf.Write(src[last:e.start])
		buf.WriteString(e.text)
		last = e.end
	}
	buf.Write(src[last:])

	return buf.Bytes(), nil
}

// replacement renders a translation for the span's position in the markup.
func replacement(s *pagetran.Span, translated string) string {
	escaped := html.EscapeString(translated)
	if s.Kind == pagetran.SpanAttr && s.Quote == 0 {
		return `"` + escaped + `"`
	}
	return escaped
}

// langEdits sets lang, and dir where needed, on the <html> start tag.
func langEdits(src []byte, parsed *parsedHTML, lang string) []edit {
	r := parsed.ranges[parsed.htmlTag]
	nameEnd, attrs := scanAttrs(src[r.start:r.end])

	var edits []edit
	var insert string

	set := func(key, val string) {
		for _, a := range attrs {
			if a.key != key {
				continue
			}
			if !a.hasValue {
				edits = append(edits, edit{
					start: r.start + a.keyStart,
					end:   r.start + a.keyEnd,
					text:  fmt.Sprintf(`%s="%s"`, key, html.EscapeString(val)),
					span:  -1,
				})
				return
			}
			text := html.EscapeString(val)
			if a.quote == 0 {
				text = `"` + text + `"`
			}
			edits = append(edits, edit{start: r.start + a.valStart, end: r.start + a.valEnd, text: text, span: -1})
			return
		}
		insert += fmt.Sprintf(` %s="%s"`, key, html.EscapeString(val))
	}

	set("lang", pagetran.ToHTMLLang(lang))
	if pagetran.IsRTL(lang) {
		set("dir", "rtl")
	} else if hasAttr(attrs, "dir") {
		set("dir", "ltr")
	}

	if insert != "" {
		pos := r.start + nameEnd
		edits = append(edits, edit{start: pos, end: pos, text: insert, span: -1})
	}
	return edits
}

func hasAttr(attrs []rawAttr, key string) bool {
	for _, a := range attrs {
		if a.key == key {
			return true
		}
	}
	return false
}
