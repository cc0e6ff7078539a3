package processor

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/ZaguanLabs/pagetran"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tokenRange is the raw byte range of a token in the source.
type tokenRange struct {
	start int
	end   int
}

// parsedHTML holds the tree built from the token stream and the source
// range of every text node and element start tag.
type parsedHTML struct {
	root    *html.Node
	ranges  map[*html.Node]tokenRange
	htmlTag *html.Node
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// rawTextElements switch the tokenizer into raw text mode even when written
// as self-closing.
var rawTextElements = map[string]bool{
	"iframe": true, "noembed": true, "noframes": true, "noscript": true,
	"plaintext": true, "script": true, "style": true, "textarea": true,
	"title": true, "xmp": true,
}

// literalTextElements hold raw text that is never entity-decoded, so escaped
// translations would render as markup. Their text is never a span.
var literalTextElements = map[string]bool{
	"iframe": true, "noembed": true, "noframes": true, "noscript": true,
	"plaintext": true, "script": true, "style": true, "xmp": true,
}

// optionalEnd lists elements whose end tag may be omitted at EOF.
var optionalEnd = map[string]bool{
	"html": true, "head": true, "body": true, "p": true, "li": true,
	"dt": true, "dd": true, "option": true, "optgroup": true, "tr": true,
	"td": true, "th": true, "thead": true, "tbody": true, "tfoot": true,
	"colgroup": true, "caption": true, "rt": true, "rp": true,
}

var closesP = map[string]bool{"p": true}

// impliedEnd maps a start tag to the open elements it closes when they are
// the current element.
var impliedEnd = map[string]map[string]bool{
	"body":     {"head": true},
	"li":       {"li": true, "p": true},
	"dt":       {"dt": true, "dd": true, "p": true},
	"dd":       {"dt": true, "dd": true, "p": true},
	"tr":       {"td": true, "th": true, "tr": true},
	"td":       {"td": true, "th": true},
	"th":       {"td": true, "th": true},
	"thead":    {"td": true, "th": true, "tr": true, "tbody": true, "tfoot": true, "caption": true, "colgroup": true},
	"tbody":    {"td": true, "th": true, "tr": true, "thead": true, "tfoot": true, "caption": true, "colgroup": true},
	"tfoot":    {"td": true, "th": true, "tr": true, "thead": true, "tbody": true, "caption": true, "colgroup": true},
	"option":   {"option": true},
	"optgroup": {"option": true, "optgroup": true},
	"rt":       {"rt": true, "rp": true},
	"rp":       {"rt": true, "rp": true},
	"p":        closesP, "div": closesP, "ul": closesP, "ol": closesP, "dl": closesP,
	"table": closesP, "h1": closesP, "h2": closesP, "h3": closesP, "h4": closesP,
	"h5": closesP, "h6": closesP, "section": closesP, "article": closesP,
	"header": closesP, "footer": closesP, "nav": closesP, "aside": closesP,
	"main": closesP, "form": closesP, "blockquote": closesP, "pre": closesP,
	"figure": closesP, "fieldset": closesP, "address": closesP, "hr": closesP,
}

type treeBuilder struct {
	path   string
	stack  []*html.Node
	parsed *parsedHTML
}

// parseTree tokenizes src and builds a node tree from the tokens. Malformed
// input that a browser would silently repair is reported as a ParseError.
func parseTree(path string, src []byte) (*parsedHTML, error) {
	if !utf8.Valid(src) {
		return nil, &pagetran.ParseError{Path: path, Message: "input is not valid UTF-8"}
	}

	root := &html.Node{Type: html.DocumentNode}
	b := &treeBuilder{
		path:  path,
		stack: []*html.Node{root},
		parsed: &parsedHTML{
			root:   root,
			ranges: make(map[*html.Node]tokenRange),
		},
	}

	z := html.NewTokenizer(bytes.NewReader(src))
	off := 0
	for {
		tt := z.Next()
		start := off
		off += len(z.Raw())
		raw := src[start:off]

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, &pagetran.ParseError{Path: path, Message: "tokenizer failed", Cause: err}
			}
			if len(raw) > 0 {
				return nil, b.errorf("unterminated tag at byte %d", start)
			}
			return b.finish()

		case html.TextToken:
			n := &html.Node{Type: html.TextNode, Data: string(z.Text())}
			b.append(n, start, off)

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup(name)}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				n.Attr = append(n.Attr, html.Attribute{Key: string(key), Val: string(val)})
			}

			b.implyEnd(tag)
			b.append(n, start, off)
			if tag == "html" && b.parsed.htmlTag == nil {
				b.parsed.htmlTag = n
			}
			if (tt == html.StartTagToken && !voidElements[tag]) || rawTextElements[tag] {
				b.stack = append(b.stack, n)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			b.close(string(name))

		case html.CommentToken:
			if !commentClosed(raw) {
				return nil, b.errorf("unterminated comment at byte %d", start)
			}
			b.append(&html.Node{Type: html.CommentNode, Data: string(z.Text())}, start, off)

		case html.DoctypeToken:
			if !bytes.HasSuffix(raw, []byte(">")) {
				return nil, b.errorf("unterminated doctype at byte %d", start)
			}
			b.append(&html.Node{Type: html.DoctypeNode, Data: string(z.Text())}, start, off)
		}
	}
}

func (b *treeBuilder) errorf(format string, args ...interface{}) error {
	return &pagetran.ParseError{Path: b.path, Message: fmt.Sprintf(format, args...)}
}

func (b *treeBuilder) current() *html.Node {
	return b.stack[len(b.stack)-1]
}

func (b *treeBuilder) append(n *html.Node, start, end int) {
	b.current().AppendChild(n)
	b.parsed.ranges[n] = tokenRange{start: start, end: end}
}

func (b *treeBuilder) implyEnd(tag string) {
	closes := impliedEnd[tag]
	for len(b.stack) > 1 && closes[b.current().Data] {
		b.stack = b.stack[:len(b.stack)-1]
	}
}

// close pops the innermost open element named tag and everything above it.
// Stray end tags are ignored.
func (b *treeBuilder) close(tag string) {
	for i := len(b.stack) - 1; i > 0; i-- {
		if b.stack[i].Data == tag {
			b.stack = b.stack[:i]
			return
		}
	}
}

func (b *treeBuilder) finish() (*parsedHTML, error) {
	for i := len(b.stack) - 1; i > 0; i-- {
		tag := b.stack[i].Data
		if rawTextElements[tag] {
			return nil, b.errorf("unterminated <%s> element", tag)
		}
		if !optionalEnd[tag] {
			return nil, b.errorf("unclosed <%s> element", tag)
		}
	}
	return b.parsed, nil
}

func commentClosed(raw []byte) bool {
	if bytes.HasPrefix(raw, []byte("<!--")) {
		switch string(raw) {
		case "<!-->", "<!--->":
			return true
		}
		return bytes.HasSuffix(raw, []byte("-->")) || bytes.HasSuffix(raw, []byte("--!>"))
	}
	return bytes.HasSuffix(raw, []byte(">"))
}

// attached reports whether n is still reachable from root.
func attached(n, root *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}
