package processor

import "strings"

// rawAttr locates one attribute inside the raw bytes of a start tag.
// Offsets are relative to the start of the tag.
type rawAttr struct {
	key      string
	keyStart int
	keyEnd   int
	valStart int
	valEnd   int
	quote    byte // 0 when unquoted
	hasValue bool
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f'
}

func skipSpace(b []byte, i int) int {
	for i < len(b) && isSpace(b[i]) {
		i++
	}
	return i
}

// scanAttrs walks a raw start tag the way the tokenizer does and returns the
// end offset of the tag name and the attributes with a non-empty key, in
// source order. The result lines up index for index with the attributes
// returned by html.Tokenizer.TagAttr.
func scanAttrs(tag []byte) (int, []rawAttr) {
	n := len(tag)
	i := 1

	for i < n && !isSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' {
		i++
	}
	nameEnd := i

	var attrs []rawAttr
	i = skipSpace(tag, i)
	for i < n && tag[i] != '>' {
		a := rawAttr{keyStart: i, keyEnd: n}
		for i < n {
			c := tag[i]
			i++
			if isSpace(c) || c == '/' {
				a.keyEnd = i - 1
				break
			}
			if c == '=' && i == a.keyStart+1 {
				continue
			}
			if c == '=' || c == '>' {
				i--
				a.keyEnd = i
				break
			}
		}

		a.valStart, a.valEnd = i, i
		j := skipSpace(tag, i)
		if j < n && tag[j] == '=' {
			a.hasValue = true
			i = skipSpace(tag, j+1)
			a.valStart, a.valEnd = i, i
			if i < n {
				switch c := tag[i]; c {
				case '>':
				case '"', '\'':
					a.quote = c
					i++
					a.valStart = i
					for i < n && tag[i] != c {
						i++
					}
					a.valEnd = i
					if i < n {
						i++
					}
				default:
					for i < n && !isSpace(tag[i]) && tag[i] != '>' {
						i++
					}
					a.valEnd = i
				}
			}
		} else {
			i = j
		}

		if a.keyEnd > a.keyStart {
			a.key = strings.ToLower(string(tag[a.keyStart:a.keyEnd]))
			attrs = append(attrs, a)
		}
		i = skipSpace(tag, i)
	}

	return nameEnd, attrs
}
