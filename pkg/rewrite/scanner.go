package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokString
	tokIdent
	tokOpen
	tokClose
	tokPunct
)

// token is a significant lexeme of SQL text. Whitespace and comments are skipped.
// depth is the parenthesis depth outside the token: an opening parenthesis and its
// matching close carry the same depth.
type token struct {
	kind  tokenKind
	start int
	end   int
	depth int
}

func (t token) text(src string) string {
	return src[t.start:t.end]
}

func (t token) is(src, word string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text(src), word)
}

var dollarTag = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)?\$`)

// scan tokenizes src. Quoted literals, quoted identifiers and comments never affect the
// depth counter. On error the tokens read so far are returned with it.
func scan(src string) ([]token, error) {
	var (
		tokens []token
		depth  int
	)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case isSpace(c):
			i++

		case c == '-' && strings.HasPrefix(src[i:], "--"):
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				i = len(src)
			} else {
				i += nl + 1
			}

		case c == '/' && strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return tokens, fmt.Errorf("unterminated comment at offset %d", i)
			}
			i += 2 + end + 2

		case c == '\'':
			end, err := scanQuoted(src, i, '\'', false)
			if err != nil {
				return tokens, err
			}
			tokens = append(tokens, token{kind: tokString, start: i, end: end, depth: depth})
			i = end

		case (c == 'e' || c == 'E') && strings.HasPrefix(src[i+1:], "'"):
			end, err := scanQuoted(src, i+1, '\'', true)
			if err != nil {
				return tokens, err
			}
			tokens = append(tokens, token{kind: tokString, start: i, end: end, depth: depth})
			i = end

		case isAlternativeQuote(src, i):
			end, err := scanAlternativeQuote(src, i)
			if err != nil {
				return tokens, err
			}
			tokens = append(tokens, token{kind: tokString, start: i, end: end, depth: depth})
			i = end

		case c == '"' || c == '`':
			end, err := scanQuoted(src, i, c, false)
			if err != nil {
				return tokens, err
			}
			tokens = append(tokens, token{kind: tokIdent, start: i, end: end, depth: depth})
			i = end

		case c == '$' && dollarTag.MatchString(src[i:]):
			tag := dollarTag.FindString(src[i:])
			end := strings.Index(src[i+len(tag):], tag)
			if end < 0 {
				return tokens, fmt.Errorf("unterminated dollar-quoted string at offset %d", i)
			}
			stop := i + len(tag) + end + len(tag)
			tokens = append(tokens, token{kind: tokString, start: i, end: stop, depth: depth})
			i = stop

		case c == '(':
			tokens = append(tokens, token{kind: tokOpen, start: i, end: i + 1, depth: depth})
			depth++
			i++

		case c == ')':
			depth--
			if depth < 0 {
				return tokens, fmt.Errorf("unbalanced ')' at offset %d", i)
			}
			tokens = append(tokens, token{kind: tokClose, start: i, end: i + 1, depth: depth})
			i++

		case isWordByte(c):
			start := i
			for i < len(src) && (isWordByte(src[i]) || src[i] == '$' || src[i] == '#') {
				i++
			}
			tokens = append(tokens, token{kind: tokWord, start: start, end: i, depth: depth})

		default:
			tokens = append(tokens, token{kind: tokPunct, start: i, end: i + 1, depth: depth})
			i++
		}
	}
	if depth != 0 {
		return tokens, fmt.Errorf("%d unclosed '('", depth)
	}
	return tokens, nil
}

// scanQuoted returns the offset just past the literal opened by quote at src[start].
// A doubled quote is an escaped quote; backslash escapes apply when backslash is set.
func scanQuoted(src string, start int, quote byte, backslash bool) (int, error) {
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			if backslash {
				i++
			}
		case quote:
			if i+1 < len(src) && src[i+1] == quote {
				i++
				continue
			}
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated %c-quoted text at offset %d", quote, start)
}

// isAlternativeQuote detects Oracle q'<d>...<d>' and nq'<d>...<d>' literals.
func isAlternativeQuote(src string, i int) bool {
	rest := src[i:]
	if len(rest) > 0 && (rest[0] == 'n' || rest[0] == 'N') {
		rest = rest[1:]
	}
	if i > 0 && isWordByte(src[i-1]) {
		return false
	}
	return len(rest) >= 3 && (rest[0] == 'q' || rest[0] == 'Q') && rest[1] == '\''
}

func scanAlternativeQuote(src string, start int) (int, error) {
	open := strings.IndexByte(src[start:], '\'') + start
	if open+1 >= len(src) {
		return 0, fmt.Errorf("unterminated q-quoted text at offset %d", start)
	}
	closer := src[open+1]
	switch closer {
	case '[':
		closer = ']'
	case '(':
		closer = ')'
	case '{':
		closer = '}'
	case '<':
		closer = '>'
	}
	end := strings.Index(src[open+2:], string(closer)+"'")
	if end < 0 {
		return 0, fmt.Errorf("unterminated q-quoted text at offset %d", start)
	}
	return open + 2 + end + 2, nil
}

// unquote returns the value of a string literal token in standard SQL semantics.
func unquote(lit string) string {
	switch {
	case lit[0] == '$':
		tag := dollarTag.FindString(lit)
		return lit[len(tag) : len(lit)-len(tag)]
	case lit[0] == 'e' || lit[0] == 'E':
		return unescapeBackslash(lit[2 : len(lit)-1])
	case lit[0] == '\'':
		return strings.ReplaceAll(lit[1:len(lit)-1], "''", "'")
	default:
		// q'<d>...<d>' with an optional n prefix.
		open := strings.IndexByte(lit, '\'')
		return lit[open+2 : len(lit)-2]
	}
}

func unescapeBackslash(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i])
			}
		case c == '\'' && i+1 < len(s) && s[i+1] == '\'':
			b.WriteByte('\'')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
