package wrentest

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	text string
	num  float64
	kind tokenKind
	line int
}

func (t token) is(text string) bool {
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokNewline:
		return "newline"
	case tokString:
		return strconv.Quote(t.text)
	}
	return "'" + t.text + "'"
}

// punctuation, longest first
var puncts = []string{
	"...", "..", "==", "!=", "<=", ">=", "<<", ">>",
	"(", ")", "[", "]", "{", "}", ",", ".", "=", "<", ">",
	"+", "-", "*", "/", "%", "!", "~", "^", "|", "&", "#",
}

type lexError struct {
	msg  string
	line int
}

func (e *lexError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

// lex splits source into tokens. Newlines inside parentheses and brackets
// are dropped so argument lists may span lines.
func lex(src string) ([]token, error) {
	var toks []token
	line := 1
	depth := 0
	i := 0

	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			if depth == 0 {
				toks = append(toks, token{kind: tokNewline, line: line})
			}
			line++
			i++

		case c == ' ' || c == '\t' || c == '\r':
			i++

		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}

		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, &lexError{"unterminated block comment", line}
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 4

		case c == '"':
			s, n, err := lexString(src[i:], line)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: s, line: line})
			line += strings.Count(src[i:i+n], "\n")
			i += n

		case isDigit(c):
			j := i
			for j < len(src) && (isDigit(src[j]) || src[j] == '.' && j+1 < len(src) && isDigit(src[j+1])) {
				j++
			}
			f, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, &lexError{"invalid number " + src[i:j], line}
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], num: f, line: line})
			i = j

		case isIdentStart(c):
			j := i
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], line: line})
			i = j

		default:
			matched := ""
			for _, p := range puncts {
				if strings.HasPrefix(src[i:], p) {
					matched = p
					break
				}
			}
			if matched == "" {
				return nil, &lexError{fmt.Sprintf("unexpected character %q", c), line}
			}
			switch matched {
			case "(", "[":
				depth++
			case ")", "]":
				if depth > 0 {
					depth--
				}
			}
			toks = append(toks, token{kind: tokPunct, text: matched, line: line})
			i += len(matched)
		}
	}

	toks = append(toks, token{kind: tokNewline, line: line}, token{kind: tokEOF, line: line})
	return toks, nil
}

func lexString(src string, line int) (string, int, error) {
	var b strings.Builder
	i := 1
	for i < len(src) {
		c := src[i]
		switch c {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(src) {
				return "", 0, &lexError{"unterminated string", line}
			}
			switch src[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '%':
				b.WriteByte('%')
			case '0':
				b.WriteByte(0)
			default:
				return "", 0, &lexError{fmt.Sprintf("invalid escape \\%c", src[i+1]), line}
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, &lexError{"unterminated string", line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
