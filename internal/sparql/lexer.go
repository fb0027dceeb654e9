package sparql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI           // <...>
	tokPName         // prefix:local
	tokVar           // ?x or $x
	tokString        // "..." '...' """...""" '''...'''
	tokLangTag       // @en
	tokNumber        // 42, 4.2
	tokBlank         // _:b0
	tokKeyword       // SELECT, WHERE, a, ...
	tokPunct         // { } . ; , * ^ ( ) ^^
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

// SyntaxError reports input outside the supported fragment.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Message)
}

// lex splits input into tokens. Comments (# to end of line) are dropped.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '#':
			for i < len(input) && input[i] != '\n' {
				i++
			}
		case r == '<':
			end := strings.IndexByte(input[i:], '>')
			if end < 0 {
				return nil, &SyntaxError{Pos: i, Message: "unterminated IRI"}
			}
			iri := input[i+1 : i+end]
			if strings.ContainsAny(iri, " \t\n\"{}") {
				return nil, &SyntaxError{Pos: i, Message: fmt.Sprintf("invalid IRI %q", iri)}
			}
			toks = append(toks, token{kind: tokIRI, text: iri, pos: i})
			i += end + 1
		case r == '?' || r == '$':
			j := i + 1
			for j < len(input) && isNameChar(rune(input[j])) {
				j++
			}
			if j == i+1 {
				return nil, &SyntaxError{Pos: i, Message: "empty variable name"}
			}
			toks = append(toks, token{kind: tokVar, text: input[i+1 : j], pos: i})
			i = j
		case r == '"' || r == '\'':
			text, n, err := lexString(input[i:])
			if err != nil {
				return nil, &SyntaxError{Pos: i, Message: err.Error()}
			}
			toks = append(toks, token{kind: tokString, text: text, pos: i})
			i += n
		case r == '@':
			j := i + 1
			for j < len(input) && (isAlnum(rune(input[j])) || input[j] == '-') {
				j++
			}
			if j == i+1 {
				return nil, &SyntaxError{Pos: i, Message: "empty language tag"}
			}
			toks = append(toks, token{kind: tokLangTag, text: input[i+1 : j], pos: i})
			i = j
		case r == '_' && i+1 < len(input) && input[i+1] == ':':
			j := i + 2
			for j < len(input) && isNameChar(rune(input[j])) {
				j++
			}
			toks = append(toks, token{kind: tokBlank, text: input[i+2 : j], pos: i})
			i = j
		case r == '^' && i+1 < len(input) && input[i+1] == '^':
			toks = append(toks, token{kind: tokPunct, text: "^^", pos: i})
			i += 2
		case strings.ContainsRune("{}.;,*^()", r):
			// A dot followed by a digit starts a decimal.
			if r == '.' && i+1 < len(input) && isDigit(rune(input[i+1])) {
				j := lexNumberEnd(input, i)
				toks = append(toks, token{kind: tokNumber, text: input[i:j], pos: i})
				i = j
				continue
			}
			toks = append(toks, token{kind: tokPunct, text: string(r), pos: i})
			i += size
		case isDigit(r) || ((r == '-' || r == '+') && i+1 < len(input) && isDigit(rune(input[i+1]))):
			j := lexNumberEnd(input, i)
			toks = append(toks, token{kind: tokNumber, text: input[i:j], pos: i})
			i = j
		case unicode.IsLetter(r) || r == ':':
			j := i
			for j < len(input) {
				c, sz := utf8.DecodeRuneInString(input[j:])
				if !(isNameChar(c) || c == ':' || c == '.' || c == '-' || c == '/' || c == '#') {
					break
				}
				j += sz
			}
			// Names never end with a dot (it terminates the triple).
			for j > i && input[j-1] == '.' {
				j--
			}
			word := input[i:j]
			if strings.Contains(word, ":") {
				toks = append(toks, token{kind: tokPName, text: word, pos: i})
			} else {
				toks = append(toks, token{kind: tokKeyword, text: word, pos: i})
			}
			i = j
		default:
			return nil, &SyntaxError{Pos: i, Message: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

func lexNumberEnd(input string, i int) int {
	j := i
	if input[j] == '-' || input[j] == '+' {
		j++
	}
	seenDot := false
	for j < len(input) {
		c := input[j]
		if isDigit(rune(c)) {
			j++
			continue
		}
		if c == '.' && !seenDot && j+1 < len(input) && isDigit(rune(input[j+1])) {
			seenDot = true
			j++
			continue
		}
		break
	}
	return j
}

// lexString reads a short or long quoted string at the start of s and
// returns its unescaped value and the number of bytes consumed.
func lexString(s string) (string, int, error) {
	q := s[0]
	long := len(s) >= 3 && s[1] == q && s[2] == q
	start := 1
	if long {
		start = 3
	}

	var b strings.Builder
	for i := start; i < len(s); i++ {
		c := s[i]
		if c == '\\' {
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("dangling escape")
			}
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\', '"', '\'':
				b.WriteByte(s[i])
			default:
				return "", 0, fmt.Errorf("unknown escape \\%c", s[i])
			}
			continue
		}
		if c == q {
			if !long {
				return b.String(), i + 1, nil
			}
			if i+2 < len(s) && s[i+1] == q && s[i+2] == q {
				return b.String(), i + 3, nil
			}
		}
		if !long && (c == '\n' || c == '\r') {
			return "", 0, fmt.Errorf("newline in short string")
		}
		b.WriteByte(c)
	}
	return "", 0, fmt.Errorf("unterminated string")
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isAlnum(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func isNameChar(r rune) bool { return isAlnum(r) || r == '_' }
