package criteria

import (
	"strings"

	"github.com/roach88/wikidb/internal/table"
)

// TokenKind identifies the lexical class of a criteria token.
type TokenKind int

const (
	// TokenUnquotedLiteral is bare text, classified by ExpandImplicit.
	TokenUnquotedLiteral TokenKind = iota
	TokenString
	TokenIdentifier
	TokenLeftParen
	TokenRightParen
	TokenConjunction
	TokenOperator
)

var tokenKindNames = [...]string{
	TokenUnquotedLiteral: "UnquotedLiteral",
	TokenString:          "String",
	TokenIdentifier:      "Identifier",
	TokenLeftParen:       "LeftParen",
	TokenRightParen:      "RightParen",
	TokenConjunction:     "Conjunction",
	TokenOperator:        "Operator",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return "Unknown"
}

// Token is one lexical unit of a criteria string. Operators and
// conjunctions carry their canonical spelling ("<>", "AND", ...).
type Token struct {
	Kind  TokenKind
	Value string

	// Field is the resolved field of an Identifier, set by the parser.
	Field *FieldRef
}

// FieldRef names a field of a table in the query scope. Table is always a
// destination table and Name is alias-resolved when the field is defined.
type FieldRef struct {
	Table *table.Table
	Name  string
}

// tokenRule is one recognised operator, conjunction or parenthesis.
type tokenRule struct {
	text string
	kind TokenKind

	// lookahead rules only match once another character follows, or at
	// the end of input, so that "<" does not shadow "<=".
	lookahead bool

	// word rules must stand alone between word boundaries.
	word bool
}

// tokenRules are tried in order against the tail of the pending text. Longer
// spellings come before their prefixes and single characters come last.
var tokenRules = []tokenRule{
	{text: "<>", kind: TokenOperator},
	{text: "!=", kind: TokenOperator},
	{text: "<=", kind: TokenOperator},
	{text: "<", kind: TokenOperator, lookahead: true},
	{text: ">=", kind: TokenOperator},
	{text: ">", kind: TokenOperator, lookahead: true},
	{text: "==", kind: TokenOperator},
	{text: "=", kind: TokenOperator, lookahead: true},

	{text: "NEQ", kind: TokenOperator, lookahead: true, word: true},
	{text: "EQ", kind: TokenOperator, lookahead: true, word: true},
	{text: "LTE", kind: TokenOperator, lookahead: true, word: true},
	{text: "LT", kind: TokenOperator, lookahead: true, word: true},
	{text: "GTE", kind: TokenOperator, lookahead: true, word: true},
	{text: "GT", kind: TokenOperator, lookahead: true, word: true},

	{text: "AND", kind: TokenConjunction, lookahead: true, word: true},
	{text: "XOR", kind: TokenConjunction, lookahead: true, word: true},
	{text: "OR", kind: TokenConjunction, lookahead: true, word: true},
	{text: "&&", kind: TokenConjunction},
	{text: "||", kind: TokenConjunction},
	{text: ",", kind: TokenConjunction},

	{text: "(", kind: TokenLeftParen},
	{text: ")", kind: TokenRightParen},
}

// canonical maps synonyms onto the spelling used in compiled queries.
var canonical = map[string]string{
	",":   "AND",
	"&&":  "AND",
	"||":  "OR",
	"!=":  "<>",
	"==":  "=",
	"NEQ": "<>",
	"EQ":  "=",
	"LT":  "<",
	"LTE": "<=",
	"GT":  ">",
	"GTE": ">=",
}

type quoteRule struct {
	start, end string
	kind       TokenKind
}

var quoteRules = []quoteRule{
	{start: "[[", end: "]]", kind: TokenIdentifier},
	{start: "`", end: "`", kind: TokenIdentifier},
	{start: `"`, end: `"`, kind: TokenString},
	{start: "'", end: "'", kind: TokenString},
}

const space = " \t\n\r\x00\x0B"

// Tokenize splits a criteria string into tokens.
//
// Input is consumed one byte at a time into a pending buffer. A quote opens
// only at the start of a token; inside it, a backslash escapes itself and the
// closing quote, and a quote left open at the end of input is closed
// implicitly. Outside quotes, the tail of the buffer is tested against the
// recognised tokens after every byte; whatever precedes a match becomes an
// unquoted literal.
func Tokenize(input string) []Token {
	var (
		toks  []Token
		cur   string
		quote *quoteRule
		rest  = input
	)

	for len(rest) > 0 {
		cur += rest[:1]
		rest = rest[1:]

		if quote != nil {
			body, ok := strings.CutSuffix(cur, quote.end)
			if ok && !oddBackslashes(body) {
				toks = append(toks, Token{Kind: quote.kind, Value: unescape(body, quote.end)})
				quote = nil
				cur = ""
			}
			continue
		}

		if q := openingQuote(strings.TrimLeft(cur, space)); q != nil {
			quote = q
			cur = ""
			continue
		}

		prefix, tok, pushback, ok := matchTail(cur, len(rest) == 0)
		if !ok {
			continue
		}
		if prefix = strings.Trim(prefix, space); prefix != "" {
			toks = append(toks, Token{Kind: TokenUnquotedLiteral, Value: prefix})
		}
		toks = append(toks, tok)
		rest = pushback + rest
		cur = ""
	}

	if quote != nil {
		return append(toks, Token{Kind: quote.kind, Value: unescape(cur, quote.end)})
	}
	if cur = strings.Trim(cur, space); cur != "" {
		toks = append(toks, Token{Kind: TokenUnquotedLiteral, Value: cur})
	}
	return toks
}

func openingQuote(s string) *quoteRule {
	for i := range quoteRules {
		if quoteRules[i].start == s {
			return &quoteRules[i]
		}
	}
	return nil
}

// matchTail finds the first rule matching the end of cur. It returns the
// text before the match, the token, and any lookahead byte that must be
// returned to the input.
func matchTail(cur string, atEnd bool) (prefix string, tok Token, pushback string, ok bool) {
	for _, r := range tokenRules {
		n := len(r.text)

		// A lookahead rule at the end of input may close the text itself.
		if r.lookahead && atEnd && hasSuffixFold(cur, r.text) {
			prefix = cur[:len(cur)-n]
			if !r.word || !endsInWordByte(prefix) {
				return prefix, r.token(cur[len(prefix):]), "", true
			}
		}

		tail := cur
		if r.lookahead {
			if len(cur) < n+1 {
				continue
			}
			pushback = cur[len(cur)-1:]
			tail = cur[:len(cur)-1]
			if r.word && isWordByte(pushback[0]) {
				continue
			}
		} else {
			pushback = ""
		}

		if !hasSuffixFold(tail, r.text) {
			continue
		}
		prefix = tail[:len(tail)-n]
		if r.word && endsInWordByte(prefix) {
			continue
		}
		return prefix, r.token(tail[len(prefix):]), pushback, true
	}
	return "", Token{}, "", false
}

func (r tokenRule) token(matched string) Token {
	v := strings.ToUpper(matched)
	if c, ok := canonical[v]; ok {
		v = c
	}
	return Token{Kind: r.kind, Value: v}
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func endsInWordByte(s string) bool {
	return s != "" && isWordByte(s[len(s)-1])
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func oddBackslashes(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// unescape removes the backslash from "\\" and from an escaped end quote.
// Other backslashes are kept.
func unescape(s, end string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			i++
			continue
		}
		switch rest := s[i+1:]; {
		case strings.HasPrefix(rest, `\`):
			b.WriteByte('\\')
			i += 2
		case strings.HasPrefix(rest, end):
			b.WriteString(end)
			i += 1 + len(end)
		default:
			b.WriteByte('\\')
			i++
		}
	}
	return b.String()
}
