package criteria

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/roach88/wikidb/internal/fieldname"
	"github.com/roach88/wikidb/internal/table"
)

// ExpandImplicit classifies unquoted literals and fills in omitted values.
//
// A literal straight after an operator is a String; any other literal is an
// Identifier. An operator not followed by an operand gets an empty String,
// so "Name=" compares Name with "".
func ExpandImplicit(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for i, tok := range toks {
		if tok.Kind == TokenUnquotedLiteral {
			if i > 0 && toks[i-1].Kind == TokenOperator {
				tok.Kind = TokenString
			} else {
				tok.Kind = TokenIdentifier
			}
		}
		out = append(out, tok)

		if tok.Kind == TokenOperator && (i+1 == len(toks) || !isOperand(toks[i+1].Kind)) {
			out = append(out, Token{Kind: TokenString})
		}
	}
	return out
}

func isOperand(k TokenKind) bool {
	return k == TokenUnquotedLiteral || k == TokenString || k == TokenIdentifier
}

// ordering says where each token kind may appear.
type ordering struct {
	canStart bool
	canEnd   bool
	after    []TokenKind
}

var orderings = map[TokenKind]ordering{
	TokenString:      {canStart: true, canEnd: true, after: []TokenKind{TokenLeftParen, TokenConjunction, TokenOperator}},
	TokenIdentifier:  {canStart: true, canEnd: true, after: []TokenKind{TokenLeftParen, TokenConjunction, TokenOperator}},
	TokenLeftParen:   {canStart: true, after: []TokenKind{TokenLeftParen, TokenConjunction}},
	TokenRightParen:  {canEnd: true, after: []TokenKind{TokenRightParen, TokenString, TokenIdentifier}},
	TokenConjunction: {after: []TokenKind{TokenRightParen, TokenString, TokenIdentifier}},
	TokenOperator:    {after: []TokenKind{TokenString, TokenIdentifier}},
}

func (o ordering) allowsAfter(k TokenKind) bool {
	for _, a := range o.after {
		if a == k {
			return true
		}
	}
	return false
}

// Validate checks an expanded token stream in one left-to-right pass.
// Each token must be allowed to follow its predecessor, parentheses must
// balance, and the stream must end on an operand or ")".
func Validate(toks []Token) error {
	depth := 0
	for i, tok := range toks {
		rule, ok := orderings[tok.Kind]
		if !ok {
			return newError(ErrUnexpectedToken, tok.Value)
		}
		if i == 0 && !rule.canStart || i > 0 && !rule.allowsAfter(toks[i-1].Kind) {
			return newError(ErrUnexpectedToken, tok.Value)
		}

		switch tok.Kind {
		case TokenLeftParen:
			depth++
		case TokenRightParen:
			depth--
			if depth < 0 {
				return newError(ErrUnopenedParenthesis, tok.Value)
			}
		}
	}

	if len(toks) > 0 && !orderings[toks[len(toks)-1].Kind].canEnd {
		return newError(ErrPartialExpression, "")
	}
	if depth != 0 {
		return newError(ErrUnclosedParenthesis, "")
	}
	return nil
}

// SortField is one entry of a sort list.
type SortField struct {
	Field FieldRef
	Desc  bool
}

// Dir returns "ASC" or "DESC".
func (s SortField) Dir() string {
	if s.Desc {
		return "DESC"
	}
	return "ASC"
}

// Parser resolves criteria and sort strings against the tables of a query.
type Parser struct {
	s      *table.Session
	tables []*table.Table
}

// NewParser returns a parser for a query over tables, which must already
// be destination tables.
func NewParser(s *table.Session, tables ...*table.Table) *Parser {
	return &Parser{s: s, tables: tables}
}

// ParseCriteria tokenizes, validates and resolves a criteria string. Blank
// criteria yield no tokens and no error.
//
// Identifiers come back with Field set. Strings compared directly with a
// field are rewritten into that field's sort format, so they match the
// stored index values.
func (p *Parser) ParseCriteria(ctx context.Context, input string) ([]Token, error) {
	toks := Tokenize(input)
	if len(toks) == 0 {
		return nil, nil
	}
	toks = ExpandImplicit(toks)
	if err := Validate(toks); err != nil {
		return nil, err
	}

	for i := range toks {
		if toks[i].Kind != TokenIdentifier {
			continue
		}
		ref, err := p.ResolveField(ctx, toks[i].Value)
		var qe *Error
		if errors.As(err, &qe) {
			return nil, &Error{Kind: ErrBadFieldName, Token: toks[i].Value, Err: qe}
		}
		if err != nil {
			return nil, err
		}
		toks[i].Field = &ref
	}

	// Fields may follow the value they are compared with, so strings are
	// formatted once every identifier is resolved.
	for i := range toks {
		if toks[i].Kind != TokenString {
			continue
		}
		if f := comparedField(toks, i); f != nil {
			toks[i].Value = f.Table.FormatForSorting(f.Name, toks[i].Value)
		}
	}
	return toks, nil
}

// comparedField returns the field the string at i is compared with, as in
// "Field op value" or "value op Field".
func comparedField(toks []Token, i int) *FieldRef {
	if i > 0 && toks[i-1].Kind == TokenOperator {
		if i > 1 && toks[i-2].Kind == TokenIdentifier {
			return toks[i-2].Field
		}
		return nil
	}
	if i+2 < len(toks) && toks[i+1].Kind == TokenOperator && toks[i+2].Kind == TokenIdentifier {
		return toks[i+2].Field
	}
	return nil
}

var sortEntryRe = regexp.MustCompile(`(?is)^(.*?)(?:\s(ASC|DESC))?\s*$`)

// ParseSort parses a comma-separated list of "field [ASC|DESC]" entries.
// Blank entries are skipped.
func (p *Parser) ParseSort(ctx context.Context, input string) ([]SortField, error) {
	var out []SortField
	for _, entry := range strings.Split(input, ",") {
		m := sortEntryRe.FindStringSubmatch(entry)
		if m == nil {
			continue
		}
		name := strings.Trim(m[1], space)
		if name == "" {
			continue
		}
		ref, err := p.ResolveField(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, SortField{Field: ref, Desc: strings.EqualFold(m[2], "DESC")})
	}
	return out, nil
}

// ResolveField resolves "field" or "table.field" to a field of the query.
//
// An unqualified name, or one starting with ".", belongs to the query's only
// table. A qualifier is the text before the first "." and must name, after
// redirects, one of the query's tables. Defined fields are alias-resolved.
func (p *Parser) ResolveField(ctx context.Context, input string) (FieldRef, error) {
	var (
		tbl   *table.Table
		field = input
	)

	dot := strings.IndexByte(input, '.')
	if dot <= 0 {
		if len(p.tables) != 1 {
			return FieldRef{}, newError(ErrAmbiguousFieldName, input)
		}
		tbl = p.tables[0]
	} else {
		name := strings.Trim(input[:dot], space)
		field = strings.Trim(input[dot+1:], space)

		dest, err := LookupTable(ctx, p.s, name)
		if err != nil {
			return FieldRef{}, err
		}
		for _, t := range p.tables {
			if t.Title() == dest.Title() {
				tbl = t
				break
			}
		}
		if tbl == nil {
			return FieldRef{}, newError(ErrUndefinedTable, name)
		}
	}

	norm := fieldname.Normalize(field)
	if norm == "" {
		return FieldRef{}, newError(ErrBadFieldSyntax, field)
	}
	if tbl.FieldIsDefined(norm) {
		norm = tbl.ResolveFieldAlias(norm)
	}
	return FieldRef{Table: tbl, Name: norm}, nil
}

// LookupTable validates a table name typed by a user and returns the
// table its data is stored in.
func LookupTable(ctx context.Context, s *table.Session, name string) (*table.Table, error) {
	t, err := s.ParseTableName(name)
	if err != nil || !s.IsValidTable(t) {
		return nil, &Error{Kind: ErrBadTableName, Token: name, Err: err}
	}
	tbl, err := s.Table(ctx, t)
	if err != nil {
		return nil, err
	}
	return tbl.Destination(ctx)
}
