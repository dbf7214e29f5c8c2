package query

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/wikidb/internal/criteria"
	"github.com/roach88/wikidb/internal/queryir"
	"github.com/roach88/wikidb/internal/table"
	"github.com/roach88/wikidb/internal/wiki"
)

// tableAlias names the row table instance of the only table in a query.
const tableAlias = "table1"

// BuildPlan turns resolved criteria tokens and sort fields into a plan over
// tbl, which must be a destination table.
//
// Every field reference gets its own join instance, sort fields first and
// then criteria identifiers in order of appearance, so that two conditions
// on one multi-value field can match different values.
func BuildPlan(ctx context.Context, tbl *table.Table, toks []criteria.Token, sort []criteria.SortField, source *wiki.Title) (*queryir.Plan, error) {
	aliases, err := tbl.AliasTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}

	p := &queryir.Plan{Alias: tableAlias}
	for _, t := range aliases {
		p.Scope = append(p.Scope, queryir.TableRef{Namespace: t.Namespace(), Title: t.DBKey()})
	}
	if source != nil {
		p.Source = &queryir.PageRef{Namespace: source.Namespace(), Title: source.DBKey()}
	}

	for _, s := range sort {
		p.Sort = append(p.Sort, queryir.SortKey{Instance: addInstance(p, s.Field), Desc: s.Desc})
	}

	if len(toks) > 0 {
		b := &termBuilder{plan: p, toks: toks}
		filter, err := b.parseOr()
		if err != nil {
			return nil, fmt.Errorf("build plan: %w", err)
		}
		if b.pos != len(toks) {
			return nil, fmt.Errorf("build plan: unexpected token %q", toks[b.pos].Value)
		}
		p.Filter = filter
	}
	return p, nil
}

func addInstance(p *queryir.Plan, f criteria.FieldRef) int {
	n := len(p.Fields)
	p.Fields = append(p.Fields, queryir.FieldInstance{
		Alias: p.Alias + "_field" + strconv.Itoa(n+1),
		Field: f.Name,
		Names: f.Table.AliasesOf(f.Name),
	})
	return n
}

// termBuilder reads a validated token stream into a condition tree. AND
// binds tighter than XOR, which binds tighter than OR.
type termBuilder struct {
	plan *queryir.Plan
	toks []criteria.Token
	pos  int
}

func (b *termBuilder) peek() (criteria.Token, bool) {
	if b.pos >= len(b.toks) {
		return criteria.Token{}, false
	}
	return b.toks[b.pos], true
}

func (b *termBuilder) acceptConjunction(word string) bool {
	tok, ok := b.peek()
	if ok && tok.Kind == criteria.TokenConjunction && tok.Value == word {
		b.pos++
		return true
	}
	return false
}

func (b *termBuilder) parseOr() (queryir.Term, error) {
	return b.parseLevel("OR", b.parseXor, func(ts []queryir.Term) queryir.Term { return queryir.Or{Terms: ts} })
}

func (b *termBuilder) parseXor() (queryir.Term, error) {
	return b.parseLevel("XOR", b.parseAnd, func(ts []queryir.Term) queryir.Term { return queryir.Xor{Terms: ts} })
}

func (b *termBuilder) parseAnd() (queryir.Term, error) {
	return b.parseLevel("AND", b.parsePrimary, func(ts []queryir.Term) queryir.Term { return queryir.And{Terms: ts} })
}

// parseLevel reads next (word next)* and combines two or more terms with
// join.
func (b *termBuilder) parseLevel(word string, next func() (queryir.Term, error), join func([]queryir.Term) queryir.Term) (queryir.Term, error) {
	first, err := next()
	if err != nil {
		return nil, err
	}
	terms := []queryir.Term{first}
	for b.acceptConjunction(word) {
		t, err := next()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return join(terms), nil
}

func (b *termBuilder) parsePrimary() (queryir.Term, error) {
	tok, ok := b.peek()
	if !ok {
		return nil, fmt.Errorf("incomplete expression")
	}
	if tok.Kind == criteria.TokenLeftParen {
		b.pos++
		t, err := b.parseOr()
		if err != nil {
			return nil, err
		}
		if tok, ok := b.peek(); !ok || tok.Kind != criteria.TokenRightParen {
			return nil, fmt.Errorf("unclosed parenthesis")
		}
		b.pos++
		return t, nil
	}
	return b.parseChain()
}

// parseChain reads operand (op operand)*. A lone operand is true when it is
// not blank, and a chain "a < b < c" holds when each adjacent pair does.
func (b *termBuilder) parseChain() (queryir.Term, error) {
	left, err := b.parseOperand()
	if err != nil {
		return nil, err
	}

	var pairs []queryir.Term
	for {
		tok, ok := b.peek()
		if !ok || tok.Kind != criteria.TokenOperator {
			break
		}
		b.pos++
		right, err := b.parseOperand()
		if err != nil {
			return nil, err
		}
		op := queryir.Operator(tok.Value)
		if !op.Valid() {
			return nil, fmt.Errorf("unknown operator %q", tok.Value)
		}
		pairs = append(pairs, queryir.Compare{Op: op, Left: left, Right: right})
		left = right
	}

	switch len(pairs) {
	case 0:
		return queryir.NonEmpty{Operand: left}, nil
	case 1:
		return pairs[0], nil
	default:
		return queryir.And{Terms: pairs}, nil
	}
}

func (b *termBuilder) parseOperand() (queryir.Operand, error) {
	tok, ok := b.peek()
	if !ok {
		return nil, fmt.Errorf("incomplete expression")
	}
	switch tok.Kind {
	case criteria.TokenString:
		b.pos++
		return queryir.Literal{Value: tok.Value}, nil
	case criteria.TokenIdentifier:
		if tok.Field == nil {
			return nil, fmt.Errorf("unresolved field %q", tok.Value)
		}
		b.pos++
		return queryir.Field{Instance: addInstance(b.plan, *tok.Field)}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", tok.Value)
	}
}
