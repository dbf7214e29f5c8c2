package criteria

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wikidb/internal/table"
	"github.com/roach88/wikidb/internal/testutil"
)

func tok(kind TokenKind, value string) Token {
	return Token{Kind: kind, Value: value}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "simple comparison",
			input: "Name=Bob",
			want: []Token{
				tok(TokenUnquotedLiteral, "Name"),
				tok(TokenOperator, "="),
				tok(TokenUnquotedLiteral, "Bob"),
			},
		},
		{
			name:  "quotes, conjunctions and parentheses",
			input: `A <> 'x y' AND (B >= 2 OR C != "q\"r")`,
			want: []Token{
				tok(TokenUnquotedLiteral, "A"),
				tok(TokenOperator, "<>"),
				tok(TokenString, "x y"),
				tok(TokenConjunction, "AND"),
				tok(TokenLeftParen, "("),
				tok(TokenUnquotedLiteral, "B"),
				tok(TokenOperator, ">="),
				tok(TokenUnquotedLiteral, "2"),
				tok(TokenConjunction, "OR"),
				tok(TokenUnquotedLiteral, "C"),
				tok(TokenOperator, "<>"),
				tok(TokenString, `q"r`),
				tok(TokenRightParen, ")"),
			},
		},
		{
			name:  "words inside names are not tokens",
			input: "Band=1",
			want: []Token{
				tok(TokenUnquotedLiteral, "Band"),
				tok(TokenOperator, "="),
				tok(TokenUnquotedLiteral, "1"),
			},
		},
		{
			name:  "word operators",
			input: "Age gte 18 and Age lt 65",
			want: []Token{
				tok(TokenUnquotedLiteral, "Age"),
				tok(TokenOperator, ">="),
				tok(TokenUnquotedLiteral, "18"),
				tok(TokenConjunction, "AND"),
				tok(TokenUnquotedLiteral, "Age"),
				tok(TokenOperator, "<"),
				tok(TokenUnquotedLiteral, "65"),
			},
		},
		{
			name:  "operator at end of input",
			input: "Name=",
			want: []Token{
				tok(TokenUnquotedLiteral, "Name"),
				tok(TokenOperator, "="),
			},
		},
		{
			name:  "less-than at end of input",
			input: "Name <",
			want: []Token{
				tok(TokenUnquotedLiteral, "Name"),
				tok(TokenOperator, "<"),
			},
		},
		{
			name:  "quoted identifiers",
			input: "[[Full name]]=\"x\" OR `a\\\\b`=y",
			want: []Token{
				tok(TokenIdentifier, "Full name"),
				tok(TokenOperator, "="),
				tok(TokenString, "x"),
				tok(TokenConjunction, "OR"),
				tok(TokenIdentifier, `a\b`),
				tok(TokenOperator, "="),
				tok(TokenUnquotedLiteral, "y"),
			},
		},
		{
			name:  "unterminated quote",
			input: "Name='Bo",
			want: []Token{
				tok(TokenUnquotedLiteral, "Name"),
				tok(TokenOperator, "="),
				tok(TokenString, "Bo"),
			},
		},
		{
			name:  "symbol synonyms",
			input: "A==1 && B<2 || C,D",
			want: []Token{
				tok(TokenUnquotedLiteral, "A"),
				tok(TokenOperator, "="),
				tok(TokenUnquotedLiteral, "1"),
				tok(TokenConjunction, "AND"),
				tok(TokenUnquotedLiteral, "B"),
				tok(TokenOperator, "<"),
				tok(TokenUnquotedLiteral, "2"),
				tok(TokenConjunction, "OR"),
				tok(TokenUnquotedLiteral, "C"),
				tok(TokenConjunction, "AND"),
				tok(TokenUnquotedLiteral, "D"),
			},
		},
		{
			name:  "operator before closing parenthesis",
			input: "(X =) AND Y",
			want: []Token{
				tok(TokenLeftParen, "("),
				tok(TokenUnquotedLiteral, "X"),
				tok(TokenOperator, "="),
				tok(TokenRightParen, ")"),
				tok(TokenConjunction, "AND"),
				tok(TokenUnquotedLiteral, "Y"),
			},
		},
		{
			name:  "quote after text is literal",
			input: "O'Brien=1",
			want: []Token{
				tok(TokenUnquotedLiteral, "O'Brien"),
				tok(TokenOperator, "="),
				tok(TokenUnquotedLiteral, "1"),
			},
		},
		{
			name:  "blank",
			input: "   ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

// reconstruct prints tokens back as criteria text, quoting every operand.
func reconstruct(toks []Token) string {
	parts := make([]string, len(toks))
	for i, tk := range toks {
		switch tk.Kind {
		case TokenString:
			parts[i] = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(tk.Value) + `"`
		case TokenIdentifier:
			parts[i] = "`" + strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(tk.Value) + "`"
		default:
			parts[i] = tk.Value
		}
	}
	return strings.Join(parts, " ")
}

func TestTokenize_CanonicalRoundTrip(t *testing.T) {
	inputs := []string{
		"Name=Bob",
		"A neq 1 xor (B == 'it''s' || C)",
		"Title = \"say \\\"hi\\\"\" and Year gte 1990",
		"Name=",
		"`odd\\`name` <> x, y <= 2",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first := ExpandImplicit(Tokenize(input))
			second := ExpandImplicit(Tokenize(reconstruct(first)))
			assert.Equal(t, first, second)
		})
	}
}

func TestExpandImplicit(t *testing.T) {
	got := ExpandImplicit(Tokenize("A= AND B=x"))
	assert.Equal(t, []Token{
		tok(TokenIdentifier, "A"),
		tok(TokenOperator, "="),
		tok(TokenString, ""),
		tok(TokenConjunction, "AND"),
		tok(TokenIdentifier, "B"),
		tok(TokenOperator, "="),
		tok(TokenString, "x"),
	}, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		input string
		kind  ErrorKind
		token string
	}{
		{input: "(A=1", kind: ErrUnclosedParenthesis},
		{input: "A=1)", kind: ErrUnopenedParenthesis, token: ")"},
		{input: "AND A=1", kind: ErrUnexpectedToken, token: "AND"},
		{input: ")", kind: ErrUnexpectedToken, token: ")"},
		{input: "()", kind: ErrUnexpectedToken, token: ")"},
		{input: "A AND", kind: ErrPartialExpression},
		{input: "(A=1 AND", kind: ErrPartialExpression},
		{input: "A=1 (B=2)", kind: ErrUnexpectedToken, token: "("},
		{input: "A=1 AND OR B=2", kind: ErrUnexpectedToken, token: "OR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := Validate(ExpandImplicit(Tokenize(tt.input)))
			require.Error(t, err)

			var qe *Error
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, tt.kind, qe.Kind)
			assert.Equal(t, tt.token, qe.Token)
		})
	}

	valid := []string{"", "A", "A=", "A=1 AND (B=2 OR (C<>3))", "'x' = A", "A = B", "A=1=2"}
	for _, input := range valid {
		t.Run("valid "+input, func(t *testing.T) {
			assert.NoError(t, Validate(ExpandImplicit(Tokenize(input))))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{newError(ErrUnexpectedToken, "AND"), "Unexpected token: AND"},
		{newError(ErrUnopenedParenthesis, ")"), "Closing parenthesis without matching opening parenthesis"},
		{newError(ErrUnclosedParenthesis, ""), "Unclosed parenthesis"},
		{newError(ErrPartialExpression, ""), "Incomplete expression"},
		{newError(ErrBadFieldName, "A-B"), "Invalid field name: A-B"},
		{newError(ErrBadFieldSyntax, "A-B"), "Invalid field syntax: A-B"},
		{newError(ErrBadTableName, "Help:X"), "Invalid table name: Help:X"},
		{newError(ErrAmbiguousFieldName, "Name"), "Ambiguous field name: Name"},
		{newError(ErrUndefinedTable, "Other"), "Table not included in query: Other"},
		{newError(ErrMultiTableQueryUnsupported, ""), "Queries across multiple tables are not supported"},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, IsKind(tt.err, tt.err.Kind))
		})
	}
}

type fixture struct {
	ctx    context.Context
	src    *testutil.MemSource
	s      *table.Session
	people *table.Table
	p      *Parser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	src := testutil.NewMemSource(t)
	src.Define(t, "People", "> Name : string(10)\n> Age : integer\n> Years [[#Age]]")
	src.Define(t, "Persons", "#REDIRECT [[Table:People]]")
	src.Define(t, "Other", "> Name")

	s := src.Session()
	people, err := LookupTable(ctx, s, "People")
	require.NoError(t, err)
	return &fixture{ctx: ctx, src: src, s: s, people: people, p: NewParser(s, people)}
}

func TestParseCriteria(t *testing.T) {
	f := newFixture(t)
	age18 := f.people.FormatForSorting("Age", "18")
	require.NotEqual(t, "18", age18)

	tests := []struct {
		name   string
		input  string
		fields []string
		values []string
	}{
		{name: "typed value is sort-formatted", input: "Age >= 18", fields: []string{"Age"}, values: []string{age18}},
		{name: "field alias resolves", input: "Years >= 18", fields: []string{"Age"}, values: []string{age18}},
		{name: "value before field", input: "'18' < [[Age]]", fields: []string{"Age"}, values: []string{age18}},
		{name: "untyped field keeps value", input: "Colour = Red", fields: []string{"Colour"}, values: []string{"Red"}},
		{name: "qualified", input: "Table:People.Age=18", fields: []string{"Age"}, values: []string{age18}},
		{name: "qualified by alias table", input: "Persons . Name = Bob", fields: []string{"Name"}, values: []string{"Bob"}},
		{name: "empty value", input: "Name=", fields: []string{"Name"}, values: []string{""}},
		{name: "blank", input: " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := f.p.ParseCriteria(f.ctx, tt.input)
			require.NoError(t, err)

			var fields, values []string
			for _, tk := range toks {
				switch tk.Kind {
				case TokenIdentifier:
					require.NotNil(t, tk.Field)
					assert.Equal(t, f.people.Title(), tk.Field.Table.Title())
					fields = append(fields, tk.Field.Name)
				case TokenString:
					values = append(values, tk.Value)
				}
			}
			assert.Equal(t, tt.fields, fields)
			assert.Equal(t, tt.values, values)
		})
	}
}

func TestParseCriteria_FieldErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		input string
		inner ErrorKind
	}{
		{input: "Foo-Bar = 1", inner: ErrBadFieldSyntax},
		{input: "Other.Name = 1", inner: ErrUndefinedTable},
		{input: "Help:Stuff.Name = 1", inner: ErrBadTableName},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := f.p.ParseCriteria(f.ctx, tt.input)
			require.Error(t, err)

			var qe *Error
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, ErrBadFieldName, qe.Kind)
			assert.Equal(t, "Invalid field name: "+strings.TrimSuffix(tt.input, " = 1"), qe.Error())

			var inner *Error
			require.True(t, errors.As(qe.Err, &inner))
			assert.Equal(t, tt.inner, inner.Kind)
		})
	}
}

func TestParseSort(t *testing.T) {
	f := newFixture(t)

	sorts, err := f.p.ParseSort(f.ctx, "Name DESC, , Years asc,Colour")
	require.NoError(t, err)
	require.Len(t, sorts, 3)

	assert.Equal(t, "Name", sorts[0].Field.Name)
	assert.Equal(t, "DESC", sorts[0].Dir())
	assert.Equal(t, "Age", sorts[1].Field.Name)
	assert.Equal(t, "ASC", sorts[1].Dir())
	assert.Equal(t, "Colour", sorts[2].Field.Name)
	assert.False(t, sorts[2].Desc)

	none, err := f.p.ParseSort(f.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestParseSort_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.p.ParseSort(f.ctx, "Name, Help:Stuff.Name")
	assert.True(t, IsKind(err, ErrBadTableName))

	_, err = f.p.ParseSort(f.ctx, "Foo[Bar DESC")
	assert.True(t, IsKind(err, ErrBadFieldSyntax))
}

func TestResolveField_Ambiguous(t *testing.T) {
	f := newFixture(t)
	other, err := LookupTable(f.ctx, f.s, "Other")
	require.NoError(t, err)

	p := NewParser(f.s, f.people, other)
	_, err = p.ResolveField(f.ctx, "Name")
	assert.True(t, IsKind(err, ErrAmbiguousFieldName))

	ref, err := p.ResolveField(f.ctx, "Other.Name")
	require.NoError(t, err)
	assert.Equal(t, other.Title(), ref.Table.Title())
}

func TestLookupTable(t *testing.T) {
	f := newFixture(t)

	dest, err := LookupTable(f.ctx, f.s, "Persons")
	require.NoError(t, err)
	assert.Equal(t, "Table:People", dest.FullName())

	_, err = LookupTable(f.ctx, f.s, "Help:Stuff")
	assert.True(t, IsKind(err, ErrBadTableName))

	_, err = LookupTable(f.ctx, f.s, "Bad|Name")
	assert.True(t, IsKind(err, ErrBadTableName))
}
