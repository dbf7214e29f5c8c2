package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/wikidb/internal/queryir"
)

// Names of the backing tables.
const (
	TablesTable = "wikidb_tables"
	RowsTable   = "wikidb_rowdata"
	FieldsTable = "wikidb_fielddata"
)

// Page selects a window of the result.
type Page struct {
	Offset int

	// Limit is the maximum number of rows; negative means no limit.
	Limit int
}

// All is the page holding every row.
var All = Page{Limit: -1}

// Compiler compiles query plans to parameterized SQL.
//
// CRITICAL: every value is bound as a parameter, never interpolated.
// CRITICAL: results are always fully ordered; ties on the requested sort
// keys fall back to the order rows were stored in.
type Compiler struct {
	d Dialect
}

// NewCompiler returns a compiler for dialect d.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{d: d}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect { return c.d }

// Compile converts a plan to a SELECT returning, per matching row, the
// page namespace, page title and serialized row data.
//
// Each field instance is a LEFT JOIN on the field index. Rows are grouped
// back to one per record, and each sort key aggregates its instance with
// MIN (ascending) or MAX (descending), so a multi-value field sorts by its
// lowest or highest value.
func (c *Compiler) Compile(p *queryir.Plan, page Page) (string, []any, error) {
	if err := queryir.Validate(p); err != nil {
		return "", nil, err
	}

	b := c.newBuilder(p)
	b.write("SELECT ", b.groupColumns())
	for i, s := range p.Sort {
		agg := "MIN"
		if s.Desc {
			agg = "MAX"
		}
		b.write(", ", agg, "(", b.fieldValue(s.Instance), ") AS sort", strconv.Itoa(i+1))
	}
	b.write(", MIN(", b.col("row_id"), ") AS row_order")

	if err := b.fromWhereGroup(); err != nil {
		return "", nil, err
	}

	b.write(" ORDER BY ")
	for i, s := range p.Sort {
		b.write("sort", strconv.Itoa(i+1))
		if s.Desc {
			b.write(" DESC")
		}
		b.write(", ")
	}
	b.write("row_order")

	switch {
	case page.Limit >= 0:
		b.write(" LIMIT ")
		b.param(page.Limit)
		b.write(" OFFSET ")
		b.param(page.Offset)
	case page.Offset > 0:
		b.write(c.d.unlimited, " OFFSET ")
		b.param(page.Offset)
	}

	return b.String(), b.args, nil
}

// CompileCount converts a plan to a statement counting its rows.
func (c *Compiler) CompileCount(p *queryir.Plan) (string, []any, error) {
	if err := queryir.Validate(p); err != nil {
		return "", nil, err
	}

	b := c.newBuilder(p)
	b.write("SELECT COUNT(*) FROM (SELECT ", b.groupColumns())
	if err := b.fromWhereGroup(); err != nil {
		return "", nil, err
	}
	b.write(") AS counted")
	return b.String(), b.args, nil
}

// builder accumulates SQL text and its parameters in order.
type builder struct {
	strings.Builder
	d     Dialect
	plan  *queryir.Plan
	alias string
	args  []any
}

func (c *Compiler) newBuilder(p *queryir.Plan) *builder {
	return &builder{d: c.d, plan: p, alias: c.d.QuoteIdent(p.Alias)}
}

func (b *builder) write(parts ...string) {
	for _, s := range parts {
		b.WriteString(s)
	}
}

func (b *builder) param(v any) {
	b.args = append(b.args, v)
	b.WriteString(b.d.Placeholder(len(b.args)))
}

// col returns a column of the row table instance.
func (b *builder) col(name string) string {
	return b.alias + "." + name
}

func (b *builder) groupColumns() string {
	return b.col("page_namespace") + ", " + b.col("page_title") + ", " + b.col("parsed_data")
}

// fieldValue is the value of a field instance, with a missing entry
// reading as "".
func (b *builder) fieldValue(instance int) string {
	v := b.d.QuoteIdent(b.plan.Fields[instance].Alias) + ".field_value"
	return "(CASE WHEN " + v + " IS NULL THEN '' ELSE " + v + " END)"
}

// fromWhereGroup writes the FROM, WHERE and GROUP BY clauses.
func (b *builder) fromWhereGroup() error {
	p := b.plan

	b.write(" FROM ", RowsTable, " AS ", b.alias)
	for _, f := range p.Fields {
		fa := b.d.QuoteIdent(f.Alias)
		b.write(" LEFT JOIN ", FieldsTable, " AS ", fa,
			" ON ", fa, ".row_id = ", b.col("row_id"), " AND (")
		for i, name := range f.Names {
			if i > 0 {
				b.write(" OR ")
			}
			b.write(fa, ".field_name = ")
			b.param(name)
		}
		b.write(")")
	}

	b.write(" WHERE (")
	for i, t := range p.Scope {
		if i > 0 {
			b.write(" OR ")
		}
		b.write("(", b.col("table_namespace"), " = ")
		b.param(t.Namespace)
		b.write(" AND ", b.col("table_title"), " = ")
		b.param(t.Title)
		b.write(")")
	}
	b.write(")")

	if p.Filter != nil {
		b.write(" AND (")
		if err := b.term(p.Filter); err != nil {
			return err
		}
		b.write(")")
	}

	if p.Source != nil {
		b.write(" AND (", b.col("page_namespace"), " = ")
		b.param(p.Source.Namespace)
		b.write(" AND ", b.col("page_title"), " = ")
		b.param(p.Source.Title)
		b.write(")")
	}

	b.write(" GROUP BY ", b.groupColumns())
	return nil
}

func (b *builder) term(t queryir.Term) error {
	switch term := t.(type) {
	case queryir.Compare:
		if err := b.operand(term.Left); err != nil {
			return err
		}
		b.write(" ", string(term.Op), " ")
		return b.operand(term.Right)
	case queryir.NonEmpty:
		if err := b.operand(term.Operand); err != nil {
			return err
		}
		b.write(" <> ''")
		return nil
	case queryir.And:
		return b.join(" AND ", term.Terms)
	case queryir.Or:
		return b.join(" OR ", term.Terms)
	case queryir.Xor:
		// Truth values are compared for inequality, which needs no XOR
		// operator in the database.
		return b.join(" <> ", term.Terms)
	default:
		return fmt.Errorf("unsupported term type: %T", t)
	}
}

// join writes terms separated by sep, parenthesizing every term that is
// itself a conjunction.
func (b *builder) join(sep string, terms []queryir.Term) error {
	for i, t := range terms {
		if i > 0 {
			b.write(sep)
		}
		nested := sep == " <> " || isConjunction(t)
		if nested {
			b.write("(")
		}
		if err := b.term(t); err != nil {
			return err
		}
		if nested {
			b.write(")")
		}
	}
	return nil
}

func isConjunction(t queryir.Term) bool {
	switch t.(type) {
	case queryir.And, queryir.Or, queryir.Xor:
		return true
	}
	return false
}

func (b *builder) operand(o queryir.Operand) error {
	switch op := o.(type) {
	case queryir.Field:
		b.write(b.fieldValue(op.Instance))
	case queryir.Literal:
		b.args = append(b.args, op.Value)
		b.write(b.d.TextParam(b.d.Placeholder(len(b.args))))
	default:
		return fmt.Errorf("unsupported operand type: %T", o)
	}
	return nil
}
