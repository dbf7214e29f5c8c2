package queryir

import "fmt"

// TableRef identifies a table page.
type TableRef struct {
	Namespace int
	Title     string // DB key form
}

func (r TableRef) String() string { return fmt.Sprintf("%d:%s", r.Namespace, r.Title) }

// PageRef identifies the page a row was defined on.
type PageRef = TableRef

// Plan is a compiled query over one table.
type Plan struct {
	// Alias names the row table instance in SQL, e.g. "table1".
	Alias string

	// Scope is the destination table followed by its aliases.
	Scope []TableRef

	// Fields holds one instance per field reference.
	Fields []FieldInstance

	// Filter restricts the rows; nil matches every row in scope.
	Filter Term

	// Source, when set, restricts the rows to those defined on one page.
	Source *PageRef

	// Sort lists the sort keys in priority order.
	Sort []SortKey
}

// FieldInstance is one join against the field index.
type FieldInstance struct {
	// Alias names the join in SQL, e.g. "table1_field2".
	Alias string

	// Field is the canonical field name.
	Field string

	// Names are the field names matched in the index: the canonical name
	// first, then its aliases.
	Names []string
}

// SortKey orders rows by a field instance.
type SortKey struct {
	Instance int
	Desc     bool
}

// Operator is a comparison operator in canonical spelling.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "<>"
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// Valid reports whether op is one of the known operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// Term is a boolean condition.
//
// This is a sealed interface; only types in this package implement it.
type Term interface {
	termNode()
}

// Operand is a value in a comparison.
//
// This is a sealed interface; only types in this package implement it.
type Operand interface {
	operandNode()
}

// Field reads the value of a field instance, by index into Plan.Fields.
type Field struct {
	Instance int
}

func (Field) operandNode() {}

// Literal is a constant string, already in the sort format of the field it
// is compared with.
type Literal struct {
	Value string
}

func (Literal) operandNode() {}

// Compare compares two operands as strings.
type Compare struct {
	Op    Operator
	Left  Operand
	Right Operand
}

func (Compare) termNode() {}

// NonEmpty is true when an operand used on its own is not blank.
type NonEmpty struct {
	Operand Operand
}

func (NonEmpty) termNode() {}

// And is true when every term is true.
type And struct {
	Terms []Term
}

func (And) termNode() {}

// Or is true when any term is true.
type Or struct {
	Terms []Term
}

func (Or) termNode() {}

// Xor is true when an odd number of terms are true.
type Xor struct {
	Terms []Term
}

func (Xor) termNode() {}
