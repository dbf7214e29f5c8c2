package queryir

import (
	"errors"
	"fmt"
)

// ErrInvalidPlan is wrapped by every error Validate returns.
var ErrInvalidPlan = errors.New("invalid query plan")

// Validate checks that a plan is well formed: it has a scope, every field
// instance is named and matches at least one field name, aliases are
// unique, and every term refers to existing instances.
//
// Plans built by the query package always pass; Validate guards compilers
// against hand-built plans.
func Validate(p *Plan) error {
	if p == nil {
		return fmt.Errorf("%w: nil plan", ErrInvalidPlan)
	}
	v := &validator{plan: p}
	v.validatePlan()
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidPlan, errors.Join(v.problems...))
}

// validator accumulates problems during traversal.
type validator struct {
	plan     *Plan
	problems []error
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validator) validatePlan() {
	p := v.plan
	if p.Alias == "" {
		v.addProblem("missing table alias")
	}
	if len(p.Scope) == 0 {
		v.addProblem("empty table scope")
	}

	aliases := map[string]bool{p.Alias: true}
	for i, f := range p.Fields {
		if f.Alias == "" {
			v.addProblem("field %d: missing alias", i)
		} else if aliases[f.Alias] {
			v.addProblem("field %d: duplicate alias %q", i, f.Alias)
		}
		aliases[f.Alias] = true
		if len(f.Names) == 0 {
			v.addProblem("field %d: no field names", i)
		}
	}

	for i, s := range p.Sort {
		if !v.validInstance(s.Instance) {
			v.addProblem("sort key %d: unknown field instance %d", i, s.Instance)
		}
	}

	if p.Filter != nil {
		v.validateTerm(p.Filter)
	}
}

func (v *validator) validInstance(i int) bool {
	return i >= 0 && i < len(v.plan.Fields)
}

func (v *validator) validateTerm(t Term) {
	switch term := t.(type) {
	case Compare:
		if !term.Op.Valid() {
			v.addProblem("unknown operator %q", term.Op)
		}
		v.validateOperand(term.Left)
		v.validateOperand(term.Right)
	case NonEmpty:
		v.validateOperand(term.Operand)
	case And:
		v.validateTerms("AND", term.Terms)
	case Or:
		v.validateTerms("OR", term.Terms)
	case Xor:
		v.validateTerms("XOR", term.Terms)
	case nil:
		v.addProblem("nil term")
	default:
		v.addProblem("unknown term type %T", t)
	}
}

func (v *validator) validateTerms(conj string, terms []Term) {
	if len(terms) == 0 {
		v.addProblem("empty %s", conj)
	}
	for _, t := range terms {
		v.validateTerm(t)
	}
}

func (v *validator) validateOperand(o Operand) {
	switch op := o.(type) {
	case Field:
		if !v.validInstance(op.Instance) {
			v.addProblem("unknown field instance %d", op.Instance)
		}
	case Literal:
	case nil:
		v.addProblem("nil operand")
	default:
		v.addProblem("unknown operand type %T", o)
	}
}
