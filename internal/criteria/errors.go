package criteria

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes query errors.
type ErrorKind string

const (
	// ErrUnexpectedToken indicates a token that may not follow its predecessor
	// or may not open the criteria.
	ErrUnexpectedToken ErrorKind = "UNEXPECTED_TOKEN"

	// ErrUnopenedParenthesis indicates a ")" with no matching "(".
	ErrUnopenedParenthesis ErrorKind = "UNOPENED_PARENTHESIS"

	// ErrUnclosedParenthesis indicates a "(" that is never closed.
	ErrUnclosedParenthesis ErrorKind = "UNCLOSED_PARENTHESIS"

	// ErrPartialExpression indicates criteria ending on a conjunction,
	// operator or "(".
	ErrPartialExpression ErrorKind = "PARTIAL_EXPRESSION"

	// ErrBadFieldName indicates an identifier in the criteria that could not
	// be resolved to a field.
	ErrBadFieldName ErrorKind = "BAD_FIELD_NAME"

	// ErrBadFieldSyntax indicates a field name that is blank once normalized.
	ErrBadFieldSyntax ErrorKind = "BAD_FIELD_SYNTAX"

	// ErrBadTableName indicates a table name outside the table namespaces.
	ErrBadTableName ErrorKind = "BAD_TABLE_NAME"

	// ErrAmbiguousFieldName indicates an unqualified field in a query over
	// more than one table.
	ErrAmbiguousFieldName ErrorKind = "AMBIGUOUS_FIELD_NAME"

	// ErrUndefinedTable indicates a qualified field whose table is not part
	// of the query.
	ErrUndefinedTable ErrorKind = "UNDEFINED_TABLE"

	// ErrMultiTableQueryUnsupported indicates a query over several tables.
	ErrMultiTableQueryUnsupported ErrorKind = "MULTI_TABLE_QUERY_UNSUPPORTED"
)

// Error is a query error. Its message is the one shown to users.
type Error struct {
	Kind ErrorKind

	// Token is the offending input, where the message names one.
	Token string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case ErrUnexpectedToken:
		return fmt.Sprintf("Unexpected token: %s", e.Token)
	case ErrUnopenedParenthesis:
		return "Closing parenthesis without matching opening parenthesis"
	case ErrUnclosedParenthesis:
		return "Unclosed parenthesis"
	case ErrPartialExpression:
		return "Incomplete expression"
	case ErrBadFieldName:
		return fmt.Sprintf("Invalid field name: %s", e.Token)
	case ErrBadFieldSyntax:
		return fmt.Sprintf("Invalid field syntax: %s", e.Token)
	case ErrBadTableName:
		return fmt.Sprintf("Invalid table name: %s", e.Token)
	case ErrAmbiguousFieldName:
		return fmt.Sprintf("Ambiguous field name: %s", e.Token)
	case ErrUndefinedTable:
		return fmt.Sprintf("Table not included in query: %s", e.Token)
	case ErrMultiTableQueryUnsupported:
		return "Queries across multiple tables are not supported"
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Token)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind == kind
	}
	return false
}

func newError(kind ErrorKind, token string) *Error {
	return &Error{Kind: kind, Token: token}
}
