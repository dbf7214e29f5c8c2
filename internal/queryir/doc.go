// Package queryir is the compiled form of a table query.
//
// A Plan is what the criteria parser produces and what the SQL compiler
// consumes. It is independent of any SQL dialect:
//
//	[criteria + sort] → [Plan] → [querysql] → SQL for sqlite, pgx or mysql
//
// SCOPE:
//
// A plan reads the rows of one destination table. Scope lists that table
// and every table that redirects to it; rows stored under any of them
// belong to the result.
//
// FIELD INSTANCES:
//
// Each reference to a field in the criteria or the sort list gets its own
// FieldInstance, and so its own join against the field index. A criteria
// such as
//
//	Tag = "a" AND Tag = "b"
//
// therefore matches rows whose multi-value Tag field holds both values.
// An instance matches index entries stored under any synonym of the field.
// A missing entry reads as the empty string, never NULL.
//
// TERMS:
//
// Term and Operand are sealed interfaces using the marker method pattern,
// so compilers can switch over them exhaustively:
//
//	switch t := term.(type) {
//	case Compare:
//	case NonEmpty:
//	case And, Or, Xor:
//	}
//
// AND binds tighter than XOR, which binds tighter than OR. Parentheses in
// the criteria only show up as nesting.
package queryir
