// Package schema holds the data model shared by parsing, storage and queries.
//
// Rows are Records of Values; tables are described by Definitions of
// FieldDefs. Both serialize to JSON for storage, preserving field order, which
// matters for display: fields appear in the order the author wrote them.
//
// This package imports nothing internal.
package schema
