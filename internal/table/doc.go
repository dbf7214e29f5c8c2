// Package table resolves tables and their fields.
//
// A table is a page in a table namespace. Its page text defines fields;
// a redirect to another table page makes it an alias, so that data
// addressed to it is stored in the destination table. Fields can likewise
// be declared as aliases of other fields.
//
// Lookups go through a Session, which caches everything it reads for one
// unit of work. Field formatting delegates to the types registry using the
// declared type of the (alias-resolved) field.
package table
