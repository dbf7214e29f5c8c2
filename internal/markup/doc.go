// Package markup parses the wikitext structures that carry table data:
// table-definition pages, <data> tags and <guesstypes> input.
//
// Parsing never fails. Lines that do not match a grammar are kept as text
// (table definitions) or skipped (data tags), and invalid field names are
// dropped while still occupying their position in a field list.
package markup
