// Package wiki models page identity: namespaces, titles and redirects.
//
// Every other package refers to pages through Title values produced here,
// so title normalization happens in exactly one place. A Title's namespace
// and DB key are what the store persists; the prefixed forms are what users
// type and what display formatting emits.
package wiki
