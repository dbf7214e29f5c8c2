// Package harness runs wikidb scenarios: scripted page edits followed by
// assertions on the resulting queries and store state.
//
// # Scenario Format
//
//	name: people_aliases
//	description: "Rows saved under an alias table are found through it"
//	namespaces:               # optional, defaults to Table (100)
//	  - {id: 100, name: Table, table: true}
//	setup:                    # page dump entries, applied first
//	  - title: Table:People
//	    text: |
//	      > Name : string
//	flow:
//	  - page: Staff list
//	    text: '<data table="People">Name=Bob</data>'
//	    expect: {rows_written: 1}
//	  - page: Old name
//	    deleted: true
//	  - page: Draft
//	    move_to: Final
//	    text: "..."           # text of the moved page
//	  - refresh: 10           # 0 refreshes every stale row
//	  - mark_stale: true
//	assertions:
//	  - type: query
//	    table: People
//	    criteria: "Name = Bob"
//	    sort: "Name DESC"
//	    count: 1
//	    rows: [{Name: Bob}]
//	  - type: query
//	    table: People
//	    criteria: "(Name"
//	    error: "Unclosed parenthesis"
//	  - type: stale_count
//	    count: 0
//	  - type: tables
//	    kind: undefined       # defined | undefined | empty
//	    tables: [Table:Ghost]
//
// Setup and flow entries use the page dump format of engine.ParseDump.
// Every flow step is recorded in the trace; every query assertion records
// its result. Both make up the snapshot compared against golden files.
//
// # Determinism
//
// Each scenario runs against a fresh SQLite database in a temporary
// directory, with processing unit ids numbered unit-0001, unit-0002 and
// so on. Snapshots are therefore stable across runs.
package harness
