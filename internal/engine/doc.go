// Package engine implements the WikiDB write path.
//
// The engine keeps the store in step with page text. Hosts call it when a
// page is saved, deleted or moved:
//
//   - PageUpdated drops the rows the page defined, re-parses its text and
//     stores the table definition (for pages in a table namespace) and every
//     row of every <data> tag.
//   - PageDeleted drops the table definition and rows of the page.
//   - PageMoved re-runs PageUpdated for both titles.
//
// Each call runs in one transaction. Hosts with their own transaction use
// UpdatePage and DeletePage, which take a *store.Tx, so a rollback of the
// page save rolls back the data too.
//
// # Stale rows
//
// Field index entries are built from the destination table's definition.
// Saving a definition does not rewrite them; it marks the rows of the table
// and of its aliases stale. RefreshStaleFieldData rewrites a bounded batch,
// one row per transaction, and Refresher runs it in the background.
//
// # Processing units
//
// Every write and every refresh batch is a processing unit with its own
// table.Session, so definitions are cached for the unit only. Units get a
// UUIDv7 id that is logged with everything the unit does.
package engine
