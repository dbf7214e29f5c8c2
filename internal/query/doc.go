// Package query runs user queries against stored table data.
//
// A Query is built from a table name, a criteria string and a sort string.
// Parsing happens once, in New; problems with the input are kept on the
// query instead of being returned, so callers check HasErrors and show
// ErrorMessage to the user. A query with errors yields no rows.
//
// Rows come back in a Result, which classifies the fields it holds and
// formats values for display using the table's field types.
package query
