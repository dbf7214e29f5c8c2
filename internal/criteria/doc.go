// Package criteria parses query criteria and sort strings.
//
// Criteria are a flat list of comparisons joined by conjunctions, for
// example:
//
//	Artist = "Madonna" AND (Year >= 1990 OR [[Label]] = EMI)
//
// Parsing runs in four steps. Tokenize splits the text into tokens.
// ExpandImplicit decides whether each bare word is a field or a value.
// Validate checks the order of the tokens with a small table of allowed
// neighbours rather than a grammar. Finally the Parser resolves fields
// against the tables of the query and rewrites compared values into the
// sort format of their field.
//
// Every failure is an *Error whose message is shown to users as is.
package criteria
