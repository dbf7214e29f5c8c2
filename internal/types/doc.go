// Package types provides the data-type framework used by table definitions,
// queries and result formatting.
//
// A type is a Handler registered under a case-insensitive name. Each handler
// answers four questions about a raw value:
//
//   - Validate: is the value acceptable for this type?
//   - FormatForDisplay: what wikitext should be rendered for it?
//   - FormatForSorting: what string key sorts it correctly?
//   - Similarity: how likely is it (0-10) that an untyped value is of this type?
//
// REGISTRY:
//
// A Registry is built once at startup (NewRegistry plus RegisterBuiltins) and
// shared read-only afterwards. All registration must happen before concurrent
// readers start. Undefined types never fail: Validate returns true and the
// formatters pass the value through unchanged.
//
// BUILT-IN TYPES:
//
//	wikistring   free wikitext, the fallback for type guessing
//	string       plain text, escaped for display, optional max length
//	integer/int  whole numbers, optional min/max
//	number       decimals, optional min/max
//	image        file links with optional width/height
//	link         wiki links
//
// NUMBERS:
//
// Numeric input may use the wiki locale's digits and separators. Locale
// translates between that form and the normalised ASCII form, formats numbers
// for display and builds fixed-width sort keys whose byte order matches
// numeric order.
package types
