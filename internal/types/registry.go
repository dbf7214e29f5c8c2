package types

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Action names one of the operations a Handler performs.
type Action int

const (
	ActionValidate Action = iota
	ActionFormatForDisplay
	ActionFormatForSorting
	ActionGetSimilarity
)

// String returns the action name used in logs and CLI output.
func (a Action) String() string {
	switch a {
	case ActionValidate:
		return "validate"
	case ActionFormatForDisplay:
		return "display"
	case ActionFormatForSorting:
		return "sort"
	case ActionGetSimilarity:
		return "similarity"
	default:
		return "unknown"
	}
}

// Handler implements one data type.
//
// Options are the arguments given in the table definition, e.g. the "10" in
// "string(10)". Handlers must tolerate missing or malformed options.
type Handler interface {
	// Validate reports whether value is acceptable for the type.
	Validate(value string, options []string) bool

	// FormatForDisplay returns the wikitext rendered for value.
	// Only called for values that passed Validate.
	FormatForDisplay(value string, options []string) string

	// FormatForSorting returns a key such that byte-wise ordering of keys
	// matches the natural ordering of values.
	FormatForSorting(value string, options []string) string

	// Similarity scores how likely it is that value is of this type, from
	// 0 (certainly not) to 10 (certainly).
	Similarity(value string, options []string) int
}

// Invoke performs action on h and returns its result as a string. Validation
// results are "1" or ""; similarity scores are decimal.
func Invoke(h Handler, action Action, value string, options []string) string {
	switch action {
	case ActionValidate:
		if h.Validate(value, options) {
			return "1"
		}
		return ""
	case ActionFormatForDisplay:
		return h.FormatForDisplay(value, options)
	case ActionFormatForSorting:
		return h.FormatForSorting(value, options)
	case ActionGetSimilarity:
		return strconv.Itoa(h.Similarity(value, options))
	default:
		return ""
	}
}

// InvalidMarker is displayed in place of values that fail validation.
const InvalidMarker = "??"

// definiteMatch is the similarity score at which guessing stops.
const definiteMatch = 10

// Registry maps type names to handlers.
//
// Registration order matters: GuessType breaks ties in favour of the type
// registered first.
type Registry struct {
	handlers map[string]Handler
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// NormalizeName returns the canonical form of a type name.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Register adds a handler under name. Registering an existing name replaces
// the handler but keeps its original position.
func (r *Registry) Register(name string, h Handler) {
	name = NormalizeName(name)
	if _, ok := r.handlers[name]; !ok {
		r.order = append(r.order, name)
	}
	r.handlers[name] = h
}

// Handler returns the handler for name.
func (r *Registry) Handler(name string) (Handler, bool) {
	h, ok := r.handlers[NormalizeName(name)]
	return h, ok
}

// IsDefined reports whether a type is registered under name.
func (r *Registry) IsDefined(name string) bool {
	_, ok := r.Handler(name)
	return ok
}

// DefinedTypes returns the canonical names of all registered types, sorted.
func (r *Registry) DefinedTypes() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Validate reports whether value is valid for the named type. Undefined types
// accept everything.
func (r *Registry) Validate(name, value string) bool {
	h, ok := r.Handler(name)
	if !ok {
		return true
	}
	return h.Validate(value, nil)
}

// FormatForDisplay trims value and formats it for display. Values that fail
// validation come back as InvalidMarker; undefined types return the trimmed
// value unchanged.
//
// Validation runs without options, so a string longer than its declared
// maximum is truncated by the formatter rather than rejected.
func (r *Registry) FormatForDisplay(name, value string, options []string) string {
	value = strings.TrimSpace(value)
	h, ok := r.Handler(name)
	if !ok {
		return value
	}
	if !h.Validate(value, nil) {
		return InvalidMarker
	}
	return h.FormatForDisplay(value, options)
}

// FormatForSorting returns the sort key for value. Undefined types return the
// value unchanged.
func (r *Registry) FormatForSorting(name, value string) string {
	h, ok := r.Handler(name)
	if !ok {
		return value
	}
	return h.FormatForSorting(value, nil)
}

// GuessType returns the type that value most likely belongs to. When
// candidates is non-nil only those types are considered. A score of 10 wins
// immediately; otherwise the highest score wins, ties going to the type
// registered first. Returns "" when no type was scored.
func (r *Registry) GuessType(value string, candidates []string) string {
	var allowed map[string]bool
	if candidates != nil {
		allowed = make(map[string]bool, len(candidates))
		for _, c := range candidates {
			allowed[NormalizeName(c)] = true
		}
	}

	bestScore := -1
	best := ""
	for _, name := range r.order {
		if allowed != nil && !allowed[name] {
			continue
		}
		score := r.handlers[name].Similarity(value, nil)
		if score >= definiteMatch {
			return name
		}
		if score > bestScore {
			bestScore = score
			best = name
		}
	}
	return best
}
