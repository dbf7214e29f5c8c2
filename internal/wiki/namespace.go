package wiki

import (
	"fmt"
	"sort"
	"strings"
)

// Built-in namespace IDs.
const (
	NSMain          = 0
	NSTalk          = 1
	NSUser          = 2
	NSUserTalk      = 3
	NSProject       = 4
	NSProjectTalk   = 5
	NSFile          = 6
	NSFileTalk      = 7
	NSMediaWiki     = 8
	NSMediaWikiTalk = 9
	NSTemplate      = 10
	NSTemplateTalk  = 11
	NSHelp          = 12
	NSHelpTalk      = 13
	NSCategory      = 14
	NSCategoryTalk  = 15
)

// Namespace describes one wiki namespace.
type Namespace struct {
	ID      int
	Name    string   // Canonical name, with spaces ("User talk"). Empty for Main.
	Aliases []string // Alternative prefixes that resolve to this namespace.
	Table   bool     // True if pages in this namespace are table definitions.
}

// Namespaces is the namespace configuration of a wiki.
//
// It answers prefix lookups for title parsing and decides which namespaces
// hold tables. A Namespaces value is immutable once built and safe for
// concurrent use.
type Namespaces struct {
	byID   map[int]Namespace
	byName map[string]int
	tables []int // Enabled table namespaces, in declaration order.
}

var builtinNamespaces = []Namespace{
	{ID: NSMain, Name: ""},
	{ID: NSTalk, Name: "Talk"},
	{ID: NSUser, Name: "User"},
	{ID: NSUserTalk, Name: "User talk"},
	{ID: NSProject, Name: "Project"},
	{ID: NSProjectTalk, Name: "Project talk"},
	{ID: NSFile, Name: "File", Aliases: []string{"Image"}},
	{ID: NSFileTalk, Name: "File talk", Aliases: []string{"Image talk"}},
	{ID: NSMediaWiki, Name: "MediaWiki"},
	{ID: NSMediaWikiTalk, Name: "MediaWiki talk"},
	{ID: NSTemplate, Name: "Template"},
	{ID: NSTemplateTalk, Name: "Template talk"},
	{ID: NSHelp, Name: "Help"},
	{ID: NSHelpTalk, Name: "Help talk"},
	{ID: NSCategory, Name: "Category"},
	{ID: NSCategoryTalk, Name: "Category talk"},
}

// NewNamespaces builds a namespace configuration from the built-in namespaces
// plus the supplied extra namespaces. An extra namespace with a table flag
// also gets a "<Name> talk" namespace at ID+1 unless one is supplied.
//
// Extra namespaces may override built-ins by ID (e.g. to mark Main as a
// table namespace). Duplicate names are an error.
func NewNamespaces(extra ...Namespace) (*Namespaces, error) {
	ns := &Namespaces{
		byID:   make(map[int]Namespace),
		byName: make(map[string]int),
	}
	for _, n := range builtinNamespaces {
		ns.byID[n.ID] = n
	}

	explicit := make(map[int]bool, len(extra))
	for _, n := range extra {
		explicit[n.ID] = true
	}
	for _, n := range extra {
		if n.ID < 0 {
			return nil, fmt.Errorf("namespace %q: negative id %d", n.Name, n.ID)
		}
		if existing, ok := ns.byID[n.ID]; ok && n.Name == "" {
			n.Name = existing.Name
		}
		ns.byID[n.ID] = n
		if n.Table {
			ns.tables = append(ns.tables, n.ID)
		}
		talkID := n.ID + 1
		if n.ID%2 == 0 && n.Name != "" && !explicit[talkID] {
			if _, ok := ns.byID[talkID]; !ok {
				ns.byID[talkID] = Namespace{ID: talkID, Name: n.Name + " talk"}
			}
		}
	}

	for _, n := range ns.byID {
		names := append([]string{n.Name}, n.Aliases...)
		for _, name := range names {
			key := namespaceKey(name)
			if key == "" {
				continue
			}
			if other, ok := ns.byName[key]; ok && other != n.ID {
				return nil, fmt.Errorf("namespace name %q used by both %d and %d", name, other, n.ID)
			}
			ns.byName[key] = n.ID
		}
	}

	return ns, nil
}

// MustNamespaces is like NewNamespaces but panics on error.
// Intended for static configuration in tests and defaults.
func MustNamespaces(extra ...Namespace) *Namespaces {
	ns, err := NewNamespaces(extra...)
	if err != nil {
		panic(err)
	}
	return ns
}

// Lookup returns the namespace ID for a prefix. Matching ignores case and
// treats underscores as spaces.
func (n *Namespaces) Lookup(prefix string) (int, bool) {
	id, ok := n.byName[namespaceKey(prefix)]
	return id, ok
}

// Name returns the canonical name of a namespace, or "" if unknown.
func (n *Namespaces) Name(id int) string {
	return n.byID[id].Name
}

// Get returns the namespace with the given ID.
func (n *Namespaces) Get(id int) (Namespace, bool) {
	ns, ok := n.byID[id]
	return ns, ok
}

// Names returns the canonical name and all aliases of a namespace.
func (n *Namespaces) Names(id int) []string {
	ns, ok := n.byID[id]
	if !ok {
		return nil
	}
	return append([]string{ns.Name}, ns.Aliases...)
}

// IsTableNamespace reports whether pages in the namespace are tables.
// The MediaWiki namespace never holds tables, even when configured to.
func (n *Namespaces) IsTableNamespace(id int) bool {
	if id == NSMediaWiki {
		return false
	}
	ns, ok := n.byID[id]
	return ok && ns.Table
}

// TableNamespaces returns the enabled table namespaces in declaration order.
func (n *Namespaces) TableNamespaces() []int {
	out := make([]int, 0, len(n.tables))
	for _, id := range n.tables {
		if n.IsTableNamespace(id) {
			out = append(out, id)
		}
	}
	return out
}

// DefaultTableNamespace returns the first enabled table namespace, falling
// back to Main when none is enabled.
func (n *Namespaces) DefaultTableNamespace() int {
	if ids := n.TableNamespaces(); len(ids) > 0 {
		return ids[0]
	}
	return NSMain
}

// IDs returns all known namespace IDs in ascending order.
func (n *Namespaces) IDs() []int {
	ids := make([]int, 0, len(n.byID))
	for id := range n.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func namespaceKey(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(strings.TrimSpace(name))
}
