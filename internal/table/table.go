package table

import (
	"context"
	"fmt"

	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/wiki"
)

// Meta-data fields added to every result row. Their leading underscore
// keeps them apart from real field names.
const (
	MetaRow           = "_Row"
	MetaSourceArticle = "_SourceArticle"
)

// MetaDataFields returns the meta-data field names in display order.
func MetaDataFields() []string {
	return []string{MetaRow, MetaSourceArticle}
}

// IsMetaDataField reports whether name is a meta-data field. Matching is
// case-sensitive.
func IsMetaDataField(name string) bool {
	return name == MetaRow || name == MetaSourceArticle
}

// Table is a table page together with its parsed definition.
type Table struct {
	s        *Session
	title    wiki.Title
	def      *schema.Definition
	redirect wiki.Title
	exists   bool
}

// Title returns the table page title.
func (t *Table) Title() wiki.Title { return t.title }

// FullName returns the prefixed title text, e.g. "Table:People".
func (t *Table) FullName() string { return t.title.FullText() }

// Namespace returns the namespace ID of the table page.
func (t *Table) Namespace() int { return t.title.Namespace() }

// DBKey returns the DB key of the table page.
func (t *Table) DBKey() string { return t.title.DBKey() }

// Definition returns the field definitions. It is never nil.
func (t *Table) Definition() *schema.Definition { return t.def }

// Exists reports whether a definition has been stored for the table.
func (t *Table) Exists() bool { return t.exists }

// Redirect returns the table the page redirects to, if any.
func (t *Table) Redirect() (wiki.Title, bool) {
	return t.redirect, !t.redirect.IsZero()
}

// IsValid reports whether the table lies in an enabled table namespace.
func (t *Table) IsValid() bool { return t.s.IsValidTable(t.title) }

// Destination returns the table that data addressed to t is stored in.
//
// Redirects are followed while they point at valid tables. A table that is
// not a redirect, or whose redirect leaves the table namespaces, is its own
// destination. If the chain loops, t is returned.
func (t *Table) Destination(ctx context.Context) (*Table, error) {
	if d, ok := t.s.destinations[t.title]; ok {
		return d, nil
	}

	visited := map[wiki.Title]bool{t.title: true}
	cur := t
	for {
		target, ok := cur.Redirect()
		if !ok || !t.s.IsValidTable(target) {
			break
		}
		target = t.s.ns.MakeTitle(target.Namespace(), target.DBKey())
		if visited[target] {
			cur = t
			break
		}
		visited[target] = true

		next, err := t.s.Table(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("resolve destination of %s: %w", t.FullName(), err)
		}
		cur = next
	}

	t.s.destinations[t.title] = cur
	return cur, nil
}

// IsAlias reports whether t redirects, directly or through other tables,
// to a different table.
func (t *Table) IsAlias(ctx context.Context) (bool, error) {
	d, err := t.Destination(ctx)
	if err != nil {
		return false, err
	}
	return d.title != t.title, nil
}

// Aliases returns t followed by every table that redirects to it, directly
// or through other tables, in breadth-first order. Each table appears once,
// even when redirects form a loop.
func (t *Table) Aliases(ctx context.Context) ([]*Table, error) {
	if a, ok := t.s.aliases[t.title]; ok {
		return a, nil
	}

	out := []*Table{t}
	seen := map[wiki.Title]bool{t.title: true}
	queue := []*Table{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		sources, err := t.s.src.RedirectsTo(ctx, cur.title)
		if err != nil {
			return nil, fmt.Errorf("find aliases of %s: %w", t.FullName(), err)
		}
		for _, src := range sources {
			src = t.s.ns.MakeTitle(src.Namespace(), src.DBKey())
			if seen[src] || !t.s.IsValidTable(src) {
				continue
			}
			seen[src] = true

			alias, err := t.s.Table(ctx, src)
			if err != nil {
				return nil, err
			}
			out = append(out, alias)
			queue = append(queue, alias)
		}
	}

	t.s.aliases[t.title] = out
	return out, nil
}

// AliasTitles returns the titles of Aliases.
func (t *Table) AliasTitles(ctx context.Context) ([]wiki.Title, error) {
	aliases, err := t.Aliases(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]wiki.Title, len(aliases))
	for i, a := range aliases {
		out[i] = a.title
	}
	return out, nil
}
