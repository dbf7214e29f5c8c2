package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wikidb/internal/wiki"
)

// PageChange is one entry of a page dump: a page's new text, or its
// deletion.
type PageChange struct {
	Title   string `yaml:"title"`
	Text    string `yaml:"text,omitempty"`
	Deleted bool   `yaml:"deleted,omitempty"`
}

// ParseDump reads a YAML list of page changes.
//
//	- title: Table:People
//	  text: |
//	    > Name : string
//	- title: Old page
//	  deleted: true
func ParseDump(r io.Reader) ([]PageChange, error) {
	var changes []PageChange
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&changes); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse dump: %w", err)
	}
	for i, c := range changes {
		if c.Title == "" {
			return nil, fmt.Errorf("parse dump: entry %d: missing title", i+1)
		}
		if c.Deleted && c.Text != "" {
			return nil, fmt.Errorf("parse dump: entry %d (%s): deleted page has text", i+1, c.Title)
		}
	}
	return changes, nil
}

// Apply runs the changes in order, each in its own transaction, and stops
// at the first failure.
func (e *Engine) Apply(ctx context.Context, changes []PageChange) ([]Update, error) {
	out := make([]Update, 0, len(changes))
	for _, c := range changes {
		page, err := e.Namespaces().ParseTitle(c.Title, wiki.NSMain)
		if err != nil {
			return out, fmt.Errorf("apply %q: %w", c.Title, err)
		}

		var u Update
		if c.Deleted {
			u, err = e.PageDeleted(ctx, page)
		} else {
			u, err = e.PageUpdated(ctx, page, c.Text)
		}
		if err != nil {
			return out, fmt.Errorf("apply %q: %w", c.Title, err)
		}
		out = append(out, u)
	}
	return out, nil
}
