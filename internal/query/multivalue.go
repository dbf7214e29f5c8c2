package query

import (
	"sort"
	"strings"

	"github.com/roach88/wikidb/internal/schema"
)

// sortMultiValues orders the items of every multi-value field that is a
// sort key, by the field's sort format and ignoring case. When a field is
// listed twice, its first entry decides.
func (q *Query) sortMultiValues(rec *schema.Record) {
	done := map[string]bool{}
	for _, s := range q.sort {
		name := s.Field.Name
		if done[name] {
			continue
		}
		v, ok := rec.Get(name)
		if !ok {
			continue
		}
		multi, ok := v.(schema.Multi)
		if !ok {
			continue
		}

		items := make([]string, len(multi))
		copy(items, multi)
		keys := make(map[string]string, len(items))
		for _, item := range items {
			keys[item] = strings.ToLower(q.tbl.FormatForSorting(name, item))
		}
		desc := s.Desc
		sort.SliceStable(items, func(i, j int) bool {
			if desc {
				return keys[items[i]] > keys[items[j]]
			}
			return keys[items[i]] < keys[items[j]]
		})

		rec.Set(name, schema.Multi(items))
		done[name] = true
	}
}
