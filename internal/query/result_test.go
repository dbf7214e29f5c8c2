package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/wiki"
)

func record(pairs ...any) *schema.Record {
	r := schema.NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1].(schema.Value))
	}
	return r
}

func newTestResult(t *testing.T) (*Result, wiki.Title) {
	t.Helper()
	f := newPlanFixture(t)
	source := f.src.NS.MakeTitle(wiki.NSMain, "Staff_list")

	res := NewResultFromData(f.people, []*schema.Record{
		record(
			"Name", schema.Scalar("Alexandria"),
			"Years", schema.Scalar("40"),
			"Colour", schema.Scalar("Red"),
		),
		record(
			"Name", schema.Scalar("Bob"),
			"Age", schema.Scalar("7"),
			"Tags", schema.Multi{"x", "y"},
			"Colour", schema.Scalar("Blue"),
		),
	}, source)
	return res, source
}

func TestResult_Classification(t *testing.T) {
	res, _ := newTestResult(t)

	assert.Equal(t, 2, res.Len())
	assert.Equal(t, []string{"_Row", "_SourceArticle"}, res.MetaDataFields())
	assert.Equal(t, []string{"Name", "Age"}, res.DefinedFields())
	assert.Equal(t, []string{"Colour", "Tags"}, res.UndefinedFields())
	assert.True(t, res.HasUndefinedFields())

	assert.Equal(t, map[string]string{"Years": "Age"}, res.MigratedFields(0))
	assert.True(t, res.HasMigratedFields(0))
	assert.False(t, res.HasMigratedFields(1))
	assert.Empty(t, res.MigratedFields(7))
}

func TestResult_RawFieldValue(t *testing.T) {
	res, _ := newTestResult(t)

	tests := []struct {
		name  string
		row   int
		field string
		want  schema.Value
	}{
		{"exact name", 1, "Age", schema.Scalar("7")},
		{"alias falls back to the real field", 1, "Years", schema.Scalar("7")},
		{"real field falls back to an alias", 0, "Age", schema.Scalar("40")},
		{"multi value keeps its items", 1, "Tags", schema.Multi{"x", "y"}},
		{"missing field", 0, "Tags", schema.Scalar("")},
		{"row number", 1, "_Row", schema.Scalar("2")},
		{"source article", 0, "_SourceArticle", schema.Scalar("Staff list")},
		{"missing row", 5, "Name", schema.Scalar("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, res.RawFieldValue(tt.row, tt.field))
		})
	}
}

func TestResult_FieldValue(t *testing.T) {
	res, _ := newTestResult(t)

	assert.Equal(t, "<nowiki>Alexandria</nowiki>", res.FieldValue(0, "Name"))
	assert.Equal(t, "40", res.FieldValue(0, "Age"))
	assert.Equal(t, "x &bull; y", res.FieldValue(1, "Tags"))
	assert.Equal(t, "[[Staff list]]", res.FieldValue(0, "_SourceArticle"))
	assert.Equal(t, "1", res.FieldValue(0, "_Row"))
}

func TestResult_FieldValues(t *testing.T) {
	res, _ := newTestResult(t)

	all := res.FieldValues(1, nil)
	assert.Equal(t, []string{"_Row", "_SourceArticle", "Name", "Age", "Tags", "Colour"}, all.Fields())

	defined := res.DefinedFieldValues(0)
	assert.Equal(t, []string{"Name", "Age"}, defined.Fields())
	v, _ := defined.Get("Age")
	assert.Equal(t, schema.Scalar("40"), v)

	undefined := res.UndefinedFieldValues(0)
	v, _ = undefined.Get("Tags")
	assert.Equal(t, schema.Scalar(""), v)

	meta := res.MetaDataFieldValues(1)
	v, _ = meta.Get("_SourceArticle")
	assert.Equal(t, schema.Scalar("[[Staff list]]"), v)

	missing := res.FieldValues(9, []string{"Name"})
	v, ok := missing.Get("Name")
	require.True(t, ok)
	assert.Equal(t, schema.Scalar(""), v)
}

func TestResult_NormalisedRow(t *testing.T) {
	res, _ := newTestResult(t)

	row := res.NormalisedRow(0)
	assert.Equal(t, []string{"_Row", "_SourceArticle", "Name", "Age", "Colour", "Years"}, row.Fields())

	get := func(name string) schema.Value {
		v, _ := row.Get(name)
		return v
	}
	assert.Equal(t, schema.Scalar("1"), get("_Row"))
	assert.Equal(t, schema.Scalar("<nowiki>Alexandria</nowiki>"), get("Name"))
	assert.Equal(t, schema.Scalar("40"), get("Age"))
	assert.Equal(t, schema.Scalar("40"), get("Years"), "a missing alias shows the value of its field")
	assert.Equal(t, schema.Scalar("Red"), get("Colour"))

	assert.Equal(t, 0, res.NormalisedRow(3).Len())
}

func TestResult_Empty(t *testing.T) {
	res := newResult(nil, nil, 0, -1)

	assert.Zero(t, res.Len())
	assert.Nil(t, res.MetaDataFields())
	assert.Nil(t, res.DefinedFields())
	assert.False(t, res.HasUndefinedFields())
	assert.Equal(t, schema.Scalar(""), res.RawFieldValue(0, "Name"))
}
