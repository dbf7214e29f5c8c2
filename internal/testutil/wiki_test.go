package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemSource(t *testing.T) {
	ctx := context.Background()
	src := NewMemSource(t)
	people := src.Define(t, "People", "> Name : string\n> Age : integer")
	src.Define(t, "Persons", "#REDIRECT [[Table:People]]")
	src.Define(t, "Nowhere", "#REDIRECT [[Main Page]]")

	stored, ok, err := src.LoadTable(ctx, people)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Name", "Age"}, stored.Definition.FieldNames(false))

	aliases, err := src.RedirectsTo(ctx, people)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "Table:Persons", aliases[0].PrefixedDBKey())

	nowhere, _, err := src.LoadTable(ctx, src.NS.MakeTitle(NSTable, "Nowhere"))
	require.NoError(t, err)
	assert.True(t, nowhere.Redirect.IsZero(), "redirects outside table namespaces are ignored")

	tbl, err := src.Session().TableByName(ctx, "Persons")
	require.NoError(t, err)
	dest, err := tbl.Destination(ctx)
	require.NoError(t, err)
	assert.Equal(t, people, dest.Title())
}
