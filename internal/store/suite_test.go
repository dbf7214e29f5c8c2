package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/table"
	"github.com/roach88/wikidb/internal/wiki"
)

// runStoreSuite exercises the store API against a freshly opened store.
// newStore is called once per subtest.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) *Store) {
	t.Run("table definitions", func(t *testing.T) { testTableDefinitions(t, newStore(t)) })
	t.Run("redirects", func(t *testing.T) { testRedirects(t, newStore(t)) })
	t.Run("rows and fields", func(t *testing.T) { testRowsAndFields(t, newStore(t)) })
	t.Run("stale rows", func(t *testing.T) { testStaleRows(t, newStore(t)) })
	t.Run("listings", func(t *testing.T) { testListings(t, newStore(t)) })
	t.Run("transaction rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
}

func TestStoreSuite(t *testing.T) {
	for _, driver := range sqliteDrivers {
		t.Run(driver, func(t *testing.T) {
			runStoreSuite(t, func(t *testing.T) *Store { return createTestStoreWith(t, driver) })
		})
	}
}

// Compile-time check that both connection kinds serve table sessions.
var (
	_ table.Source = (*Store)(nil)
	_ table.Source = (*Tx)(nil)
)

func testTableDefinitions(t *testing.T, s *Store) {
	ctx := context.Background()
	people := title(t, s, "Table:People")

	_, ok, err := s.LoadTable(ctx, people)
	require.NoError(t, err)
	assert.False(t, ok)

	def := schema.NewDefinition()
	def.AddField(schema.FieldDef{Name: "Name", Type: "string", Options: []string{"10"}})
	def.AddField(schema.FieldDef{Name: "Years", AliasOf: "Age"})
	require.NoError(t, s.SaveTable(ctx, people, def, wiki.Title{}))

	stored, ok, err := s.LoadTable(ctx, people)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Name", "Years"}, stored.Definition.FieldNames(true))
	f, _ := stored.Definition.Field("Name")
	assert.Equal(t, []string{"10"}, f.Options)
	assert.True(t, stored.Redirect.IsZero())

	// Saving again replaces the definition.
	require.NoError(t, s.SaveTable(ctx, people, schema.NewDefinition(), wiki.Title{}))
	stored, _, err = s.LoadTable(ctx, people)
	require.NoError(t, err)
	assert.Empty(t, stored.Definition.FieldNames(true))

	deleted, err := s.DeleteTable(ctx, people)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.DeleteTable(ctx, people)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testRedirects(t *testing.T, s *Store) {
	ctx := context.Background()
	people := title(t, s, "Table:People")
	persons := title(t, s, "Table:Persons")
	folk := title(t, s, "Archive:Folk")

	require.NoError(t, s.SaveTable(ctx, people, schema.NewDefinition(), wiki.Title{}))
	require.NoError(t, s.SaveTable(ctx, persons, schema.NewDefinition(), people))
	require.NoError(t, s.SaveTable(ctx, folk, schema.NewDefinition(), people))

	stored, ok, err := s.LoadTable(ctx, persons)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, people, stored.Redirect)

	got, err := s.RedirectsTo(ctx, people)
	require.NoError(t, err)
	assert.Equal(t, []wiki.Title{persons, folk}, got, "ordered by namespace, then title")

	got, err = s.RedirectsTo(ctx, persons)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testRowsAndFields(t *testing.T, s *Store) {
	ctx := context.Background()
	page := title(t, s, "Ann Smith")
	other := title(t, s, "Bob Jones")
	people := title(t, s, "Table:People")

	id1, err := s.InsertRow(ctx, NewRow{
		Page:   page,
		Table:  people,
		Data:   testRecord("Name", "Ann", "Age", "30"),
		Fields: []FieldEntry{{Name: "Name", Value: "Ann"}, {Name: "Age", Value: "k30"}},
	})
	require.NoError(t, err)
	id2, err := s.InsertRow(ctx, NewRow{Page: page, Table: people, Data: testRecord("Name", "Anne")})
	require.NoError(t, err)
	_, err = s.InsertRow(ctx, NewRow{Page: other, Table: people, Data: testRecord("Name", "Bob")})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	rows, err := s.RowsForPage(ctx, page)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, id1, rows[0].ID)
	assert.Equal(t, page, rows[0].Page)
	assert.Equal(t, people, rows[0].Table)
	assert.Equal(t, []string{"Name", "Age"}, rows[0].Data.Fields())
	assert.False(t, rows[0].Stale)

	fields, err := s.Fields(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, []FieldEntry{{Name: "Age", Value: "k30"}, {Name: "Name", Value: "Ann"}}, fields)

	n, err := s.DeleteRowsForPage(ctx, page)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	rows, err = s.RowsForPage(ctx, page)
	require.NoError(t, err)
	assert.Empty(t, rows)
	fields, err = s.Fields(ctx, id1)
	require.NoError(t, err)
	assert.Empty(t, fields)

	rows, err = s.RowsForPage(ctx, other)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "rows of other pages are kept")
}

func testStaleRows(t *testing.T, s *Store) {
	ctx := context.Background()
	page := title(t, s, "Ann Smith")
	people := title(t, s, "Table:People")
	persons := title(t, s, "Table:Persons")
	things := title(t, s, "Table:Things")

	insert := func(tbl wiki.Title) int64 {
		id, err := s.InsertRow(ctx, NewRow{
			Page: page, Table: tbl, Data: testRecord("A", "1"),
			Fields: []FieldEntry{{Name: "A", Value: "old"}},
		})
		require.NoError(t, err)
		return id
	}
	p1 := insert(people)
	p2 := insert(persons)
	insert(things)

	n, err := s.MarkTablesStale(ctx, []wiki.Title{people, persons})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	count, err := s.CountStaleRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stale, err := s.StaleRows(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, p1, stale[0].ID)
	assert.True(t, stale[0].Stale)

	var replaced bool
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		var err error
		replaced, err = tx.ReplaceFields(ctx, p1, []FieldEntry{{Name: "A", Value: "new"}, {Name: "B", Value: "x"}})
		return err
	}))
	assert.True(t, replaced)

	fields, err := s.Fields(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, []FieldEntry{{Name: "A", Value: "new"}, {Name: "B", Value: "x"}}, fields)

	again, err := s.ReplaceFields(ctx, p1, nil)
	require.NoError(t, err)
	assert.False(t, again, "a refreshed row is not refreshed twice")

	stale, err = s.StaleRows(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, p2, stale[0].ID)

	n, err = s.MarkAllRowsStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	count, err = s.CountStaleRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func testListings(t *testing.T, s *Store) {
	ctx := context.Background()
	page := title(t, s, "Ann Smith")
	people := title(t, s, "Table:People")
	persons := title(t, s, "Table:Persons")
	empty := title(t, s, "Table:Empty")
	loose := title(t, s, "Table:Loose")

	require.NoError(t, s.SaveTable(ctx, people, schema.NewDefinition(), wiki.Title{}))
	require.NoError(t, s.SaveTable(ctx, persons, schema.NewDefinition(), people))
	require.NoError(t, s.SaveTable(ctx, empty, schema.NewDefinition(), wiki.Title{}))
	for _, tbl := range []wiki.Title{people, people, loose} {
		_, err := s.InsertRow(ctx, NewRow{Page: page, Table: tbl, Data: testRecord("A", "1")})
		require.NoError(t, err)
	}

	all, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TableInfo{
		{Title: empty},
		{Title: people, Rows: 2},
		{Title: persons, Redirect: people},
	}, all)

	undefined, err := s.UndefinedTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TableInfo{{Title: loose, Rows: 1}}, undefined)

	empties, err := s.EmptyTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TableInfo{{Title: empty}}, empties)
}

func testRollback(t *testing.T, s *Store) {
	ctx := context.Background()
	page := title(t, s, "Ann Smith")
	people := title(t, s, "Table:People")

	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.InsertRow(ctx, NewRow{Page: page, Table: people, Data: testRecord("A", "1")}); err != nil {
			return err
		}
		if err := tx.SaveTable(ctx, people, schema.NewDefinition(), wiki.Title{}); err != nil {
			return err
		}

		// Reads inside the transaction see its writes.
		_, ok, err := tx.LoadTable(ctx, people)
		require.NoError(t, err)
		assert.True(t, ok)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	rows, err := s.RowsForPage(ctx, page)
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, ok, err := s.LoadTable(ctx, people)
	require.NoError(t, err)
	assert.False(t, ok)
}
