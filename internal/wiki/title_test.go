package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNamespaces(t *testing.T) *Namespaces {
	t.Helper()
	ns, err := NewNamespaces(Namespace{ID: 100, Name: "Table", Table: true})
	require.NoError(t, err)
	return ns
}

func TestParseTitle(t *testing.T) {
	ns := testNamespaces(t)

	tests := []struct {
		name      string
		input     string
		defaultNS int
		wantNS    int
		wantKey   string
		wantFull  string
	}{
		{"plain main", "Main Page", NSMain, NSMain, "Main_Page", "Main Page"},
		{"underscores", "main_page", NSMain, NSMain, "Main_page", "Main page"},
		{"collapses spaces", "  Foo   bar ", NSMain, NSMain, "Foo_bar", "Foo bar"},
		{"default namespace", "Cities", 100, 100, "Cities", "Table:Cities"},
		{"explicit prefix", "Table:cities", NSMain, 100, "Cities", "Table:Cities"},
		{"prefix case-insensitive", "table:Cities", NSMain, 100, "Cities", "Table:Cities"},
		{"alias prefix", "Image:Foo.png", NSMain, NSFile, "Foo.png", "File:Foo.png"},
		{"leading colon", ":Cities", 100, NSMain, "Cities", "Cities"},
		{"leading colon with prefix", ":Image:Foo.png", NSMain, NSFile, "Foo.png", "File:Foo.png"},
		{"unknown prefix stays", "Foo:Bar", NSMain, NSMain, "Foo:Bar", "Foo:Bar"},
		{"talk namespace generated", "Table talk:X", NSMain, 101, "X", "Table talk:X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, err := ns.ParseTitle(tt.input, tt.defaultNS)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNS, title.Namespace())
			assert.Equal(t, tt.wantKey, title.DBKey())
			assert.Equal(t, tt.wantFull, title.FullText())
		})
	}
}

func TestParseTitle_Fragment(t *testing.T) {
	ns := testNamespaces(t)

	title, err := ns.ParseTitle("Foo#Section one", NSMain)
	require.NoError(t, err)
	assert.Equal(t, "Foo", title.DBKey())
	assert.Equal(t, "Section one", title.Fragment())
}

func TestParseTitle_Invalid(t *testing.T) {
	ns := testNamespaces(t)

	for _, input := range []string{"", "   ", "Foo[bar", "a|b", "{x}", "Table:", "#only"} {
		_, err := ns.ParseTitle(input, NSMain)
		assert.ErrorIs(t, err, ErrInvalidTitle, "input %q", input)
	}
}

func TestPrefixedDBKey(t *testing.T) {
	ns := testNamespaces(t)

	title, err := ns.ParseTitle("User talk:some one", NSMain)
	require.NoError(t, err)
	assert.Equal(t, "User_talk:Some_one", title.PrefixedDBKey())
}

func TestMakeTitle(t *testing.T) {
	ns := testNamespaces(t)

	title := ns.MakeTitle(100, "Foo_bar")
	assert.Equal(t, "Table:Foo bar", title.FullText())

	parsed, err := ns.ParseTitle("Table:Foo bar", NSMain)
	require.NoError(t, err)
	assert.Equal(t, parsed, title)
}

func TestNamespaces_TableNamespaces(t *testing.T) {
	ns, err := NewNamespaces(
		Namespace{ID: 100, Name: "Table", Table: true},
		Namespace{ID: 102, Name: "Archive", Table: false},
		Namespace{ID: NSMediaWiki, Table: true},
		Namespace{ID: 104, Name: "Data", Table: true},
	)
	require.NoError(t, err)

	assert.Equal(t, []int{100, 104}, ns.TableNamespaces())
	assert.Equal(t, 100, ns.DefaultTableNamespace())
	assert.True(t, ns.IsTableNamespace(104))
	assert.False(t, ns.IsTableNamespace(102))
	assert.False(t, ns.IsTableNamespace(NSMediaWiki), "MediaWiki namespace never holds tables")
	assert.Equal(t, "MediaWiki", ns.Name(NSMediaWiki))
}

func TestNamespaces_DefaultFallsBackToMain(t *testing.T) {
	ns := MustNamespaces()
	assert.Equal(t, NSMain, ns.DefaultTableNamespace())
}

func TestNewNamespaces_DuplicateName(t *testing.T) {
	_, err := NewNamespaces(Namespace{ID: 100, Name: "Help", Table: true})
	assert.Error(t, err)
}

func TestParseRedirect(t *testing.T) {
	ns := testNamespaces(t)

	target, ok := ns.ParseRedirect("#REDIRECT [[Table:Towns]]\nextra text")
	require.True(t, ok)
	assert.Equal(t, 100, target.Namespace())
	assert.Equal(t, "Towns", target.DBKey())

	target, ok = ns.ParseRedirect("  #redirect: [[towns|label]]")
	require.True(t, ok)
	assert.Equal(t, NSMain, target.Namespace())
	assert.Equal(t, "Towns", target.DBKey())

	_, ok = ns.ParseRedirect("Some text\n#REDIRECT [[Foo]]")
	assert.False(t, ok)

	_, ok = ns.ParseRedirect("#REDIRECT [[]]")
	assert.False(t, ok)
}
