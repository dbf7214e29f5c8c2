package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wikidb/internal/engine"
	"github.com/roach88/wikidb/internal/store"
	"github.com/roach88/wikidb/internal/testutil"
)

const (
	peopleDef = "> Name : string\n> Age : integer\n> Years [[#Age]]\n"

	staffList = `<data table="People">
Name=Alexandria
Years=40
</data>
<data table="Persons" fields="Name,Age">
Bob,7
Carol,12
</data>`
)

func init() {
	gin.SetMode(gin.TestMode)
}

// createTestServer creates a server over a new SQLite-backed engine.
func createTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	ns := testutil.Namespaces(t)
	s, err := store.Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "test.db"), store.WithNamespaces(ns))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(s, testutil.Registry(ns),
		engine.WithIDGenerator(testutil.NewSequenceIDs("unit")),
		engine.WithLogger(discard),
	)
	srv := New(e, WithLogger(discard), WithRefresher(e.NewRefresher(time.Hour)))
	return srv, e
}

func do(t *testing.T, srv *Server, method, target, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func seed(t *testing.T, srv *Server) {
	t.Helper()
	for _, p := range []struct{ title, text string }{
		{"Table:People", peopleDef},
		{"Table:Persons", "#REDIRECT [[Table:People]]"},
		{"Staff%20list", staffList},
	} {
		code, body := do(t, srv, http.MethodPut, "/api/pages/"+p.title, p.text)
		require.Equal(t, http.StatusOK, code, body)
	}
}

func rowNames(t *testing.T, body map[string]any) []string {
	t.Helper()
	rows, ok := body["rows"].([]any)
	require.True(t, ok, body)
	out := []string{}
	for _, r := range rows {
		out = append(out, r.(map[string]any)["Name"].(string))
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := createTestServer(t)
	code, body := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestPutPage(t *testing.T) {
	srv, _ := createTestServer(t)

	code, body := do(t, srv, http.MethodPut, "/api/pages/Table:People", peopleDef)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Table:People", body["page"])
	assert.Equal(t, "unit-0001", body["unit"])
	assert.Equal(t, true, body["table_saved"])

	code, body = do(t, srv, http.MethodPut, "/api/pages/Staff%20list", staffList)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Staff list", body["page"])
	assert.EqualValues(t, 3, body["rows_written"])
	assert.Equal(t, false, body["table_saved"])

	code, body = do(t, srv, http.MethodPut, "/api/pages/Bad%7Ctitle", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "invalid title")
}

func TestRows(t *testing.T) {
	srv, _ := createTestServer(t)
	seed(t, srv)

	tests := []struct {
		name   string
		table  string
		params url.Values
		count  float64
		want   []string
	}{
		{"all rows", "People", nil, 3, []string{"Alexandria", "Bob", "Carol"}},
		{"through alias", "Persons", url.Values{"criteria": {"Age > 10"}, "sort": {"Age DESC"}}, 2, []string{"Alexandria", "Carol"}},
		{"paged", "People", url.Values{"sort": {"Years"}, "offset": {"1"}, "limit": {"1"}}, 3, []string{"Carol"}},
		{"by source", "People", url.Values{"source": {"Staff list"}, "criteria": {"Name = Bob"}}, 1, []string{"Bob"}},
		{"no match", "People", url.Values{"source": {"Elsewhere"}}, 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/tables/" + tt.table + "/rows"
			if tt.params != nil {
				target += "?" + tt.params.Encode()
			}
			code, body := do(t, srv, http.MethodGet, target, "")
			require.Equal(t, http.StatusOK, code, body)
			assert.Equal(t, "Table:People", body["table"])
			assert.Equal(t, tt.count, body["count"])
			assert.Equal(t, tt.want, rowNames(t, body))
		})
	}
}

func TestRows_NormalisesAliases(t *testing.T) {
	srv, _ := createTestServer(t)
	seed(t, srv)

	code, body := do(t, srv, http.MethodGet, "/api/tables/People/rows?limit=1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"Name", "Age"}, body["fields"])
	assert.Equal(t, []any{}, body["undefined_fields"])

	rows := body["rows"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "40", row["Age"])
	assert.Equal(t, "Staff list", row["_SourceArticle"])
	assert.Equal(t, "40", row["Years"])
	assert.Equal(t, "1", row["_Row"])
}

func TestRows_Errors(t *testing.T) {
	srv, _ := createTestServer(t)
	seed(t, srv)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"unclosed parenthesis", "/api/tables/People/rows?criteria=" + url.QueryEscape("(Age > 10"), "Unclosed parenthesis"},
		{"bad table", "/api/tables/Help:People/rows", "Invalid table name"},
		{"bad offset", "/api/tables/People/rows?offset=-1", "invalid offset"},
		{"bad limit", "/api/tables/People/rows?limit=many", "invalid limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, srv, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestTables(t *testing.T) {
	srv, _ := createTestServer(t)
	seed(t, srv)
	do(t, srv, http.MethodPut, "/api/pages/Table:Empty", "> Thing : string\n")
	do(t, srv, http.MethodPut, "/api/pages/Ghosts", `<data table="Ghost">Name=Casper</data>`)

	code, body := do(t, srv, http.MethodGet, "/api/tables", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "defined", body["kind"])
	assert.Equal(t, []any{
		map[string]any{"title": "Table:Empty", "rows": float64(0)},
		map[string]any{"title": "Table:People", "rows": float64(1)},
		map[string]any{"title": "Table:Persons", "redirect": "Table:People", "rows": float64(2)},
	}, body["tables"])

	_, body = do(t, srv, http.MethodGet, "/api/tables?undefined=1", "")
	assert.Equal(t, []any{
		map[string]any{"title": "Table:Ghost", "rows": float64(1)},
	}, body["tables"])

	_, body = do(t, srv, http.MethodGet, "/api/tables?empty=1", "")
	assert.Equal(t, []any{
		map[string]any{"title": "Table:Empty", "rows": float64(0)},
	}, body["tables"])
}

func TestDeletePage(t *testing.T) {
	srv, _ := createTestServer(t)
	seed(t, srv)

	code, body := do(t, srv, http.MethodDelete, "/api/pages/Staff%20list", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["deleted"])
	assert.EqualValues(t, 3, body["rows_removed"])

	_, body = do(t, srv, http.MethodGet, "/api/tables/People/rows", "")
	assert.Equal(t, float64(0), body["count"])
}

func TestRefresh(t *testing.T) {
	srv, _ := createTestServer(t)
	seed(t, srv)

	// Saving the definition again marks the rows of both tables stale.
	code, body := do(t, srv, http.MethodPut, "/api/pages/Table:People", peopleDef)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["stale_rows"])

	code, body = do(t, srv, http.MethodPost, "/api/refresh?limit=2", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["refreshed"])
	assert.EqualValues(t, 1, body["remaining"])

	_, body = do(t, srv, http.MethodPost, "/api/refresh", "")
	assert.EqualValues(t, 1, body["refreshed"])
	assert.EqualValues(t, 0, body["remaining"])

	code, body = do(t, srv, http.MethodPost, "/api/refresh?limit=all", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "invalid limit")
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv, _ := createTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
