package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roach88/wikidb/internal/engine"
	"github.com/roach88/wikidb/internal/query"
	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/store"
	"github.com/roach88/wikidb/internal/wiki"
)

type tableJSON struct {
	Title    string `json:"title"`
	Redirect string `json:"redirect,omitempty"`
	Rows     int    `json:"rows"`
}

type updateJSON struct {
	Page        string `json:"page"`
	Unit        string `json:"unit"`
	Deleted     bool   `json:"deleted,omitempty"`
	TableSaved  bool   `json:"table_saved"`
	RowsRemoved int64  `json:"rows_removed"`
	RowsWritten int    `json:"rows_written"`
	StaleRows   int64  `json:"stale_rows"`
}

func toUpdateJSON(u engine.Update) updateJSON {
	return updateJSON{
		Page:        u.Page.FullText(),
		Unit:        u.Unit,
		Deleted:     u.Deleted,
		TableSaved:  u.TableSaved,
		RowsRemoved: u.RowsRemoved,
		RowsWritten: u.RowsWritten,
		StaleRows:   u.StaleRows,
	}
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// GET /healthz
func HealthHandler(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := e.Store().DB().PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// GET /api/tables
// GET /api/tables?undefined=1
// GET /api/tables?empty=1
func TablesHandler(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		list := e.Store().Tables
		kind := "defined"
		if _, ok := c.GetQuery("undefined"); ok {
			list, kind = e.Store().UndefinedTables, "undefined"
		} else if _, ok := c.GetQuery("empty"); ok {
			list, kind = e.Store().EmptyTables, "empty"
		}

		infos, err := list(ctx)
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": kind, "tables": tablesJSON(infos)})
	}
}

func tablesJSON(infos []store.TableInfo) []tableJSON {
	out := make([]tableJSON, len(infos))
	for i, info := range infos {
		out[i] = tableJSON{Title: info.Title.FullText(), Rows: info.Rows}
		if !info.Redirect.IsZero() {
			out[i].Redirect = info.Redirect.FullText()
		}
	}
	return out
}

// GET /api/tables/:table/rows
func RowsHandler(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		offset, err := intParam(c, "offset", 0)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		limit, err := intParam(c, "limit", DefaultRowLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		req := query.Request{
			Tables:   []string{c.Param("table")},
			Criteria: c.Query("criteria"),
			Sort:     c.Query("sort"),
		}
		if src := c.Query("source"); src != "" {
			t, err := e.Namespaces().ParseTitle(src, wiki.NSMain)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source: " + err.Error()})
				return
			}
			req.Source = &t
		}

		q, err := e.Query(ctx, req)
		if err != nil {
			internalError(c, err)
			return
		}
		if q.HasErrors() {
			c.JSON(http.StatusBadRequest, gin.H{"error": q.ErrorMessage()})
			return
		}

		count, err := q.Count(ctx)
		if err != nil {
			internalError(c, err)
			return
		}
		res, err := q.Rows(ctx, offset, limit)
		if err != nil {
			internalError(c, err)
			return
		}

		rows := make([]*schema.Record, res.Len())
		for i := range rows {
			rows[i] = res.NormalisedRow(i)
		}
		c.JSON(http.StatusOK, gin.H{
			"table":            q.Table().Title().FullText(),
			"count":            count,
			"offset":           res.Offset(),
			"limit":            res.Limit(),
			"fields":           emptyIfNil(res.DefinedFields()),
			"undefined_fields": emptyIfNil(res.UndefinedFields()),
			"rows":             rows,
		})
	}
}

// intParam reads a non-negative integer query parameter.
func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &paramError{name: name, value: raw}
	}
	return n, nil
}

type paramError struct{ name, value string }

func (e *paramError) Error() string {
	return "invalid " + e.name + ": " + strconv.Quote(e.value)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// pageTitle parses the *title path parameter.
func pageTitle(c *gin.Context, e *engine.Engine) (wiki.Title, bool) {
	raw := strings.TrimPrefix(c.Param("title"), "/")
	t, err := e.Namespaces().ParseTitle(raw, wiki.NSMain)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title: " + err.Error()})
		return wiki.Title{}, false
	}
	return t, true
}

// PUT /api/pages/*title
func PutPageHandler(e *engine.Engine, r *engine.Refresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, ok := pageTitle(c, e)
		if !ok {
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
			return
		}

		u, err := e.PageUpdated(c.Request.Context(), page, string(body))
		if err != nil {
			internalError(c, err)
			return
		}
		if u.StaleRows > 0 && r != nil {
			r.Trigger()
		}
		c.JSON(http.StatusOK, toUpdateJSON(u))
	}
}

// DELETE /api/pages/*title
func DeletePageHandler(e *engine.Engine, r *engine.Refresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, ok := pageTitle(c, e)
		if !ok {
			return
		}
		u, err := e.PageDeleted(c.Request.Context(), page)
		if err != nil {
			internalError(c, err)
			return
		}
		if u.TableSaved && r != nil {
			r.Trigger()
		}
		c.JSON(http.StatusOK, toUpdateJSON(u))
	}
}

// POST /api/refresh?limit=N
//
// Without a limit the configured refresh rate applies; limit=0 refreshes
// every stale row.
func RefreshHandler(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var limit *int
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit: " + strconv.Quote(raw)})
				return
			}
			limit = &n
		}

		n, err := e.RefreshStaleFieldData(ctx, limit)
		if err != nil {
			internalError(c, err)
			return
		}
		remaining, err := e.CountStaleRows(ctx)
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"refreshed": n, "remaining": remaining})
	}
}
