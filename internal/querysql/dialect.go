package querysql

import (
	"fmt"
	"strings"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	// Name is the database/sql driver family: "sqlite", "postgres" or "mysql".
	Name string

	// Placeholder returns the n-th (1-based) bind parameter marker.
	Placeholder func(n int) string

	// QuoteIdent quotes an identifier.
	QuoteIdent func(name string) string

	// TextParam wraps a placeholder bound to a string literal compared
	// with another literal, where the database cannot infer its type.
	TextParam func(ph string) string

	// unlimited is the LIMIT clause used when only an offset is given.
	unlimited string
}

func questionMark(int) string { return "?" }

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func identity(s string) string { return s }

// SQLite covers both the mattn and the modernc drivers.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: questionMark,
	QuoteIdent:  doubleQuote,
	TextParam:   identity,
	unlimited:   " LIMIT -1",
}

// Postgres is used through pgx's database/sql driver.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	QuoteIdent:  doubleQuote,
	TextParam:   func(ph string) string { return "CAST(" + ph + " AS TEXT)" },
}

// MySQL is used through go-sql-driver/mysql.
var MySQL = Dialect{
	Name:        "mysql",
	Placeholder: questionMark,
	QuoteIdent: func(name string) string {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	},
	TextParam: identity,
	unlimited: " LIMIT 18446744073709551615",
}

// DialectFor returns the dialect of a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "pgx", "postgres":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver: %q", driver)
	}
}

// Rebind rewrites "?" placeholders in a statement written for SQLite into
// the dialect's own markers. Question marks inside quoted strings are left
// alone.
func (d Dialect) Rebind(query string) string {
	if d.Placeholder(1) == "?" {
		return query
	}
	var (
		b     strings.Builder
		n     int
		quote byte
	)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
