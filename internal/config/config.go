// Package config loads the wikidb configuration.
//
// A configuration file is TOML or YAML, chosen by extension. The decoded
// document is unified with an embedded CUE schema (schema.cue) that
// supplies defaults, enumerations and ranges and rejects unknown keys, and
// is then decoded into Config.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/roach88/wikidb/internal/types"
	"github.com/roach88/wikidb/internal/wiki"
)

//go:embed schema.cue
var schemaSource string

// Config is the wikidb configuration.
type Config struct {
	Database   Database    `json:"database"`
	Namespaces []Namespace `json:"namespaces"`

	// Locale is the BCP 47 tag of the content language.
	Locale string `json:"locale"`

	// MaxRefreshRate is the number of stale rows refreshed per batch.
	// 0 refreshes all of them and -1 disables the automatic refresh.
	MaxRefreshRate int `json:"max_refresh_rate"`

	// RefreshInterval is the time between background refresh batches, as a
	// Go duration.
	RefreshInterval string `json:"refresh_interval"`

	Server            Server `json:"server"`
	DefaultImageWidth int    `json:"default_image_width"`

	refreshEvery time.Duration
}

// Database selects the store.
type Database struct {
	// Driver is one of sqlite3, sqlite, pgx or mysql.
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// Namespace is a configured wiki namespace.
type Namespace struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Table   bool     `json:"table"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `json:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return fromDocument(map[string]any{})
}

// Load reads the configuration file at path. Files ending in .toml are
// TOML; .yaml and .yml files are YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a configuration document in the format named by ext
// (".toml", ".yaml" or ".yml").
func Parse(data []byte, ext string) (*Config, error) {
	doc := map[string]any{}
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("parse config: unsupported format %q (want .toml, .yaml or .yml)", ext)
	}
	return fromDocument(doc)
}

// fromDocument validates doc against the schema and decodes the result.
func fromDocument(doc map[string]any) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// check validates what the schema leaves to Go.
func (c *Config) check() error {
	for i, ns := range c.Namespaces {
		if ns.Table && ns.ID%2 != 0 {
			return fmt.Errorf("namespace %q: table namespace id %d must be even", ns.Name, ns.ID)
		}
		if len(ns.Aliases) == 0 {
			c.Namespaces[i].Aliases = nil
		}
	}

	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return fmt.Errorf("refresh_interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("refresh_interval: must be positive, got %s", c.RefreshInterval)
	}
	c.refreshEvery = d

	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("locale: %w", err)
	}
	return nil
}

// RefreshEvery returns RefreshInterval as a duration.
func (c *Config) RefreshEvery() time.Duration { return c.refreshEvery }

// WikiNamespaces builds the namespace configuration.
func (c *Config) WikiNamespaces() (*wiki.Namespaces, error) {
	extra := make([]wiki.Namespace, len(c.Namespaces))
	for i, ns := range c.Namespaces {
		extra[i] = wiki.Namespace{ID: ns.ID, Name: ns.Name, Aliases: ns.Aliases, Table: ns.Table}
	}
	n, err := wiki.NewNamespaces(extra...)
	if err != nil {
		return nil, fmt.Errorf("namespaces: %w", err)
	}
	return n, nil
}

// Registry returns the built-in type registry for the configured locale
// and image width.
func (c *Config) Registry(ns *wiki.Namespaces) (*types.Registry, error) {
	loc, err := types.ParseLocale(c.Locale)
	if err != nil {
		return nil, fmt.Errorf("locale: %w", err)
	}
	return types.NewBuiltinRegistry(types.Env{
		Namespaces:        ns,
		Locale:            loc,
		DefaultImageWidth: c.DefaultImageWidth,
	}), nil
}
