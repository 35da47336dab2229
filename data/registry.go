// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	"golang.org/x/sync/errgroup"
)

// registration remembers how a source was registered so it can be
// re-registered under a new name.
type registration struct {
	descriptor *TableDescriptor
	readFrom   string
}

// Table is a handle to a registered source, returned by the mutating
// registry operations.
type Table struct {
	Name   string
	Schema Schema
}

// Registry owns the embedded query engine session and the set of registered
// sources. The session lock serializes mutations (add/remove/rename) against
// concurrent reads (query/list); the name→schema cache is a derived index
// that is repaired from the session on miss, never a hard failure.
type Registry struct {
	mu sync.RWMutex
	db *sql.DB

	cacheMu  sync.Mutex
	sources  map[string]registration
	schemas  map[string]Schema
	backends map[string]struct{}
	rowLimit int
}

// NewRegistry opens an in-memory engine session. Close it when the
// application shuts down; registrations are session-only and rebuilt from
// scratch on restart.
func NewRegistry(ctx context.Context) (*Registry, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open engine session: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping engine session: %w", err)
	}

	return &Registry{
		db:       db,
		sources:  make(map[string]registration),
		schemas:  make(map[string]Schema),
		backends: make(map[string]struct{}),
	}, nil
}

// SetRowLimit caps how many rows a query materializes. 0 removes the cap.
func (r *Registry) SetRowLimit(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 0 {
		n = 0
	}
	r.rowLimit = n
}

// Close releases the engine session.
func (r *Registry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddSource resolves the descriptor's location, sets up any storage backend
// the location's scheme needs, and registers the source as a view in the
// engine. It returns the name the source was registered under.
func (r *Registry) AddSource(ctx context.Context, d *TableDescriptor) (string, error) {
	if d == nil || strings.TrimSpace(d.Location()) == "" {
		return "", fmt.Errorf("%w: empty location", ErrUnsupportedScheme)
	}

	location := d.location
	scheme := d.scheme()
	switch scheme {
	case "file":
		resolved, err := resolveLocalPath(strings.TrimPrefix(location, "file://"))
		if err != nil {
			return "", err
		}
		location = resolved
	case "http", "https", "s3":
		// Resolved by the engine's httpfs backend.
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}

	readFrom, err := readExpr(d, location)
	if err != nil {
		return "", err
	}
	name := d.tableName()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cacheMu.Lock()
	_, taken := r.sources[name]
	r.cacheMu.Unlock()
	if taken {
		return "", fmt.Errorf("%w: %s", ErrDuplicateTable, name)
	}

	if scheme != "file" {
		if err := r.ensureBackend(ctx, scheme, location, d.credentials); err != nil {
			return "", err
		}
	}

	stmt := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s", quoteIdent(name), readFrom)
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return "", fmt.Errorf("%w: %s", ErrDuplicateTable, name)
		}
		return "", fmt.Errorf("failed to register %q: %w", d.Location(), err)
	}

	r.cacheMu.Lock()
	r.sources[name] = registration{descriptor: d, readFrom: readFrom}
	r.cacheMu.Unlock()

	if d.eagerSchema {
		schema, err := r.fetchSchema(ctx, name)
		if err != nil {
			// Roll the registration back rather than leave a source the
			// engine cannot describe.
			_, _ = r.db.ExecContext(ctx, "DROP VIEW "+quoteIdent(name))
			r.cacheMu.Lock()
			delete(r.sources, name)
			r.cacheMu.Unlock()
			return "", fmt.Errorf("failed to read schema of %q: %w", name, err)
		}
		r.cacheMu.Lock()
		r.schemas[name] = schema
		r.cacheMu.Unlock()
	}

	return name, nil
}

// RemoveSource deregisters a source and evicts it from the cache, returning
// the removed handle.
func (r *Registry) RemoveSource(ctx context.Context, name string) (Table, error) {
	name = strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cacheMu.Lock()
	_, ok := r.sources[name]
	schema := r.schemas[name]
	r.cacheMu.Unlock()
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}

	if _, err := r.db.ExecContext(ctx, "DROP VIEW "+quoteIdent(name)); err != nil {
		return Table{}, fmt.Errorf("failed to deregister %q: %w", name, err)
	}

	r.cacheMu.Lock()
	delete(r.sources, name)
	delete(r.schemas, name)
	r.cacheMu.Unlock()

	return Table{Name: name, Schema: schema}, nil
}

// RenameSource re-registers a source under a new name. The rename is atomic
// from the caller's perspective: on any failure the source stays registered
// under its old name. Snapshots built from the old name are stale afterwards
// and need a fresh query.
func (r *Registry) RenameSource(ctx context.Context, from, to string) (Table, error) {
	from = strings.ToLower(from)
	to = sanitizeTableName(to)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cacheMu.Lock()
	reg, ok := r.sources[from]
	_, taken := r.sources[to]
	r.cacheMu.Unlock()
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, from)
	}
	if taken || from == to {
		return Table{}, fmt.Errorf("%w: %s", ErrDuplicateTable, to)
	}

	// Register the new name first so a failure leaves the old registration
	// untouched.
	stmt := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s", quoteIdent(to), reg.readFrom)
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return Table{}, fmt.Errorf("failed to rename %q to %q: %w", from, to, err)
	}
	if _, err := r.db.ExecContext(ctx, "DROP VIEW "+quoteIdent(from)); err != nil {
		_, _ = r.db.ExecContext(ctx, "DROP VIEW "+quoteIdent(to))
		return Table{}, fmt.Errorf("failed to rename %q to %q: %w", from, to, err)
	}

	r.cacheMu.Lock()
	r.sources[to] = reg
	delete(r.sources, from)
	schema, had := r.schemas[from]
	if had {
		r.schemas[to] = schema
		delete(r.schemas, from)
	}
	r.cacheMu.Unlock()

	if !had {
		schema, _ = r.schemaFor(ctx, to)
	}
	return Table{Name: to, Schema: schema}, nil
}

// ListTables enumerates the registered sources and their schemas,
// reconciling the cache with what the engine's catalog reports.
func (r *Registry) ListTables(ctx context.Context) (map[string]Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	out := make(map[string]Schema, len(names))
	var outMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		r.cacheMu.Lock()
		cached, ok := r.schemas[name]
		r.cacheMu.Unlock()
		if ok {
			out[name] = cached
			continue
		}
		g.Go(func() error {
			schema, err := r.fetchSchema(gctx, name)
			if err != nil {
				return err
			}
			outMu.Lock()
			out[name] = schema
			outMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Reconcile: adopt fetched schemas, drop entries the engine no longer
	// knows about.
	r.cacheMu.Lock()
	for name, schema := range out {
		r.schemas[name] = schema
	}
	for name := range r.schemas {
		if _, ok := out[name]; !ok {
			delete(r.schemas, name)
		}
	}
	r.cacheMu.Unlock()

	return out, nil
}

// Query runs a table lookup or free-form SQL against the session and
// materializes every result batch, in engine order, into one snapshot.
func (r *Registry) Query(ctx context.Context, q Query) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var text string
	if q.IsSQL() {
		text = q.SQL()
	} else {
		name := q.Table()
		r.cacheMu.Lock()
		_, ok := r.sources[name]
		r.cacheMu.Unlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
		}
		text = "SELECT * FROM " + quoteIdent(name)
	}
	if r.rowLimit > 0 {
		text = fmt.Sprintf("SELECT * FROM (%s) LIMIT %d",
			strings.TrimRight(strings.TrimSpace(text), ";"), r.rowLimit)
	}

	rows, err := r.db.QueryContext(ctx, text)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer func() { _ = rows.Close() }()

	tbl, schema, err := materialize(rows)
	if err != nil {
		return nil, err
	}
	if tbl.NumRows() == 0 {
		tbl.Release()
		return nil, fmt.Errorf("%w: %s", ErrEmptyResult, q)
	}

	return newSnapshot(tbl, schema, q, SortState{}), nil
}

// schemaFor returns the schema of a registered source, repairing the cache
// from the engine on a miss.
func (r *Registry) schemaFor(ctx context.Context, name string) (Schema, error) {
	r.cacheMu.Lock()
	schema, ok := r.schemas[name]
	r.cacheMu.Unlock()
	if ok {
		return schema, nil
	}

	schema, err := r.fetchSchema(ctx, name)
	if err != nil {
		return Schema{}, err
	}
	r.cacheMu.Lock()
	r.schemas[name] = schema
	r.cacheMu.Unlock()
	return schema, nil
}

// fetchSchema reads a source's column layout from the engine catalog.
func (r *Registry) fetchSchema(ctx context.Context, name string) (Schema, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position`, name)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to read schema of %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var schema Schema
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.Name, &f.Type); err != nil {
			return Schema{}, fmt.Errorf("failed to scan schema of %q: %w", name, err)
		}
		schema.Fields = append(schema.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return Schema{}, fmt.Errorf("failed to read schema of %q: %w", name, err)
	}
	if len(schema.Fields) == 0 {
		return Schema{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return schema, nil
}

// ensureBackend performs the one-time setup a non-local scheme needs,
// keyed by scheme and host so each remote endpoint is configured once.
func (r *Registry) ensureBackend(ctx context.Context, scheme, location string, cred Credentials) error {
	u, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("cannot resolve location %q: %w", location, err)
	}
	key := scheme + "://" + u.Host

	r.cacheMu.Lock()
	_, done := r.backends[key]
	r.cacheMu.Unlock()
	if done {
		return nil
	}

	if scheme == "s3" && cred.empty() {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, key)
	}

	for _, stmt := range []string{"INSTALL httpfs", "LOAD httpfs"} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set up %s backend: %w", scheme, err)
		}
	}

	if scheme == "s3" {
		opts := []string{
			"TYPE s3",
			"KEY_ID " + quoteLiteral(cred.KeyID),
			"SECRET " + quoteLiteral(cred.Secret),
		}
		if cred.SessionToken != "" {
			opts = append(opts, "SESSION_TOKEN "+quoteLiteral(cred.SessionToken))
		}
		if cred.Region != "" {
			opts = append(opts, "REGION "+quoteLiteral(cred.Region))
		}
		if cred.Endpoint != "" {
			opts = append(opts, "ENDPOINT "+quoteLiteral(cred.Endpoint))
		}
		opts = append(opts, "SCOPE "+quoteLiteral("s3://"+u.Host))

		stmt := fmt.Sprintf("CREATE OR REPLACE SECRET %s (%s)",
			quoteIdent("secret_"+sanitizeTableName(u.Host)), strings.Join(opts, ", "))
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set up s3 backend for %s: %w", u.Host, err)
		}
	}

	r.cacheMu.Lock()
	r.backends[key] = struct{}{}
	r.cacheMu.Unlock()
	return nil
}

// readExpr builds the engine read expression for a location, based on the
// descriptor's format override or the location's extension. A local
// directory is read as a partitioned set of files of the chosen format.
func readExpr(d *TableDescriptor, location string) (string, error) {
	format := d.fileFormat()

	if d.scheme() == "file" {
		if info, err := os.Stat(location); err == nil && info.IsDir() {
			if format == "" {
				format = "parquet"
			}
			location = filepath.Join(location, "*."+format)
		}
	}

	switch format {
	case "parquet":
		return "read_parquet(" + quoteLiteral(location) + ")", nil
	case "csv":
		return "read_csv_auto(" + quoteLiteral(location) + ", header=true)", nil
	case "json", "ndjson", "jsonl":
		return "read_json_auto(" + quoteLiteral(location) + ")", nil
	case "":
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, d.Location())
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// resolveLocalPath expands ~ and relative segments and verifies the path
// exists, so registration fails with a descriptive error instead of leaving
// a view over a dead location.
func resolveLocalPath(location string) (string, error) {
	if location == "~" || strings.HasPrefix(location, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot resolve location %q: %w", location, err)
		}
		location = filepath.Join(home, strings.TrimPrefix(location, "~"))
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("cannot resolve location %q: %w", location, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("cannot resolve location %q: %w", location, err)
	}
	return abs, nil
}

// classifyQueryError maps an engine error onto the package's error taxonomy.
func classifyQueryError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "does not exist"):
		return fmt.Errorf("%w: %v", ErrUnknownTable, err)
	case strings.Contains(msg, "Parser Error"),
		strings.Contains(msg, "Binder Error"),
		strings.Contains(msg, "Syntax Error"):
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	default:
		return fmt.Errorf("query failed: %w", err)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SourceNames returns the registered source names in sorted order, for the
// UI's side list.
func (r *Registry) SourceNames() []string {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
