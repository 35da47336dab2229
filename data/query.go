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
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Query describes what data to fetch: either a lookup of a registered table
// by name or free-form SQL text. Exactly one of the two is set. Query values
// are immutable and compare by value.
type Query struct {
	table string
	sql   string
}

// TableQuery returns a query that selects everything from a registered table.
func TableQuery(name string) Query {
	return Query{table: strings.ToLower(name)}
}

// SQLQuery returns a query that runs free-form SQL text.
func SQLQuery(text string) Query {
	return Query{sql: text}
}

// IsSQL reports whether the query carries free-form SQL text.
func (q Query) IsSQL() bool { return q.sql != "" }

// Table returns the table name for a table lookup ("" for SQL queries).
func (q Query) Table() string { return q.table }

// SQL returns the query text for an SQL query ("" for table lookups).
func (q Query) SQL() string { return q.sql }

// String returns a short display form used in the status bar.
func (q Query) String() string {
	if q.IsSQL() {
		return q.sql
	}
	return q.table
}

// Credentials is the account context for a remote storage backend.
type Credentials struct {
	KeyID        string
	Secret       string
	SessionToken string
	Region       string
	Endpoint     string
}

func (c Credentials) empty() bool {
	return c.KeyID == "" && c.Secret == ""
}

// TableDescriptor describes how to register an external source: where it
// lives, how to read it and under which name. Build one incrementally and
// pass it to Registry.AddSource, which validates it.
type TableDescriptor struct {
	location    string
	format      string
	name        string
	eagerSchema bool
	credentials Credentials
}

// NewTableDescriptor starts a descriptor for the given location. The
// location is a local path or a file://, http(s):// or s3:// URL.
func NewTableDescriptor(location string) *TableDescriptor {
	return &TableDescriptor{location: location}
}

// WithFormat overrides the file format normally derived from the location's
// extension ("parquet", "csv" or "json").
func (d *TableDescriptor) WithFormat(format string) *TableDescriptor {
	d.format = strings.ToLower(strings.TrimPrefix(format, "."))
	return d
}

// WithName sets an explicit table name instead of deriving one from the
// location.
func (d *TableDescriptor) WithName(name string) *TableDescriptor {
	d.name = name
	return d
}

// WithEagerSchema makes registration fetch the table's schema immediately
// instead of on first use.
func (d *TableDescriptor) WithEagerSchema() *TableDescriptor {
	d.eagerSchema = true
	return d
}

// WithCredentials attaches the account context used to set up a remote
// backend (S3 key, secret, region).
func (d *TableDescriptor) WithCredentials(c Credentials) *TableDescriptor {
	d.credentials = c
	return d
}

// Location returns the descriptor's raw location.
func (d *TableDescriptor) Location() string { return d.location }

// scheme returns the location's URL scheme, or "file" for plain paths.
func (d *TableDescriptor) scheme() string {
	u, err := url.Parse(d.location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters, are local files.
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// tableName resolves the name the source will be registered under: the
// explicit name if set, otherwise the location's file stem. Names are
// lower-cased for case-insensitive lookup.
func (d *TableDescriptor) tableName() string {
	name := d.name
	if name == "" {
		base := path.Base(strings.TrimSuffix(d.location, "/"))
		if d.scheme() == "file" {
			base = filepath.Base(strings.TrimSuffix(d.location, string(filepath.Separator)))
		}
		name = strings.TrimSuffix(base, path.Ext(base))
	}
	return sanitizeTableName(name)
}

// fileFormat resolves the read format: the explicit override if set,
// otherwise the location's extension.
func (d *TableDescriptor) fileFormat() string {
	if d.format != "" {
		return d.format
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(d.location), "."))
}

// sanitizeTableName lower-cases a derived name and replaces characters the
// engine's identifier rules would choke on.
func sanitizeTableName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "t_" + out
	}
	return out
}
