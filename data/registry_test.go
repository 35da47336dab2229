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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(context.Background())
	if err != nil {
		t.Fatalf("failed to open registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

// writeTradesCSV writes a small CSV with one null amount.
func writeTradesCSV(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "Trades.csv")
	content := `name,amount
bob,200.75
alice,100.5
dana,
carol,300.25
`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write CSV file: %v", err)
	}
	return p
}

func writeLabelsParquet(t *testing.T, dir string) string {
	t.Helper()
	pool := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "label", Type: arrow.BinaryTypes.String},
	}, nil)

	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"x", "y", "z"}, nil)
	rec := b.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	p := filepath.Join(dir, "labels.parquet")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("failed to create parquet file: %v", err)
	}
	defer f.Close()
	if err := pqarrow.WriteTable(tbl, f, 1024,
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()); err != nil {
		t.Fatalf("failed to write parquet file: %v", err)
	}
	return p
}

func TestRegistryAddCSV(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	csvPath := writeTradesCSV(t, t.TempDir())

	name, err := reg.AddSource(ctx, NewTableDescriptor(csvPath))
	if err != nil {
		t.Fatalf("failed to add CSV source: %v", err)
	}
	if name != "trades" {
		t.Errorf("got name %q, want %q", name, "trades")
	}

	snap, err := reg.Query(ctx, TableQuery(name))
	if err != nil {
		t.Fatalf("failed to query source: %v", err)
	}
	defer snap.Release()

	if snap.NumRows() != 4 {
		t.Errorf("got %d rows, want 4", snap.NumRows())
	}
	if snap.NumCols() != 2 {
		t.Errorf("got %d columns, want 2", snap.NumCols())
	}
	if got := snap.Query(); got != TableQuery(name) {
		t.Errorf("snapshot query: got %v, want %v", got, TableQuery(name))
	}
	if snap.Sort().IsSorted() {
		t.Error("fresh snapshot should be unsorted")
	}
}

func TestRegistryAddParquet(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	pqPath := writeLabelsParquet(t, t.TempDir())

	name, err := reg.AddSource(ctx, NewTableDescriptor(pqPath).WithEagerSchema())
	if err != nil {
		t.Fatalf("failed to add parquet source: %v", err)
	}
	if name != "labels" {
		t.Errorf("got name %q, want %q", name, "labels")
	}

	snap, err := reg.Query(ctx, TableQuery(name))
	if err != nil {
		t.Fatalf("failed to query source: %v", err)
	}
	defer snap.Release()

	if snap.NumRows() != 3 {
		t.Errorf("got %d rows, want 3", snap.NumRows())
	}
	if got := snap.Cell(0, 1); got != "x" {
		t.Errorf("cell (0,1): got %q, want %q", got, "x")
	}
}

func TestRegistryAddDuplicate(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	csvPath := writeTradesCSV(t, t.TempDir())

	if _, err := reg.AddSource(ctx, NewTableDescriptor(csvPath)); err != nil {
		t.Fatalf("failed to add source: %v", err)
	}
	_, err := reg.AddSource(ctx, NewTableDescriptor(csvPath))
	if !errors.Is(err, ErrDuplicateTable) {
		t.Errorf("got %v, want ErrDuplicateTable", err)
	}
}

func TestRegistryAddUnsupportedFormat(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	dir := t.TempDir()
	p := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := reg.AddSource(ctx, NewTableDescriptor(p))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestRegistryAddUnsupportedScheme(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	_, err := reg.AddSource(ctx, NewTableDescriptor("ftp://host/a.parquet"))
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("got %v, want ErrUnsupportedScheme", err)
	}
}

func TestRegistryAddMissingFile(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	_, err := reg.AddSource(ctx, NewTableDescriptor("/no/such/file.parquet"))
	if err == nil {
		t.Fatal("expected error for unresolvable location, got nil")
	}
}

func TestRegistryS3NeedsCredentials(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	_, err := reg.AddSource(ctx, NewTableDescriptor("s3://bucket/a.parquet"))
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("got %v, want ErrMissingCredentials", err)
	}
}

func TestRegistryRemoveSource(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	csvPath := writeTradesCSV(t, t.TempDir())

	name, err := reg.AddSource(ctx, NewTableDescriptor(csvPath))
	if err != nil {
		t.Fatalf("failed to add source: %v", err)
	}

	removed, err := reg.RemoveSource(ctx, name)
	if err != nil {
		t.Fatalf("failed to remove source: %v", err)
	}
	if removed.Name != name {
		t.Errorf("got handle %q, want %q", removed.Name, name)
	}

	if _, err := reg.Query(ctx, TableQuery(name)); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("query after remove: got %v, want ErrUnknownTable", err)
	}
	if _, err := reg.RemoveSource(ctx, name); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("second remove: got %v, want ErrUnknownTable", err)
	}
}

func TestRegistryRenameSource(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	csvPath := writeTradesCSV(t, t.TempDir())

	name, err := reg.AddSource(ctx, NewTableDescriptor(csvPath))
	if err != nil {
		t.Fatalf("failed to add source: %v", err)
	}

	renamed, err := reg.RenameSource(ctx, name, "History")
	if err != nil {
		t.Fatalf("failed to rename source: %v", err)
	}
	if renamed.Name != "history" {
		t.Errorf("got name %q, want %q", renamed.Name, "history")
	}

	if _, err := reg.Query(ctx, TableQuery(name)); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("query via old name: got %v, want ErrUnknownTable", err)
	}

	snap, err := reg.Query(ctx, TableQuery("history"))
	if err != nil {
		t.Fatalf("failed to query renamed source: %v", err)
	}
	defer snap.Release()
	if snap.NumRows() != 4 {
		t.Errorf("got %d rows, want 4", snap.NumRows())
	}
}

func TestRegistryRenameCollision(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	dir := t.TempDir()
	csvPath := writeTradesCSV(t, dir)
	pqPath := writeLabelsParquet(t, dir)

	if _, err := reg.AddSource(ctx, NewTableDescriptor(csvPath)); err != nil {
		t.Fatalf("failed to add source: %v", err)
	}
	if _, err := reg.AddSource(ctx, NewTableDescriptor(pqPath)); err != nil {
		t.Fatalf("failed to add source: %v", err)
	}

	if _, err := reg.RenameSource(ctx, "trades", "labels"); !errors.Is(err, ErrDuplicateTable) {
		t.Errorf("got %v, want ErrDuplicateTable", err)
	}

	// The failed rename left the source untouched.
	snap, err := reg.Query(ctx, TableQuery("trades"))
	if err != nil {
		t.Fatalf("source lost after failed rename: %v", err)
	}
	snap.Release()
}

func TestRegistryRenameUnknown(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	if _, err := reg.RenameSource(ctx, "ghost", "spirit"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("got %v, want ErrUnknownTable", err)
	}
}

func TestRegistrySQLQuery(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	csvPath := writeTradesCSV(t, t.TempDir())

	if _, err := reg.AddSource(ctx, NewTableDescriptor(csvPath)); err != nil {
		t.Fatalf("failed to add source: %v", err)
	}

	snap, err := reg.Query(ctx,
		SQLQuery(`SELECT name, amount FROM trades WHERE amount > 150 ORDER BY amount`))
	if err != nil {
		t.Fatalf("failed to run SQL query: %v", err)
	}
	defer snap.Release()

	if snap.NumRows() != 2 {
		t.Fatalf("got %d rows, want 2", snap.NumRows())
	}
	if got := snap.Cell(0, 0); got != "bob" {
		t.Errorf("row 0: got %q, want %q", got, "bob")
	}
	if got := snap.Cell(1, 0); got != "carol" {
		t.Errorf("row 1: got %q, want %q", got, "carol")
	}
}

func TestRegistryQueryErrors(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	csvPath := writeTradesCSV(t, t.TempDir())

	if _, err := reg.AddSource(ctx, NewTableDescriptor(csvPath)); err != nil {
		t.Fatalf("failed to add source: %v", err)
	}

	if _, err := reg.Query(ctx, TableQuery("ghost")); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("unknown table: got %v, want ErrUnknownTable", err)
	}
	if _, err := reg.Query(ctx, SQLQuery("SELEKT * FROM trades")); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("malformed SQL: got %v, want ErrInvalidQuery", err)
	}
	if _, err := reg.Query(ctx, SQLQuery("SELECT * FROM trades WHERE 1 = 0")); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("empty result: got %v, want ErrEmptyResult", err)
	}
	if _, err := reg.Query(ctx, SQLQuery("SELECT * FROM nowhere")); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("SQL over unknown table: got %v, want ErrUnknownTable", err)
	}
}

func TestRegistryRowLimit(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	csvPath := writeTradesCSV(t, t.TempDir())

	name, err := reg.AddSource(ctx, NewTableDescriptor(csvPath))
	if err != nil {
		t.Fatalf("failed to add source: %v", err)
	}

	reg.SetRowLimit(2)
	snap, err := reg.Query(ctx, TableQuery(name))
	if err != nil {
		t.Fatalf("failed to query source: %v", err)
	}
	defer snap.Release()
	if snap.NumRows() != 2 {
		t.Errorf("got %d rows, want 2", snap.NumRows())
	}

	capped, err := reg.Query(ctx, SQLQuery("SELECT * FROM trades;"))
	if err != nil {
		t.Fatalf("failed to run capped SQL query: %v", err)
	}
	defer capped.Release()
	if capped.NumRows() != 2 {
		t.Errorf("got %d rows, want 2", capped.NumRows())
	}

	reg.SetRowLimit(0)
	full, err := reg.Query(ctx, TableQuery(name))
	if err != nil {
		t.Fatalf("failed to query source: %v", err)
	}
	defer full.Release()
	if full.NumRows() != 4 {
		t.Errorf("got %d rows, want 4", full.NumRows())
	}
}

func TestRegistryListTables(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	dir := t.TempDir()
	csvPath := writeTradesCSV(t, dir)
	pqPath := writeLabelsParquet(t, dir)

	if _, err := reg.AddSource(ctx, NewTableDescriptor(csvPath)); err != nil {
		t.Fatalf("failed to add source: %v", err)
	}
	if _, err := reg.AddSource(ctx, NewTableDescriptor(pqPath)); err != nil {
		t.Fatalf("failed to add source: %v", err)
	}

	tables, err := reg.ListTables(ctx)
	if err != nil {
		t.Fatalf("failed to list tables: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(tables))
	}

	trades, ok := tables["trades"]
	if !ok {
		t.Fatal("trades missing from listing")
	}
	if len(trades.Fields) != 2 {
		t.Errorf("trades: got %d columns, want 2", len(trades.Fields))
	}
	if _, ok := trades.Column("Amount"); !ok {
		t.Error("column lookup should be case-insensitive")
	}

	labels, ok := tables["labels"]
	if !ok {
		t.Fatal("labels missing from listing")
	}
	if f, ok := labels.Column("id"); !ok || f.Type != "BIGINT" {
		t.Errorf("labels.id: got %+v (ok=%v), want BIGINT", f, ok)
	}

	names := reg.SourceNames()
	if len(names) != 2 || names[0] != "labels" || names[1] != "trades" {
		t.Errorf("got source names %v, want [labels trades]", names)
	}
}
