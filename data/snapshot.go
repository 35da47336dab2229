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
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Snapshot is one materialized query result: the data, the query that
// produced it, and the sort applied to it. A snapshot is immutable; Sort
// produces a new snapshot instead of reordering in place.
type Snapshot struct {
	tbl    arrow.Table
	schema Schema
	query  Query
	sort   SortState
}

func newSnapshot(tbl arrow.Table, schema Schema, query Query, sort SortState) *Snapshot {
	return &Snapshot{tbl: tbl, schema: schema, query: query, sort: sort}
}

// Table exposes the underlying columnar data.
func (s *Snapshot) Table() arrow.Table { return s.tbl }

// Schema reports the engine-level column layout, with the engine's own type
// names so rows can be loaded back into a session unchanged.
func (s *Snapshot) Schema() Schema { return s.schema }

// Query reports what produced this snapshot.
func (s *Snapshot) Query() Query { return s.query }

// Sort reports the ordering applied to this snapshot.
func (s *Snapshot) Sort() SortState { return s.sort }

func (s *Snapshot) NumRows() int { return int(s.tbl.NumRows()) }

func (s *Snapshot) NumCols() int { return int(s.tbl.NumCols()) }

// Cell formats the value at (row, col) for display. Nulls render empty.
func (s *Snapshot) Cell(row, col int) string {
	arr, pos := resolveChunk(s.tbl.Column(col), row)
	if arr == nil {
		return ""
	}
	return formatCell(arr, pos)
}

// Release drops the snapshot's hold on the columnar buffers. The snapshot
// must not be used afterwards.
func (s *Snapshot) Release() {
	if s.tbl != nil {
		s.tbl.Release()
		s.tbl = nil
	}
}

// SortBy reorders the snapshot by a column, in a scratch engine session so
// the shared one is never blocked by a sort. An unsorted target state or a
// state equal to the current one returns the receiver unchanged.
func (s *Snapshot) SortBy(ctx context.Context, state SortState) (*Snapshot, error) {
	if !state.IsSorted() || state == s.sort {
		return s, nil
	}
	if _, ok := s.schema.Column(state.Column); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, state.Column)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open sort session: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := s.load(ctx, db); err != nil {
		return nil, err
	}

	dir := "DESC"
	if state.Order == Ascending {
		dir = "ASC"
	}
	// Nulls always trail, regardless of direction.
	stmt := fmt.Sprintf("SELECT * FROM snapshot ORDER BY %s %s NULLS LAST",
		quoteIdent(state.Column), dir)
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to sort by %q: %w", state.Column, err)
	}
	defer func() { _ = rows.Close() }()

	tbl, schema, err := materialize(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to sort by %q: %w", state.Column, err)
	}
	return newSnapshot(tbl, schema, s.query, state), nil
}

// load recreates the snapshot's data as a table in the given session, using
// the engine type names captured at materialization time.
func (s *Snapshot) load(ctx context.Context, db *sql.DB) error {
	cols := make([]string, len(s.schema.Fields))
	marks := make([]string, len(s.schema.Fields))
	for i, f := range s.schema.Fields {
		cols[i] = quoteIdent(f.Name) + " " + f.Type
		marks[i] = "?"
	}
	create := "CREATE TABLE snapshot (" + strings.Join(cols, ", ") + ")"
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to stage snapshot: %w", err)
	}

	insert, err := db.PrepareContext(ctx,
		"INSERT INTO snapshot VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return fmt.Errorf("failed to stage snapshot: %w", err)
	}
	defer func() { _ = insert.Close() }()

	nCols := s.NumCols()
	args := make([]any, nCols)
	for row := 0; row < s.NumRows(); row++ {
		for col := 0; col < nCols; col++ {
			arr, pos := resolveChunk(s.tbl.Column(col), row)
			if arr == nil || arr.IsNull(pos) {
				args[col] = nil
				continue
			}
			args[col] = nativeCell(arr, pos)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to stage snapshot row %d: %w", row, err)
		}
	}
	return nil
}
