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
	"path/filepath"
	"testing"
)

// TestSnapshotExportRoundTrip exports a sorted snapshot and registers the
// exported file as a new source, checking the data and its order survive.
func TestSnapshotExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	snap := tradesSnapshot(t)

	sorted, err := snap.SortBy(ctx, SortState{Column: "amount", Order: Descending})
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}
	defer sorted.Release()

	dir := t.TempDir()
	cases := []struct {
		format ExportFormat
		file   string
	}{
		{FormatParquet, "out.parquet"},
		{FormatCSV, "out.csv"},
		{FormatJSON, "out.json"},
	}

	for _, c := range cases {
		path := filepath.Join(dir, c.file)
		if err := sorted.Export(c.format, path); err != nil {
			t.Fatalf("failed to export %s: %v", c.file, err)
		}

		reg := newTestRegistry(t)
		name, err := reg.AddSource(ctx, NewTableDescriptor(path))
		if err != nil {
			t.Fatalf("failed to re-register %s: %v", c.file, err)
		}
		back, err := reg.Query(ctx, SQLQuery(`SELECT name FROM `+name))
		if err != nil {
			t.Fatalf("failed to query %s: %v", c.file, err)
		}
		if back.NumRows() != sorted.NumRows() {
			t.Errorf("%s: got %d rows, want %d", c.file, back.NumRows(), sorted.NumRows())
		}
		if got := back.Cell(0, 0); got != "carol" {
			t.Errorf("%s: first row got %q, want %q", c.file, got, "carol")
		}
		back.Release()
	}
}

func TestSnapshotExportUnknownFormat(t *testing.T) {
	snap := tradesSnapshot(t)
	err := snap.Export(ExportFormat(99), filepath.Join(t.TempDir(), "out.bin"))
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}
