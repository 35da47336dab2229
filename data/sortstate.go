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

// Package data holds the query core of the viewer: the source registry over
// the embedded DuckDB session, materialized Arrow snapshots, sort state, and
// the single-slot background task manager that bridges the Fyne event loop
// and the query engine.
package data

import "fmt"

// SortOrder specifies the direction of a column sort.
type SortOrder int

const (
	// Unsorted indicates no active sort.
	Unsorted SortOrder = iota
	// Ascending indicates ascending sort order.
	Ascending
	// Descending indicates descending sort order.
	Descending
)

// String returns the string representation of a SortOrder.
func (o SortOrder) String() string {
	switch o {
	case Unsorted:
		return "Unsorted"
	case Ascending:
		return "Ascending"
	case Descending:
		return "Descending"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// SortState is the tri-state sort marker for the currently displayed data.
// At most one column carries an active order at any time; the zero value
// means nothing is sorted.
type SortState struct {
	// Column is the name of the sorted column ("" if unsorted).
	Column string
	// Order is the sort direction for Column.
	Order SortOrder
}

// IsSorted returns true if this state represents an active sort.
func (s SortState) IsSorted() bool {
	return s.Column != "" && s.Order != Unsorted
}

// Advance returns the state after a click on the given column header.
// Clicking the active column toggles Descending and Ascending; once a column
// is sorted, repeated clicks never return it to Unsorted. Clicking a
// different column discards the previous state and starts it at Descending.
func (s SortState) Advance(column string) SortState {
	if s.Column != column {
		return SortState{Column: column, Order: Descending}
	}
	switch s.Order {
	case Descending:
		return SortState{Column: column, Order: Ascending}
	default:
		return SortState{Column: column, Order: Descending}
	}
}
