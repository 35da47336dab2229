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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortStateFirstClickDescends(t *testing.T) {
	var s SortState
	assert.False(t, s.IsSorted())

	s = s.Advance("amount")
	assert.Equal(t, SortState{Column: "amount", Order: Descending}, s)
}

func TestSortStateSameColumnToggles(t *testing.T) {
	s := SortState{Column: "amount", Order: Descending}

	s = s.Advance("amount")
	assert.Equal(t, SortState{Column: "amount", Order: Ascending}, s)

	s = s.Advance("amount")
	assert.Equal(t, SortState{Column: "amount", Order: Descending}, s)
}

func TestSortStateColumnSwitchResets(t *testing.T) {
	s := SortState{Column: "amount", Order: Ascending}

	s = s.Advance("name")
	assert.Equal(t, SortState{Column: "name", Order: Descending}, s)
}

func TestSortStateNeverReturnsToUnsorted(t *testing.T) {
	var s SortState
	for _, col := range []string{"a", "a", "b", "a", "b", "b", "c", "c", "c", "a"} {
		s = s.Advance(col)
		assert.True(t, s.IsSorted(), "after clicking %q", col)
		assert.Equal(t, col, s.Column)
	}
}

func TestSortOrderString(t *testing.T) {
	assert.Equal(t, "Unsorted", Unsorted.String())
	assert.Equal(t, "Ascending", Ascending.String())
	assert.Equal(t, "Descending", Descending.String())
}
