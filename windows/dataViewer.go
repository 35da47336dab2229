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

package windows

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"cdv/data"
)

// DataViewer renders the current snapshot as a table with clickable column
// headers. It never mutates the snapshot; header clicks are reported through
// onSort and a new snapshot arrives via SetSnapshot.
type DataViewer struct {
	table  *widget.Table
	snap   *data.Snapshot
	onSort func(column string)
}

func NewDataViewer(onSort func(column string)) *DataViewer {
	v := &DataViewer{onSort: onSort}

	v.table = widget.NewTable(
		func() (int, int) {
			if v.snap == nil {
				return 0, 0
			}
			return v.snap.NumRows(), v.snap.NumCols()
		},
		func() fyne.CanvasObject {
			label := widget.NewLabel("template")
			label.Truncation = fyne.TextTruncateEllipsis
			return label
		},
		func(id widget.TableCellID, co fyne.CanvasObject) {
			label := co.(*widget.Label)
			if v.snap == nil {
				label.SetText("")
				return
			}
			label.SetText(v.snap.Cell(id.Row, id.Col))
		},
	)

	v.table.ShowHeaderRow = true
	v.table.ShowHeaderColumn = true
	v.table.CreateHeader = func() fyne.CanvasObject {
		b := widget.NewButton("template", nil)
		b.Importance = widget.LowImportance
		return b
	}
	v.table.UpdateHeader = func(id widget.TableCellID, co fyne.CanvasObject) {
		b := co.(*widget.Button)
		if id.Col < 0 {
			// Row number gutter.
			b.SetText(strconv.Itoa(id.Row + 1))
			b.OnTapped = nil
			return
		}
		if v.snap == nil || id.Col >= v.snap.NumCols() {
			b.SetText("")
			b.OnTapped = nil
			return
		}
		name := v.snap.Schema().Fields[id.Col].Name
		b.SetText(name + sortMarker(v.snap.Sort(), name))
		b.OnTapped = func() {
			if v.onSort != nil {
				v.onSort(name)
			}
		}
	}

	return v
}

// sortMarker decorates the sorted column's header with its direction.
func sortMarker(s data.SortState, column string) string {
	if s.Column != column {
		return ""
	}
	switch s.Order {
	case data.Ascending:
		return " ↑"
	case data.Descending:
		return " ↓"
	default:
		return ""
	}
}

// SetSnapshot swaps the displayed data. Passing nil clears the view.
func (v *DataViewer) SetSnapshot(s *data.Snapshot) {
	v.snap = s
	if s != nil {
		for i, f := range s.Schema().Fields {
			w := float32(len(f.Name))*9 + 30
			if w < 110 {
				w = 110
			}
			v.table.SetColumnWidth(i, w)
		}
	}
	v.table.Refresh()
	v.table.ScrollToTop()
}

// Snapshot returns what is currently displayed (nil when empty).
func (v *DataViewer) Snapshot() *data.Snapshot { return v.snap }

func (v *DataViewer) Widget() fyne.CanvasObject { return v.table }
