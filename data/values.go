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
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// resolveChunk locates the chunk and local offset holding the given row of a
// chunked column.
func resolveChunk(col *arrow.Column, row int) (arrow.Array, int) {
	for _, chunk := range col.Data().Chunks() {
		if row < chunk.Len() {
			return chunk, row
		}
		row -= chunk.Len()
	}
	return nil, 0
}

// formatCell converts an Arrow column value at a position to its display
// string. Nulls render empty.
func formatCell(col arrow.Array, pos int) string {
	if col == nil || col.IsNull(pos) {
		return ""
	}

	switch col.DataType().ID() {
	case arrow.STRING:
		return col.(*array.String).Value(pos)
	case arrow.BINARY:
		return string(col.(*array.Binary).Value(pos))
	case arrow.BOOL:
		return fmt.Sprintf("%v", col.(*array.Boolean).Value(pos))
	case arrow.INT8:
		return fmt.Sprintf("%d", col.(*array.Int8).Value(pos))
	case arrow.INT16:
		return fmt.Sprintf("%d", col.(*array.Int16).Value(pos))
	case arrow.INT32:
		return fmt.Sprintf("%d", col.(*array.Int32).Value(pos))
	case arrow.INT64:
		return fmt.Sprintf("%d", col.(*array.Int64).Value(pos))
	case arrow.UINT8:
		return fmt.Sprintf("%d", col.(*array.Uint8).Value(pos))
	case arrow.UINT16:
		return fmt.Sprintf("%d", col.(*array.Uint16).Value(pos))
	case arrow.UINT32:
		return fmt.Sprintf("%d", col.(*array.Uint32).Value(pos))
	case arrow.UINT64:
		return fmt.Sprintf("%d", col.(*array.Uint64).Value(pos))
	case arrow.FLOAT32:
		return fmt.Sprintf("%g", col.(*array.Float32).Value(pos))
	case arrow.FLOAT64:
		return fmt.Sprintf("%g", col.(*array.Float64).Value(pos))
	case arrow.DATE32:
		return col.(*array.Date32).Value(pos).ToTime().Format("2006-01-02")
	case arrow.TIMESTAMP:
		return col.(*array.Timestamp).Value(pos).ToTime(arrow.Microsecond).Format("2006-01-02 15:04:05.999999")
	default:
		return fmt.Sprintf("%v", col)
	}
}

// nativeCell returns the typed Go value at a position, suitable as a query
// parameter when the snapshot is re-registered with the engine. Nulls are
// nil.
func nativeCell(col arrow.Array, pos int) any {
	if col == nil || col.IsNull(pos) {
		return nil
	}

	switch col.DataType().ID() {
	case arrow.STRING:
		return col.(*array.String).Value(pos)
	case arrow.BINARY:
		return col.(*array.Binary).Value(pos)
	case arrow.BOOL:
		return col.(*array.Boolean).Value(pos)
	case arrow.INT8:
		return col.(*array.Int8).Value(pos)
	case arrow.INT16:
		return col.(*array.Int16).Value(pos)
	case arrow.INT32:
		return col.(*array.Int32).Value(pos)
	case arrow.INT64:
		return col.(*array.Int64).Value(pos)
	case arrow.UINT8:
		return col.(*array.Uint8).Value(pos)
	case arrow.UINT16:
		return col.(*array.Uint16).Value(pos)
	case arrow.UINT32:
		return col.(*array.Uint32).Value(pos)
	case arrow.UINT64:
		return col.(*array.Uint64).Value(pos)
	case arrow.FLOAT32:
		return col.(*array.Float32).Value(pos)
	case arrow.FLOAT64:
		return col.(*array.Float64).Value(pos)
	case arrow.DATE32:
		return col.(*array.Date32).Value(pos).ToTime()
	case arrow.TIMESTAMP:
		return col.(*array.Timestamp).Value(pos).ToTime(arrow.Microsecond)
	default:
		return formatCell(col, pos)
	}
}
