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
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	duckdb "github.com/marcboeker/go-duckdb"
)

// Field describes one column as the engine reports it.
type Field struct {
	// Name is the column name.
	Name string
	// Type is the engine's type name (VARCHAR, BIGINT, DOUBLE, ...), kept so
	// a materialized result can be re-registered with matching columns.
	Type string
}

// Schema is the engine-level schema of a registered source or a snapshot.
type Schema struct {
	Fields []Field
}

// Column returns the field with the given name, matched case-insensitively.
func (s Schema) Column(name string) (Field, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// materializeChunk is the row count per Arrow record while collecting.
const materializeChunk = 8192

// arrowType maps an engine type name onto the Arrow type the snapshot
// stores it as. Exotic types degrade to their string rendering.
func arrowType(dbType string) arrow.DataType {
	base := dbType
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	switch strings.ToUpper(strings.TrimSpace(base)) {
	case "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean
	case "TINYINT":
		return arrow.PrimitiveTypes.Int8
	case "SMALLINT":
		return arrow.PrimitiveTypes.Int16
	case "INTEGER":
		return arrow.PrimitiveTypes.Int32
	case "BIGINT":
		return arrow.PrimitiveTypes.Int64
	case "UTINYINT":
		return arrow.PrimitiveTypes.Uint8
	case "USMALLINT":
		return arrow.PrimitiveTypes.Uint16
	case "UINTEGER":
		return arrow.PrimitiveTypes.Uint32
	case "UBIGINT":
		return arrow.PrimitiveTypes.Uint64
	case "FLOAT", "REAL":
		return arrow.PrimitiveTypes.Float32
	case "DOUBLE":
		return arrow.PrimitiveTypes.Float64
	case "DECIMAL":
		return arrow.PrimitiveTypes.Float64
	case "DATE":
		return arrow.FixedWidthTypes.Date32
	case "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return arrow.FixedWidthTypes.Timestamp_us
	case "BLOB":
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// materialize drains the rows into a single Arrow table, preserving row
// order as produced by the engine, and returns it with the engine schema.
// The caller owns the returned table.
func materialize(rows *sql.Rows) (arrow.Table, Schema, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, Schema{}, fmt.Errorf("failed to read result columns: %w", err)
	}

	schema := Schema{Fields: make([]Field, len(colTypes))}
	arrowFields := make([]arrow.Field, len(colTypes))
	for i, ct := range colTypes {
		schema.Fields[i] = Field{Name: ct.Name(), Type: ct.DatabaseTypeName()}
		arrowFields[i] = arrow.Field{
			Name:     ct.Name(),
			Type:     arrowType(ct.DatabaseTypeName()),
			Nullable: true,
		}
	}
	arrowSchema := arrow.NewSchema(arrowFields, nil)

	bldr := array.NewRecordBuilder(memory.NewGoAllocator(), arrowSchema)
	defer bldr.Release()

	var records []arrow.Record
	release := func() {
		for _, rec := range records {
			rec.Release()
		}
	}

	vals := make([]any, len(colTypes))
	ptrs := make([]any, len(colTypes))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			release()
			return nil, Schema{}, fmt.Errorf("failed to scan result row: %w", err)
		}
		for i, v := range vals {
			if err := appendValue(bldr.Field(i), v); err != nil {
				release()
				return nil, Schema{}, fmt.Errorf("column %q: %w", schema.Fields[i].Name, err)
			}
		}
		n++
		if n%materializeChunk == 0 {
			records = append(records, bldr.NewRecord())
		}
	}
	if err := rows.Err(); err != nil {
		release()
		return nil, Schema{}, fmt.Errorf("failed to read result rows: %w", err)
	}
	if n%materializeChunk != 0 || len(records) == 0 {
		records = append(records, bldr.NewRecord())
	}

	tbl := array.NewTableFromRecords(arrowSchema, records)
	release()
	return tbl, schema, nil
}

// appendValue feeds one scanned engine value into the builder for its
// column. The driver hands back native Go values, so mismatches only happen
// on engine types this mapping does not know, which land in string columns.
func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch bld := b.(type) {
	case *array.BooleanBuilder:
		val, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		bld.Append(val)
	case *array.Int8Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("expected integer, got %T", v)
		}
		bld.Append(int8(n))
	case *array.Int16Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("expected integer, got %T", v)
		}
		bld.Append(int16(n))
	case *array.Int32Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("expected integer, got %T", v)
		}
		bld.Append(int32(n))
	case *array.Int64Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("expected integer, got %T", v)
		}
		bld.Append(n)
	case *array.Uint8Builder:
		n, ok := asUint64(v)
		if !ok {
			return fmt.Errorf("expected unsigned integer, got %T", v)
		}
		bld.Append(uint8(n))
	case *array.Uint16Builder:
		n, ok := asUint64(v)
		if !ok {
			return fmt.Errorf("expected unsigned integer, got %T", v)
		}
		bld.Append(uint16(n))
	case *array.Uint32Builder:
		n, ok := asUint64(v)
		if !ok {
			return fmt.Errorf("expected unsigned integer, got %T", v)
		}
		bld.Append(uint32(n))
	case *array.Uint64Builder:
		n, ok := asUint64(v)
		if !ok {
			return fmt.Errorf("expected unsigned integer, got %T", v)
		}
		bld.Append(n)
	case *array.Float32Builder:
		switch val := v.(type) {
		case float32:
			bld.Append(val)
		case float64:
			bld.Append(float32(val))
		default:
			return fmt.Errorf("expected float, got %T", v)
		}
	case *array.Float64Builder:
		switch val := v.(type) {
		case float64:
			bld.Append(val)
		case float32:
			bld.Append(float64(val))
		case duckdb.Decimal:
			bld.Append(val.Float64())
		default:
			return fmt.Errorf("expected float, got %T", v)
		}
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected time, got %T", v)
		}
		bld.Append(arrow.Date32FromTime(t))
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected time, got %T", v)
		}
		ts, err := arrow.TimestampFromTime(t, arrow.Microsecond)
		if err != nil {
			return err
		}
		bld.Append(ts)
	case *array.BinaryBuilder:
		switch val := v.(type) {
		case []byte:
			bld.Append(val)
		case string:
			bld.Append([]byte(val))
		default:
			return fmt.Errorf("expected bytes, got %T", v)
		}
	case *array.StringBuilder:
		switch val := v.(type) {
		case string:
			bld.Append(val)
		case []byte:
			bld.Append(string(val))
		case *big.Int:
			bld.Append(val.String())
		default:
			bld.Append(fmt.Sprintf("%v", val))
		}
	default:
		return fmt.Errorf("unsupported column type %s", b.Type())
	}
	return nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	default:
		n2, ok := asInt64(v)
		if !ok || n2 < 0 {
			return 0, false
		}
		return uint64(n2), true
	}
}
