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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ExportFormat selects the on-disk format for snapshot export.
type ExportFormat int

const (
	FormatParquet ExportFormat = iota
	FormatCSV
	FormatJSON
)

// Export writes the snapshot to a file in the given format. The export
// reflects exactly what the snapshot holds, sort order included.
func (s *Snapshot) Export(format ExportFormat, path string) error {
	switch format {
	case FormatParquet:
		return s.exportParquet(path)
	case FormatCSV:
		return s.exportCSV(path)
	case FormatJSON:
		return s.exportJSON(path)
	default:
		return fmt.Errorf("%w: export format %d", ErrUnsupportedFormat, int(format))
	}
}

func (s *Snapshot) exportParquet(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(s.tbl.Schema(), file, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	defer writer.Close()

	if err := writer.WriteTable(s.tbl, s.tbl.NumRows()); err != nil {
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}

	return nil
}

func (s *Snapshot) exportCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	headers := make([]string, len(s.schema.Fields))
	for i, f := range s.schema.Fields {
		headers[i] = f.Name
	}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, s.NumCols())
	for i := 0; i < s.NumRows(); i++ {
		for j := range row {
			row[j] = s.Cell(i, j)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

func (s *Snapshot) exportJSON(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	records := make([]map[string]interface{}, 0, s.NumRows())
	for i := 0; i < s.NumRows(); i++ {
		record := make(map[string]interface{}, s.NumCols())
		for j, f := range s.schema.Fields {
			arr, pos := resolveChunk(s.tbl.Column(j), i)
			if arr == nil || arr.IsNull(pos) {
				record[f.Name] = nil
				continue
			}
			record[f.Name] = nativeCell(arr, pos)
		}
		records = append(records, record)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
