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

func TestTableQueryLowercasesName(t *testing.T) {
	q := TableQuery("Trades")
	assert.False(t, q.IsSQL())
	assert.Equal(t, "trades", q.Table())
	assert.Equal(t, "trades", q.String())
}

func TestSQLQuery(t *testing.T) {
	q := SQLQuery("SELECT 1")
	assert.True(t, q.IsSQL())
	assert.Equal(t, "SELECT 1", q.SQL())
	assert.Empty(t, q.Table())
}

func TestDescriptorDerivedName(t *testing.T) {
	cases := []struct {
		location string
		want     string
	}{
		{"/data/Trades.parquet", "trades"},
		{"/data/2024-sales.csv", "t_2024_sales"},
		{"s3://bucket/path/events.ndjson", "events"},
		{"relative/orders.json", "orders"},
	}
	for _, c := range cases {
		d := NewTableDescriptor(c.location)
		assert.Equal(t, c.want, d.tableName(), "location %q", c.location)
	}
}

func TestDescriptorExplicitNameWins(t *testing.T) {
	d := NewTableDescriptor("/data/part-00000.parquet").WithName("My Events")
	assert.Equal(t, "my_events", d.tableName())
}

func TestDescriptorScheme(t *testing.T) {
	assert.Equal(t, "file", NewTableDescriptor("/tmp/a.parquet").scheme())
	assert.Equal(t, "file", NewTableDescriptor(`C:\data\a.parquet`).scheme())
	assert.Equal(t, "file", NewTableDescriptor("file:///tmp/a.parquet").scheme())
	assert.Equal(t, "s3", NewTableDescriptor("s3://bucket/a.parquet").scheme())
	assert.Equal(t, "https", NewTableDescriptor("HTTPS://host/a.parquet").scheme())
}

func TestDescriptorFormat(t *testing.T) {
	assert.Equal(t, "parquet", NewTableDescriptor("/tmp/a.parquet").fileFormat())
	assert.Equal(t, "csv", NewTableDescriptor("/tmp/a.CSV").fileFormat())
	assert.Equal(t, "csv",
		NewTableDescriptor("/tmp/a.dat").WithFormat(".CSV").fileFormat())
	assert.Empty(t, NewTableDescriptor("/tmp/noext").fileFormat())
}
