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

import "errors"

// Common errors returned by the data package. Engine failures are wrapped
// with one of these sentinels so callers can classify them with errors.Is.
var (
	// ErrUnknownTable is returned when a table name is not registered.
	ErrUnknownTable = errors.New("unknown table")

	// ErrDuplicateTable is returned when registering a name that is taken.
	ErrDuplicateTable = errors.New("table already registered")

	// ErrUnsupportedFormat is returned when a file format cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnsupportedScheme is returned for locations the engine has no
	// backend for.
	ErrUnsupportedScheme = errors.New("unsupported location scheme")

	// ErrMissingCredentials is returned when a remote backend needs
	// credentials that were not provided.
	ErrMissingCredentials = errors.New("missing credentials for remote location")

	// ErrInvalidQuery is returned for syntax or semantic errors in query text.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmptyResult is returned when a query produces no rows.
	ErrEmptyResult = errors.New("query returned no rows")

	// ErrUnknownColumn is returned when sorting by a column that is not in
	// the snapshot's schema.
	ErrUnknownColumn = errors.New("column not present in schema")

	// ErrAlreadyPending is returned by TaskSlot.Submit while an operation
	// is still in flight.
	ErrAlreadyPending = errors.New("operation already in flight")

	// ErrNoResponse is returned when a background operation terminated
	// without delivering a result.
	ErrNoResponse = errors.New("operation terminated without response")
)
