// Package sqldocs exposes the pipeline schema DDL directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the SQLite DDL for the pipeline schema.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the Postgres DDL for the pipeline schema.
//
//go:embed postgres.sql
var Postgres string
