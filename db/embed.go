// Package db provides the embedded database schema and seed catalog.
package db

import _ "embed"

// Schema contains the idempotent DDL statements for all ledger and catalog
// tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the default register catalog loaded by seed-db.
//
//go:embed seed/catalog.json
var Catalog []byte
