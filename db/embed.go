// Package db provides the embedded PostgreSQL schema and the default product
// catalog used for seeding.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Products is the default catalog in JSON form.
//
//go:embed seed/products.json
var Products []byte
