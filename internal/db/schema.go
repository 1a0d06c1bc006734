package db

import (
	"strings"

	"gorm.io/gorm"
)

// EnsureSchema creates a postgres schema if it does not exist.
func EnsureSchema(d *gorm.DB, schema string) error {
	var b strings.Builder
	d.Dialector.QuoteTo(&b, schema)
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS ` + b.String()).Error
}

// EnsureTableSchema creates the schema part of a qualified postgres table
// name such as "geo.ip_ranges". Other engines and unqualified names are left alone.
func EnsureTableSchema(d *gorm.DB, table string) error {
	if d.Dialector.Name() != "postgres" {
		return nil
	}
	schema, _, ok := strings.Cut(table, ".")
	if !ok || schema == "" {
		return nil
	}
	return EnsureSchema(d, schema)
}
