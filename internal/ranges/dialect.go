package ranges

import (
	"fmt"
	"sync"
)

// Engine kinds with a registered dialect.
const (
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindMySQL    = "mysql"
)

// DDLFunc returns the statements creating the range table. table and q are
// the quoted table name and the identifier quoter of the target connection.
type DDLFunc func(table string, q func(string) string) []string

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]DDLFunc{
		KindPostgres: postgresDDL,
		KindSQLite:   sqliteDDL,
		KindMySQL:    mysqlDDL,
	}
)

// RegisterDialect adds or replaces the DDL template for an engine kind.
func RegisterDialect(kind string, fn DDLFunc) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[kind] = fn
}

// Dialects returns the registered engine kinds.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	kinds := make([]string, 0, len(dialects))
	for k := range dialects {
		kinds = append(kinds, k)
	}
	return kinds
}

func dialectFor(kind string) (DDLFunc, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	fn, ok := dialects[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, kind)
	}
	return fn, nil
}

func postgresDDL(table string, q func(string) string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	istart BIGINT NOT NULL,
	iend BIGINT NOT NULL,
	%s VARCHAR(15) NOT NULL,
	%s VARCHAR(15) NOT NULL,
	status VARCHAR(32),
	city TEXT,
	region TEXT,
	federal_district TEXT,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	in_update BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (istart, iend),
	CHECK (istart <= iend)
)`, table, q(colStart), q(colEnd)),
	}
}

func sqliteDDL(table string, q func(string) string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	istart INTEGER NOT NULL,
	iend INTEGER NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	status TEXT,
	city TEXT,
	region TEXT,
	federal_district TEXT,
	latitude REAL,
	longitude REAL,
	in_update BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (istart, iend),
	CHECK (istart <= iend)
)`, table, q(colStart), q(colEnd)),
	}
}

func mysqlDDL(table string, q func(string) string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	istart INT UNSIGNED NOT NULL,
	iend INT UNSIGNED NOT NULL,
	%s VARCHAR(15) NOT NULL,
	%s VARCHAR(15) NOT NULL,
	status VARCHAR(32) NULL,
	city VARCHAR(255) NULL,
	region VARCHAR(255) NULL,
	federal_district VARCHAR(255) NULL,
	latitude DOUBLE NULL,
	longitude DOUBLE NULL,
	in_update TINYINT(1) NOT NULL DEFAULT 0,
	PRIMARY KEY (istart, iend),
	CHECK (istart <= iend)
) DEFAULT CHARSET=utf8mb4`, table, q(colStart), q(colEnd)),
	}
}
