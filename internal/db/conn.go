package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/EmpoweredVote/geobase/internal/ranges"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Conn adapts a *gorm.DB (or a transaction opened from one) to ranges.Conn.
type Conn struct {
	db *gorm.DB
}

func NewConn(db *gorm.DB) *Conn {
	return &Conn{db: db}
}

// Kind is the GORM dialector name: "postgres", "sqlite" or "mysql".
func (c *Conn) Kind() string {
	return c.db.Dialector.Name()
}

// QuoteIdent quotes name with the dialect's identifier quoting. Dotted names
// are quoted per part.
func (c *Conn) QuoteIdent(name string) string {
	var b strings.Builder
	c.db.Dialector.QuoteTo(&b, name)
	return b.String()
}

func (c *Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res := c.db.WithContext(ctx).Exec(query, args...)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (c *Conn) Query(ctx context.Context, query string, args ...any) ([]ranges.Row, error) {
	rows, err := c.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, translate(err)
	}

	var out []ranges.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, translate(err)
		}
		row := make(ranges.Row, len(cols))
		for i, col := range cols {
			row[strings.ToLower(col)] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// translate maps driver errors onto the store's error kinds, keeping the
// original in the chain.
func translate(err error) error {
	switch {
	case isDuplicate(err):
		return errors.Join(ranges.ErrDuplicateKey, err)
	case isUnavailable(err):
		return errors.Join(ranges.ErrStoreUnavailable, err)
	default:
		return err
	}
}

const pgUniqueViolation = "23505"

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
