// Package ranges stores IPv4 address blocks in a single relational table and
// answers interval containment and overlap queries against it.
package ranges

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("ranges")

// BulkBatchSize is the number of rows written by one multi-row INSERT.
const BulkBatchSize = 500

// Row is one result row keyed by column name.
type Row map[string]any

// Conn is the capability set the store needs from a backing engine.
// Placeholders in queries are '?'.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	QuoteIdent(name string) string
	Kind() string
}

// Order selects how overlapping results are sorted by interval width.
type Order int

const (
	OrderNone Order = iota
	OrderAsc
	OrderDesc
)

// ParseOrder maps "asc"/"desc"/"" to an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return OrderNone, nil
	case "asc":
		return OrderAsc, nil
	case "desc":
		return OrderDesc, nil
	default:
		return OrderNone, fmt.Errorf("unknown order %q", s)
	}
}

// Config holds everything a Store needs. Decode forces the UTF-8 decoding
// step on values the engine already returns as strings.
type Config struct {
	Conn   Conn
	Table  string
	Decode bool
}

type Store struct {
	conn  Conn
	table string
	dec   decoder

	// quoted identifiers, computed once
	qtable  string
	columns string
}

// New validates cfg and returns a Store bound to cfg.Conn.
func New(cfg Config) (*Store, error) {
	if cfg.Conn == nil {
		return nil, ErrMissingConn
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, ErrMissingTable
	}

	quoted := make([]string, len(Columns))
	for i, c := range Columns {
		quoted[i] = cfg.Conn.QuoteIdent(c)
	}

	return &Store{
		conn:    cfg.Conn,
		table:   cfg.Table,
		dec:     decoder{enabled: cfg.Decode},
		qtable:  cfg.Conn.QuoteIdent(cfg.Table),
		columns: strings.Join(quoted, ", "),
	}, nil
}

// Table returns the unquoted table name.
func (s *Store) Table() string { return s.table }

// Kind returns the engine kind of the underlying connection.
func (s *Store) Kind() string { return s.conn.Kind() }

func (s *Store) q(name string) string { return s.conn.QuoteIdent(name) }

func wrap(op string, err error) error {
	return fmt.Errorf("ranges: %s: %w", op, err)
}

// CreateSchema creates the range table using the DDL registered for kind.
// Nothing is executed when kind has no dialect.
func (s *Store) CreateSchema(ctx context.Context, kind string) error {
	ddl, err := dialectFor(kind)
	if err != nil {
		return wrap("create schema", err)
	}
	for _, stmt := range ddl(s.qtable, s.q) {
		if _, err := s.conn.Exec(ctx, stmt); err != nil {
			return wrap("create schema", err)
		}
	}
	log.Infof("table %s ready (%s)", s.table, kind)
	return nil
}

// EnsureSchema creates the table for the connection's own engine kind.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.CreateSchema(ctx, s.conn.Kind())
}

// FindContaining returns every range covering point, narrowest first.
func (s *Store) FindContaining(ctx context.Context, point uint32) ([]Record, error) {
	return s.Intersections(ctx, point, point, OrderAsc)
}

// Intersections returns every range overlapping [start, end]. With OrderAsc
// or OrderDesc results are sorted by width; equal widths fall back to
// ascending istart, then iend.
func (s *Store) Intersections(ctx context.Context, start, end uint32, order Order) ([]Record, error) {
	if start > end {
		start, end = end, start
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s <= ? AND %s >= ?",
		s.columns, s.qtable, s.q(colIStart), s.q(colIEnd))

	switch order {
	case OrderAsc, OrderDesc:
		dir := "ASC"
		if order == OrderDesc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY (%s - %s) %s, %s ASC, %s ASC",
			s.q(colIEnd), s.q(colIStart), dir, s.q(colIStart), s.q(colIEnd))
	}

	rows, err := s.conn.Query(ctx, b.String(), int64(end), int64(start))
	if err != nil {
		return nil, wrap("intersections", err)
	}
	return s.decodeRows("intersections", rows)
}

// FetchOne returns the range with the exact key.
func (s *Store) FetchOne(ctx context.Context, istart, iend uint32) (Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		s.columns, s.qtable, s.q(colIStart), s.q(colIEnd))

	rows, err := s.conn.Query(ctx, query, int64(istart), int64(iend))
	if err != nil {
		return Record{}, wrap("fetch", err)
	}
	if len(rows) == 0 {
		return Record{}, wrap("fetch", fmt.Errorf("%w: %d-%d", ErrNotFound, istart, iend))
	}
	recs, err := s.decodeRows("fetch", rows[:1])
	if err != nil {
		return Record{}, err
	}
	return recs[0], nil
}

// Insert adds rec. The engine rejects an existing key with ErrDuplicateKey.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	if err := prepare(&rec); err != nil {
		return wrap("insert", err)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.qtable, s.columns, placeholders(len(Columns)))

	if _, err := s.conn.Exec(ctx, query, rec.values()...); err != nil {
		return wrap("insert", err)
	}
	return nil
}

// BulkCreate inserts recs in batches of BulkBatchSize. Every record is
// validated before the first statement runs.
func (s *Store) BulkCreate(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	prepared := make([]Record, len(recs))
	for i, r := range recs {
		if err := prepare(&r); err != nil {
			return wrap("bulk create", fmt.Errorf("record %d: %w", i, err))
		}
		prepared[i] = r
	}

	tuple := "(" + placeholders(len(Columns)) + ")"
	for lo := 0; lo < len(prepared); lo += BulkBatchSize {
		hi := min(lo+BulkBatchSize, len(prepared))
		batch := prepared[lo:hi]

		tuples := make([]string, len(batch))
		args := make([]any, 0, len(batch)*len(Columns))
		for i, r := range batch {
			tuples[i] = tuple
			args = append(args, r.values()...)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			s.qtable, s.columns, strings.Join(tuples, ", "))

		if _, err := s.conn.Exec(ctx, query, args...); err != nil {
			return wrap("bulk create", err)
		}
	}
	log.Debugf("bulk created %d ranges in %s", len(prepared), s.table)
	return nil
}

// Update applies patch to the range with the given key. A key that matches
// no row is reported as ErrNotFound.
func (s *Store) Update(ctx context.Context, istart, iend uint32, patch Patch) error {
	sets := patch.assignments()
	if len(sets) == 0 {
		return wrap("update", ErrEmptyPatch)
	}

	clauses := make([]string, len(sets))
	args := make([]any, 0, len(sets)+2)
	for i, a := range sets {
		clauses[i] = s.q(a.column) + " = ?"
		args = append(args, a.value)
	}
	args = append(args, int64(istart), int64(iend))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? AND %s = ?",
		s.qtable, strings.Join(clauses, ", "), s.q(colIStart), s.q(colIEnd))

	n, err := s.conn.Exec(ctx, query, args...)
	if err != nil {
		return wrap("update", err)
	}
	if n == 0 {
		return wrap("update", fmt.Errorf("%w: %d-%d", ErrNotFound, istart, iend))
	}
	return nil
}

// Delete removes the range with the given key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, istart, iend uint32) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		s.qtable, s.q(colIStart), s.q(colIEnd))

	if _, err := s.conn.Exec(ctx, query, int64(istart), int64(iend)); err != nil {
		return wrap("delete", err)
	}
	return nil
}

// DeleteAll empties the table and returns the number of removed rows.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.conn.Exec(ctx, "DELETE FROM "+s.qtable)
	if err != nil {
		return 0, wrap("delete all", err)
	}
	return n, nil
}

// MarkAll sets in_update on every row. Rows still marked after a refresh
// are removed by Sweep.
func (s *Store) MarkAll(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("UPDATE %s SET %s = ?", s.qtable, s.q(colInUpdate))
	n, err := s.conn.Exec(ctx, query, true)
	if err != nil {
		return 0, wrap("mark", err)
	}
	return n, nil
}

// Sweep deletes every row still carrying the in_update marker.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.qtable, s.q(colInUpdate))
	n, err := s.conn.Exec(ctx, query, true)
	if err != nil {
		return 0, wrap("sweep", err)
	}
	return n, nil
}

// Count returns the number of stored ranges.
func (s *Store) Count(ctx context.Context) (int64, error) {
	rows, err := s.conn.Query(ctx, "SELECT COUNT(*) AS n FROM "+s.qtable)
	if err != nil {
		return 0, wrap("count", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := toInt64(rows[0]["n"])
	if err != nil {
		return 0, wrap("count", err)
	}
	return n, nil
}

func (s *Store) decodeRows(op string, rows []Row) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := s.dec.record(row)
		if err != nil {
			return nil, wrap(op, fmt.Errorf("decode row: %w", err))
		}
		out = append(out, rec)
	}
	return out, nil
}

// prepare enforces istart <= iend and fills blank dotted-quad mirrors.
func prepare(r *Record) error {
	if r.IStart > r.IEnd {
		return fmt.Errorf("%w (%d > %d)", ErrInvalidRange, r.IStart, r.IEnd)
	}
	if r.Start == "" {
		r.Start = formatAddr(r.IStart)
	}
	if r.End == "" {
		r.End = formatAddr(r.IEnd)
	}
	return nil
}

func formatAddr(n uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// IsNotFound reports whether err is a missing-key error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
