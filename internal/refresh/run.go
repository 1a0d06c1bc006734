// Package refresh imports the upstream ipgeobase distribution into the
// range store.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/EmpoweredVote/geobase/internal/db"
	"github.com/EmpoweredVote/geobase/internal/ranges"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Mode string

const (
	// ModeMerge marks every row, upserts the distribution, then sweeps
	// rows the distribution no longer carries.
	ModeMerge Mode = "merge"
	// ModeReplace empties the table and bulk inserts the distribution.
	ModeReplace Mode = "replace"
)

// ParseMode accepts "merge", "replace" or "" (merge).
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("unknown refresh mode %q", s)
	}
}

type Config struct {
	Table  string
	Decode bool
	Mode   Mode

	// Confirm must be set for ModeReplace, which deletes every row first.
	Confirm bool

	// CreateSchema creates the table for the connection's engine first.
	CreateSchema bool
}

type Stats struct {
	Parsed   int
	Inserted int
	Updated  int
	Deleted  int
}

var ErrReplaceNotConfirmed = errors.New("refusing to replace: set Confirm (this deletes every range first)")

// Source says where the distribution comes from: a local archive, or a URL
// downloaded into a temporary directory.
type Source struct {
	Archive string
	URL     string
	Charset string
}

// Load fetches (if needed), unpacks and parses a distribution.
func Load(ctx context.Context, runID string, src Source) ([]ranges.Record, error) {
	archive := src.Archive
	if archive == "" {
		if src.URL == "" {
			return nil, errors.New("either an archive path or a source url is required")
		}
		dir, err := os.MkdirTemp("", "geobase-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)

		archive = filepath.Join(dir, filepath.Base(src.URL))
		t0 := time.Now()
		n, err := Download(ctx, nil, src.URL, archive)
		if err != nil {
			LogError(runID, "download", err)
			return nil, err
		}
		LogFetch(runID, src.URL, n, time.Since(t0))
	}

	t0 := time.Now()
	files, err := OpenArchive(archive)
	if err != nil {
		LogError(runID, "open archive", err)
		return nil, err
	}
	recs, cities, err := Parse(files, src.Charset)
	if err != nil {
		LogError(runID, "parse", err)
		return nil, err
	}
	LogParse(runID, cities, len(recs), time.Since(t0))
	return recs, nil
}

// NewRunID returns an id used to correlate the log lines of one refresh.
func NewRunID() string {
	return uuid.NewString()
}

// Run converges the range table onto recs inside one transaction.
func Run(ctx context.Context, gdb *gorm.DB, runID string, cfg Config, recs []ranges.Record) (Stats, error) {
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return Stats{}, err
	}
	if mode == ModeReplace && !cfg.Confirm {
		return Stats{}, ErrReplaceNotConfirmed
	}

	stats := Stats{Parsed: len(recs)}
	t0 := time.Now()

	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store, err := ranges.New(ranges.Config{
			Conn:   db.NewConn(tx),
			Table:  cfg.Table,
			Decode: cfg.Decode,
		})
		if err != nil {
			return err
		}

		if cfg.CreateSchema {
			if err := db.EnsureTableSchema(tx, cfg.Table); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
		}

		switch mode {
		case ModeReplace:
			return replace(ctx, store, recs, &stats)
		default:
			return merge(ctx, store, recs, &stats)
		}
	})
	if err != nil {
		LogError(runID, string(mode), err)
		return Stats{}, err
	}

	LogApply(runID, mode, stats, time.Since(t0))
	return stats, nil
}

func replace(ctx context.Context, store *ranges.Store, recs []ranges.Record, stats *Stats) error {
	n, err := store.DeleteAll(ctx)
	if err != nil {
		return err
	}
	stats.Deleted = int(n)

	if err := store.BulkCreate(ctx, recs); err != nil {
		return err
	}
	stats.Inserted = len(recs)
	return nil
}

func merge(ctx context.Context, store *ranges.Store, recs []ranges.Record, stats *Stats) error {
	if _, err := store.MarkAll(ctx); err != nil {
		return err
	}

	var fresh []ranges.Record
	for _, rec := range recs {
		err := store.Update(ctx, rec.IStart, rec.IEnd, ranges.PatchFrom(rec))
		switch {
		case err == nil:
			stats.Updated++
		case ranges.IsNotFound(err):
			rec.InUpdate = false
			fresh = append(fresh, rec)
		default:
			return err
		}
	}

	if err := store.BulkCreate(ctx, fresh); err != nil {
		return err
	}
	stats.Inserted = len(fresh)

	n, err := store.Sweep(ctx)
	if err != nil {
		return err
	}
	stats.Deleted = int(n)
	return nil
}
