// Package lookup resolves dotted-quad IPv4 addresses to the stored ranges
// that cover them.
package lookup

import (
	"context"

	"github.com/EmpoweredVote/geobase/internal/ranges"
)

// Finder is the part of the range store the engine needs.
type Finder interface {
	FindContaining(ctx context.Context, point uint32) ([]ranges.Record, error)
}

type Engine struct {
	store Finder
}

func New(store Finder) *Engine {
	return &Engine{store: store}
}

// Lookup returns every range covering addr, narrowest first. A malformed
// address fails before the store is queried; an uncovered address yields
// an empty slice.
func (e *Engine) Lookup(ctx context.Context, addr string) ([]ranges.Record, error) {
	point, err := AddressToInt(addr)
	if err != nil {
		return nil, err
	}
	recs, err := e.store.FindContaining(ctx, point)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []ranges.Record{}
	}
	return recs, nil
}

// Best returns the narrowest range covering addr. ok is false when no
// range covers it.
func (e *Engine) Best(ctx context.Context, addr string) (rec ranges.Record, ok bool, err error) {
	recs, err := e.Lookup(ctx, addr)
	if err != nil || len(recs) == 0 {
		return ranges.Record{}, false, err
	}
	return recs[0], true, nil
}
