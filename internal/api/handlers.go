// Package api exposes address lookups and range maintenance over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/EmpoweredVote/geobase/internal/lookup"
	"github.com/EmpoweredVote/geobase/internal/ranges"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("api")

var errBadRequest = errors.New("bad request")

type Handler struct {
	store  *ranges.Store
	engine *lookup.Engine
}

func NewHandler(store *ranges.Store) *Handler {
	return &Handler{store: store, engine: lookup.New(store)}
}

// Lookup returns every range covering {ip}; an uncovered address yields [].
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	t0 := time.Now()
	recs, err := h.engine.Lookup(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	addServerTiming(w, [2]string{"lookup", ms(time.Since(t0))})
	writeJSON(w, http.StatusOK, recs)
}

// Best returns the narrowest range covering {ip}.
func (h *Handler) Best(w http.ResponseWriter, r *http.Request) {
	t0 := time.Now()
	ip := chi.URLParam(r, "ip")
	rec, ok, err := h.engine.Best(r.Context(), ip)
	if err != nil {
		writeError(w, r, err)
		return
	}
	addServerTiming(w, [2]string{"lookup", ms(time.Since(t0))})
	if !ok {
		writeError(w, r, fmt.Errorf("%w: no range covers %s", ranges.ErrNotFound, ip))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Intersections answers GET /ranges?start=a.b.c.d&end=a.b.c.d&order=asc|desc.
// end defaults to start.
func (h *Handler) Intersections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := lookup.AddressToInt(q.Get("start"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	end := start
	if e := q.Get("end"); e != "" {
		if end, err = lookup.AddressToInt(e); err != nil {
			writeError(w, r, err)
			return
		}
	}
	order, err := ranges.ParseOrder(q.Get("order"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	recs, err := h.store.Intersections(r.Context(), start, end, order)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []ranges.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) GetRange(w http.ResponseWriter, r *http.Request) {
	istart, iend, err := keyParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.store.FetchOne(r.Context(), istart, iend)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) CreateRange(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	var rec ranges.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := h.store.Insert(r.Context(), rec); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.store.FetchOne(r.Context(), rec.IStart, rec.IEnd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateRange(w http.ResponseWriter, r *http.Request) {
	istart, iend, err := keyParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var patch ranges.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := h.store.Update(r.Context(), istart, iend, patch); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.store.FetchOne(r.Context(), istart, iend)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRange is idempotent: a missing key still answers 204.
func (h *Handler) DeleteRange(w http.ResponseWriter, r *http.Request) {
	istart, iend, err := keyParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), istart, iend); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func keyParams(r *http.Request) (uint32, uint32, error) {
	istart, err := strconv.ParseUint(chi.URLParam(r, "istart"), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: istart: %v", errBadRequest, err)
	}
	iend, err := strconv.ParseUint(chi.URLParam(r, "iend"), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: iend: %v", errBadRequest, err)
	}
	return uint32(istart), uint32(iend), nil
}
