package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/EmpoweredVote/geobase/internal/lookup"
	"github.com/EmpoweredVote/geobase/internal/ranges"
	"github.com/EmpoweredVote/geobase/internal/utils"
	"github.com/goccy/go-json"
)

func addServerTiming(w http.ResponseWriter, kv ...[2]string) {
	// kv: [][2]string{{"lookup","1.3"}}
	if len(kv) == 0 {
		return
	}
	val := ""
	for i, p := range kv {
		if i > 0 {
			val += ", "
		}
		val += fmt.Sprintf("%s;dur=%s", p[0], p[1])
	}
	w.Header().Add("Server-Timing", val)
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.1f", float64(d.Microseconds())/1000)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warningf("encode response: %v", err)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError maps store and lookup errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lookup.ErrInvalidAddress),
		errors.Is(err, ranges.ErrInvalidRange),
		errors.Is(err, ranges.ErrEmptyPatch),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, ranges.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ranges.ErrDuplicateKey):
		status = http.StatusConflict
	case errors.Is(err, ranges.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	id, _ := utils.GetRequestIDFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Errorf("[%s] %s %s: %v", id, r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), RequestID: id})
}
