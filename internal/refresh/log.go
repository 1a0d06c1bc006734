package refresh

import (
	"time"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("refresh")

// LogFetch logs a download of the upstream archive.
func LogFetch(runID, url string, bytes int64, duration time.Duration) {
	log.Infof("[%s] fetched %s (%d bytes) in %dms", runID, url, bytes, duration.Milliseconds())
}

// LogParse logs how many ranges were read from the distribution.
func LogParse(runID string, cities, ranges int, duration time.Duration) {
	log.Infof("[%s] parsed %d cities, %d ranges in %dms",
		runID, cities, ranges, duration.Milliseconds())
}

// LogApply logs the outcome of a refresh transaction.
func LogApply(runID string, mode Mode, s Stats, duration time.Duration) {
	log.Infof("[%s] %s: inserted=%d updated=%d deleted=%d in %dms",
		runID, mode, s.Inserted, s.Updated, s.Deleted, duration.Milliseconds())
}

// LogError logs a failed refresh step.
func LogError(runID, operation string, err error) {
	log.Errorf("[%s] %s error: %v", runID, operation, err)
}
