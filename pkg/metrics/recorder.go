// Package metrics records generation statistics.
package metrics

import "time"

// Generation outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeLocked  = "locked"
)

// Recorder receives generation metrics.
// Implementations must be safe for concurrent use since the HTTP server may run generations in parallel.
type Recorder interface {
	// RecordGeneration counts a generation attempt and observes its duration
	RecordGeneration(outcome string, duration time.Duration)

	// RecordAssignments counts assignments created by a pass
	RecordAssignments(pass string, count int)

	// RecordShortfall counts slots a pass could not fill
	RecordShortfall(pass string, slots int)
}
