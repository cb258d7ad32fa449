package metrics

import "time"

// NopMetrics discards every metric. Used by the CLI and in tests.
type NopMetrics struct{}

var _ Recorder = (*NopMetrics)(nil)

// NewNop creates a new no-op recorder
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

func (n *NopMetrics) RecordGeneration(_ string, _ time.Duration) {}

func (n *NopMetrics) RecordAssignments(_ string, _ int) {}

func (n *NopMetrics) RecordShortfall(_ string, _ int) {}
