// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import "time"

// Stats are the running counters of one run.
type Stats struct {
	Total       int `json:"total" yaml:"total"`
	Processed   int `json:"processed" yaml:"processed"`
	Matched     int `json:"matched" yaml:"matched"`
	Failed      int `json:"failed" yaml:"failed"`
	Batches     int `json:"batches" yaml:"batches"`
	BatchesDone int `json:"batches_done" yaml:"batches_done"`

	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Throughput is candidates processed per second.
func (s Stats) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Processed) / s.Elapsed.Seconds()
}

// ETA estimates the time left at the current throughput.
func (s Stats) ETA() time.Duration {
	tp := s.Throughput()
	remaining := s.Total - s.Processed
	if tp == 0 || remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / tp * float64(time.Second))
}
