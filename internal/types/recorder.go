// internal/types/recorder.go
package types

import "time"

// Recorder observes the outcome of every source fetch
type Recorder interface {
	RecordSource(source string, field Field, duration time.Duration)
}

// NopRecorder discards observations
type NopRecorder struct{}

func (NopRecorder) RecordSource(string, Field, time.Duration) {}
