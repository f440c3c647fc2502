// Package metrics records build statistics. The Prometheus implementation can
// dump its registry as a node-exporter textfile after each build.
package metrics

import "time"

// Recorder receives build observations. The pipeline calls it from several
// goroutines, so implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	AddPages(status string, n int)
}

// NoopRecorder discards everything. It is the default when no metrics file is
// configured.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) AddPages(string, int)                       {}
