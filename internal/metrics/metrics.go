// Package metrics exposes engine and session activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"videothingy/council-highlights/internal/selection"
)

const namespace = "highlights"

// Recorder implements the selection, playback and worker observers.
type Recorder struct {
	selectionOps      *prometheus.CounterVec
	extractions       *prometheus.CounterVec
	extractionSeconds prometheus.Histogram
	navigations       *prometheus.CounterVec
	renderJobs        *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors with reg. Registering
// twice with the same registry fails.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		selectionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "operations_total",
			Help:      "Selection changes by kind (single, toggle, range, clear).",
		}, []string{"kind"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "extractions_total",
			Help:      "Segment extraction attempts by outcome.",
		}, []string{"outcome"}),
		extractionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "extraction_duration_seconds",
			Help:      "Time spent in segment extraction, including the store round trips.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "navigations_total",
			Help:      "Playback navigation commands by kind.",
		}, []string{"kind"}),
		renderJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "jobs_total",
			Help:      "Finished render dispatch jobs by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{r.selectionOps, r.extractions, r.extractionSeconds, r.navigations, r.renderJobs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SelectionChanged counts a selection change.
func (r *Recorder) SelectionChanged(kind string) {
	r.selectionOps.WithLabelValues(kind).Inc()
}

// ExtractionFinished counts an extraction and observes its duration. Calls
// that did nothing are only counted.
func (r *Recorder) ExtractionFinished(outcome selection.Outcome, elapsed time.Duration) {
	r.extractions.WithLabelValues(string(outcome)).Inc()
	if outcome == selection.OutcomeNoOp || outcome == selection.OutcomeBusy {
		return
	}
	r.extractionSeconds.Observe(elapsed.Seconds())
}

// Navigated counts a playback navigation.
func (r *Recorder) Navigated(kind string) {
	r.navigations.WithLabelValues(kind).Inc()
}

// JobFinished counts a finished render job.
func (r *Recorder) JobFinished(err error) {
	result := "dispatched"
	if err != nil {
		result = "failed"
	}
	r.renderJobs.WithLabelValues(result).Inc()
}
