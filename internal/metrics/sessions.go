package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionCounter reports how many sessions are open.
type SessionCounter interface {
	Counts() (editing, playback int)
}

// SessionCollector reads open session counts on each scrape.
type SessionCollector struct {
	sessions SessionCounter
	open     *prometheus.Desc
}

// NewSessionCollector returns a collector over sessions.
func NewSessionCollector(sessions SessionCounter) *SessionCollector {
	return &SessionCollector{
		sessions: sessions,
		open: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sessions", "open"),
			"Number of open sessions by kind",
			[]string{"kind"},
			nil,
		),
	}
}

// Describe sends the metric descriptors to the channel.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
}

// Collect sends the current session counts.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	if c.sessions == nil {
		return
	}
	editing, playback := c.sessions.Counts()
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(editing), "editing")
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(playback), "playback")
}
