package monitoring

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/model"
)

const namespace = "geothermal"

// Metrics holds the Prometheus gauges describing the most recent run. Each
// Metrics owns its registry so a CLI invocation can dump it to a
// node-exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	RowsRead         prometheus.Gauge
	RowsDropped      *prometheus.GaugeVec // labels: reason
	Measurements     prometheus.Gauge
	BoundaryPoints   prometheus.Gauge
	Plates           prometheus.Gauge
	HeatFlowCap      prometheus.Gauge
	Score            *prometheus.GaugeVec // labels: stat={min,mean,max}
	SitesSelected    prometheus.Gauge
	StageDuration    *prometheus.GaugeVec // labels: stage
	LastRunSuccess   prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// NewMetrics creates the run gauges and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_read",
			Help:      "Measurement rows read from the source table.",
		}),
		RowsDropped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_dropped",
			Help:      "Measurement rows dropped, by reason.",
		}, []string{"reason"}),
		Measurements: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "measurements_scored",
			Help:      "Measurements that survived filtering and were scored.",
		}),
		BoundaryPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boundary_points",
			Help:      "Plate boundary points in the spatial index.",
		}),
		Plates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plates",
			Help:      "Distinct plate identifiers in the boundary table.",
		}),
		HeatFlowCap: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heat_flow_cap_mw_m2",
			Help:      "Heat-flow normalization cap (configured quantile).",
		}),
		Score: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "composite_score",
			Help:      "Composite score distribution of the last run.",
		}, []string{"stat"}),
		SitesSelected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sites_selected",
			Help:      "Sites in the top-sites shortlist.",
		}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage in the last run.",
		}, []string{"stage"}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run completed, 0 when it failed.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	m.registry.MustRegister(
		m.RowsRead,
		m.RowsDropped,
		m.Measurements,
		m.BoundaryPoints,
		m.Plates,
		m.HeatFlowCap,
		m.Score,
		m.SitesSelected,
		m.StageDuration,
		m.LastRunSuccess,
		m.LastRunTimestamp,
	)
	return m
}

// Registry returns the registry the gauges are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordStage sets the duration gauge for one pipeline stage.
func (m *Metrics) RecordStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// RecordSummary copies a completed run's summary into the gauges.
func (m *Metrics) RecordSummary(s *model.RunSummary, finishedAt time.Time) {
	m.RowsRead.Set(float64(s.RowsRead))
	m.RowsDropped.Reset()
	for reason, n := range s.Dropped {
		m.RowsDropped.WithLabelValues(reason).Set(float64(n))
	}
	m.Measurements.Set(float64(s.Measurements))
	m.BoundaryPoints.Set(float64(s.BoundaryPoints))
	m.Plates.Set(float64(s.Plates))
	m.HeatFlowCap.Set(s.HeatFlowCap)
	m.Score.WithLabelValues("min").Set(s.Stats.Min)
	m.Score.WithLabelValues("mean").Set(s.Stats.Mean)
	m.Score.WithLabelValues("max").Set(s.Stats.Max)
	m.SitesSelected.Set(float64(s.SitesSelected))
	m.LastRunSuccess.Set(1)
	m.LastRunTimestamp.Set(float64(finishedAt.Unix()))
}

// RecordFailure marks the last run as failed.
func (m *Metrics) RecordFailure(finishedAt time.Time) {
	m.LastRunSuccess.Set(0)
	m.LastRunTimestamp.Set(float64(finishedAt.Unix()))
}

// WriteTextfile writes the registry in text exposition format. The file is
// replaced atomically so a collector never reads a partial write.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "monitoring: create textfile directory")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return eris.Wrapf(err, "monitoring: write textfile %s", path)
	}
	return nil
}
