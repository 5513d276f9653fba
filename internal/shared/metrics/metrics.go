package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the subset of metrics used by the analysis client and share codec.
type Recorder interface {
	AnalysisStarted()
	AnalysisCompleted(d time.Duration)
	AnalysisFailed(d time.Duration)
	ShareDecoded(ok bool)
}

// Collector records service metrics into a Prometheus registry.
type Collector struct {
	analysisStarted   prometheus.Counter
	analysisCompleted prometheus.Counter
	analysisFailed    prometheus.Counter
	analysisDuration  prometheus.Histogram
	shareDecodes      *prometheus.CounterVec
	gatherer          prometheus.Gatherer
}

// NewCollector registers the service metrics on reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		analysisStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resume_match_analysis_started_total",
			Help: "Total analyses started",
		}),
		analysisCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resume_match_analysis_completed_total",
			Help: "Total analyses completed",
		}),
		analysisFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resume_match_analysis_failed_total",
			Help: "Total analyses failed",
		}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resume_match_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		shareDecodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resume_match_share_decode_total",
			Help: "Share link decode attempts by result",
		}, []string{"result"}),
		gatherer: reg,
	}
	reg.MustRegister(
		c.analysisStarted,
		c.analysisCompleted,
		c.analysisFailed,
		c.analysisDuration,
		c.shareDecodes,
	)
	return c
}

func (c *Collector) AnalysisStarted() {
	c.analysisStarted.Inc()
}

func (c *Collector) AnalysisCompleted(d time.Duration) {
	c.analysisCompleted.Inc()
	c.analysisDuration.Observe(d.Seconds())
}

func (c *Collector) AnalysisFailed(d time.Duration) {
	c.analysisFailed.Inc()
	c.analysisDuration.Observe(d.Seconds())
}

func (c *Collector) ShareDecoded(ok bool) {
	result := "invalid"
	if ok {
		result = "ok"
	}
	c.shareDecodes.WithLabelValues(result).Inc()
}

// Handler exposes metrics in Prometheus text format.
func (c *Collector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		h.ServeHTTP(ctx.Writer, ctx.Request)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) AnalysisStarted()                {}
func (Nop) AnalysisCompleted(time.Duration) {}
func (Nop) AnalysisFailed(time.Duration)    {}
func (Nop) ShareDecoded(bool)               {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
