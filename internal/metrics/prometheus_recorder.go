package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "fitstate"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	writes           *prom.CounterVec
	rejected         *prom.CounterVec
	dispatchDuration prom.Histogram
	listenerResults  *prom.CounterVec
	resets           prom.Counter
	historyLength    prom.Gauge
	subscriptions    prom.Gauge
	journalResults   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.writes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "state_writes_total",
			Help:      "Accepted state writes by kind",
		}, []string{"kind"})
		pr.rejected = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "state_rejected_writes_total",
			Help:      "Rejected state writes by reason",
		}, []string{"reason"})
		pr.dispatchDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of a top-level write including its listener fan-out",
			Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
		})
		pr.listenerResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "listener_results_total",
			Help:      "Listener invocations by outcome",
		}, []string{"result"})
		pr.resets = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "state_resets_total",
			Help:      "Number of store resets",
		})
		pr.historyLength = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "history_length",
			Help:      "Current number of history entries",
		})
		pr.subscriptions = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "active_subscriptions",
			Help:      "Current number of registered subscriptions",
		})
		pr.journalResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "journal_records_total",
			Help:      "Journal record outcomes",
		}, []string{"result"})
		reg.MustRegister(pr.writes, pr.rejected, pr.dispatchDuration, pr.listenerResults, pr.resets, pr.historyLength, pr.subscriptions, pr.journalResults)
	})
	return pr
}

func (p *PrometheusRecorder) IncWrite(kind WriteKind) {
	if p == nil || p.writes == nil {
		return
	}
	p.writes.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusRecorder) IncRejectedWrite(reason RejectReason) {
	if p == nil || p.rejected == nil {
		return
	}
	p.rejected.WithLabelValues(string(reason)).Inc()
}

func (p *PrometheusRecorder) ObserveDispatchDuration(d time.Duration) {
	if p == nil || p.dispatchDuration == nil {
		return
	}
	p.dispatchDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncListenerResult(result ResultLabel) {
	if p == nil || p.listenerResults == nil {
		return
	}
	p.listenerResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncReset() {
	if p == nil || p.resets == nil {
		return
	}
	p.resets.Inc()
}

func (p *PrometheusRecorder) SetHistoryLength(n int) {
	if p == nil || p.historyLength == nil {
		return
	}
	p.historyLength.Set(float64(n))
}

func (p *PrometheusRecorder) SetActiveSubscriptions(n int) {
	if p == nil || p.subscriptions == nil {
		return
	}
	p.subscriptions.Set(float64(n))
}

func (p *PrometheusRecorder) IncJournalResult(result ResultLabel) {
	if p == nil || p.journalResults == nil {
		return
	}
	p.journalResults.WithLabelValues(string(result)).Inc()
}
