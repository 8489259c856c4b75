package observability

import (
	"context"
	"errors"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "conductor"

// Metrics records run activity as Prometheus series.
type Metrics struct {
	nodeVisits      *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	decisions       *prometheus.CounterVec
	replans         prometheus.Counter
	replanExhausted prometheus.Counter
	workerDuration  *prometheus.HistogramVec
	workerErrors    *prometheus.CounterVec
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of node visits",
		}, []string{"node"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Duration of node executions",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"node"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Executor decisions by outcome",
		}, []string{"kind"}),
		replans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replans_total",
			Help:      "Replans granted",
		}),
		replanExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replans_exhausted_total",
			Help:      "Replan requests refused at the per-step cap",
		}),
		workerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_duration_seconds",
			Help:      "Duration of worker calls",
			Buckets:   prometheus.ExponentialBuckets(0.05, 3, 8),
		}, []string{"worker"}),
		workerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_errors_total",
			Help:      "Failed worker calls",
		}, []string{"worker"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by outcome",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end run duration",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	for _, c := range []prometheus.Collector{
		m.nodeVisits, m.nodeDuration, m.decisions, m.replans, m.replanExhausted,
		m.workerDuration, m.workerErrors, m.runs, m.runDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns the lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(nodeLabel(e.Node)).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeDuration.WithLabelValues(nodeLabel(e.Node)).Observe(e.Duration.Seconds())
		},
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) {
			m.decisions.WithLabelValues(decisionKind(e)).Inc()
		},
		OnReplan: func(context.Context, *domain.ReplanEvent) {
			m.replans.Inc()
		},
		OnReplanExhausted: func(context.Context, *domain.ReplanEvent) {
			m.replanExhausted.Inc()
		},
		OnWorkerReturn: func(_ context.Context, e *domain.WorkerEvent) {
			m.workerDuration.WithLabelValues(e.Worker.String()).Observe(e.Duration.Seconds())
			if e.IsError {
				m.workerErrors.WithLabelValues(e.Worker.String()).Inc()
			}
		},
	}
}

// ObserveRun records the outcome of a finished run.
func (m *Metrics) ObserveRun(seconds float64, err error) {
	m.runs.WithLabelValues(Outcome(err)).Inc()
	m.runDuration.Observe(seconds)
}

// Outcome classifies a run error for metric labels.
func Outcome(err error) string {
	var (
		planErr     *domain.PlanGenerationError
		decisionErr *domain.ExecutorDecisionError
		workerErr   *domain.WorkerCapabilityError
	)
	switch {
	case err == nil:
		return "finished"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &planErr):
		return "plan_error"
	case errors.As(err, &decisionErr):
		return "decision_error"
	case errors.As(err, &workerErr):
		return "worker_error"
	case errors.Is(err, domain.ErrTransitionLimit):
		return "transition_limit"
	}
	return "error"
}

func decisionKind(e *domain.DecisionEvent) string {
	switch {
	case e.Shortcut:
		return "shortcut"
	case e.Replan && e.Goto == domain.TargetPlanner:
		return "replan"
	case e.Replan:
		return "forced_advance"
	case e.Goto == domain.WorkerTarget(e.Planned):
		return "advance"
	}
	return "detour"
}

// nodeLabel keeps label cardinality bounded to known nodes.
func nodeLabel(t domain.Target) string {
	switch t {
	case domain.TargetPlanner, domain.TargetExecutor:
		return t.String()
	}
	if w, ok := t.Worker(); ok {
		return w.String()
	}
	return "unknown"
}
