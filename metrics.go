package tablemap

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts synthesized statements. A nil *Metrics records nothing.
type Metrics struct {
	statements *prometheus.CounterVec
	rows       *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them on reg when it is not
// nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablemap",
			Name:      "statements_total",
			Help:      "Insert, update and delete calls by outcome.",
		}, []string{"op", "outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablemap",
			Name:      "rows_affected_total",
			Help:      "Rows affected by executed statements.",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.statements, m.rows)
	}
	return m
}

func (m *Metrics) observe(op Op, rows int64, err error) {
	if m == nil {
		return
	}
	m.statements.WithLabelValues(op.String(), outcome(err)).Inc()
	if err == nil && rows > 0 {
		m.rows.WithLabelValues(op.String()).Add(float64(rows))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCatalog):
		return "catalog_error"
	case errors.Is(err, ErrNoColumns):
		return "no_columns"
	case errors.Is(err, ErrMissingKey):
		return "missing_key"
	case errors.Is(err, ErrValueCoercion):
		return "coercion_error"
	case errors.Is(err, ErrExecution):
		return "execution_error"
	default:
		return "error"
	}
}
