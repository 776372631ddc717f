package convert

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 转换过程的 prometheus 指标
type Metrics struct {
	tables        prometheus.Counter
	rows          prometheus.Counter
	unmapped      *prometheus.CounterVec
	tableDuration prometheus.Histogram
}

// NewMetrics 创建指标并注册到 reg
// 同名指标已注册时复用已有的指标，同一个 reg 上可以多次创建转换器
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}

	var err error
	if m.tables, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tables_total",
		Help:      "Total number of converted tables",
	})); err != nil {
		return nil, err
	}
	if m.rows, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_total",
		Help:      "Total number of converted rows",
	})); err != nil {
		return nil, err
	}
	if m.unmapped, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unmapped_types_total",
		Help:      "Total number of columns whose declared type has no mapping",
	}, []string{"dialect"})); err != nil {
		return nil, err
	}
	if m.tableDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "table_duration_seconds",
		Help:      "Duration of converting one table in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
	})); err != nil {
		return nil, err
	}

	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metric failed")
	}
	return c, nil
}

func (m *Metrics) observeTable(rows int, duration time.Duration) {
	if m == nil {
		return
	}
	m.tables.Inc()
	m.rows.Add(float64(rows))
	m.tableDuration.Observe(duration.Seconds())
}

func (m *Metrics) observeUnmapped(dialect string) {
	if m == nil {
		return
	}
	m.unmapped.WithLabelValues(dialect).Inc()
}
