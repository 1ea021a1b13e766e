package metrics

import (
	"context"
	"errors"
	"time"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values
const (
	ResultSuccess     = "success"
	ResultNotFound    = "not_found"
	ResultUnsupported = "unsupported"
	ResultInvalid     = "invalid"
	ResultError       = "error"
)

// APLCollectors holds the APL metric vectors. One set is shared by every
// instrumented store registered on the same registry.
type APLCollectors struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewAPLCollectors creates the APL metrics and registers them on reg
func NewAPLCollectors(reg prometheus.Registerer) (*APLCollectors, error) {
	c := &APLCollectors{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apl_operations_total",
			Help: "Auth persistence layer operations by backend, operation and result.",
		}, []string{"backend", "operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apl_operation_duration_seconds",
			Help:    "Auth persistence layer operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
	}

	for _, collector := range []prometheus.Collector{c.operations, c.duration} {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
			switch existing := already.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				c.operations = existing
			case *prometheus.HistogramVec:
				c.duration = existing
			}
		}
	}
	return c, nil
}

// InstrumentedAPL records a counter and a latency observation for every call
// to the wrapped store. Health checks are passed through unmeasured.
type InstrumentedAPL struct {
	next       ports.APL
	backend    string
	collectors *APLCollectors
}

// NewInstrumentedAPL wraps next, labelling its metrics with backend
func NewInstrumentedAPL(next ports.APL, backend string, collectors *APLCollectors) *InstrumentedAPL {
	return &InstrumentedAPL{next: next, backend: backend, collectors: collectors}
}

var _ ports.APL = (*InstrumentedAPL)(nil)

// Unwrap returns the underlying store
func (a *InstrumentedAPL) Unwrap() ports.APL {
	return a.next
}

func (a *InstrumentedAPL) observe(operation string, start time.Time, result string) {
	a.collectors.operations.WithLabelValues(a.backend, operation, result).Inc()
	a.collectors.duration.WithLabelValues(a.backend, operation).Observe(time.Since(start).Seconds())
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, domain.ErrUnsupported):
		return ResultUnsupported
	case errors.Is(err, domain.ErrInvalidInput):
		return ResultInvalid
	default:
		return ResultError
	}
}

func (a *InstrumentedAPL) Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	start := time.Now()
	authData, err := a.next.Get(ctx, saleorAPIURL)
	result := resultOf(err)
	if err == nil && authData == nil {
		result = ResultNotFound
	}
	a.observe("get", start, result)
	return authData, err
}

func (a *InstrumentedAPL) Set(ctx context.Context, authData *domain.AuthData) error {
	start := time.Now()
	err := a.next.Set(ctx, authData)
	a.observe("set", start, resultOf(err))
	return err
}

func (a *InstrumentedAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	start := time.Now()
	err := a.next.Delete(ctx, saleorAPIURL)
	a.observe("delete", start, resultOf(err))
	return err
}

func (a *InstrumentedAPL) GetAll(ctx context.Context) ([]*domain.AuthData, error) {
	start := time.Now()
	all, err := a.next.GetAll(ctx)
	a.observe("get_all", start, resultOf(err))
	return all, err
}

func (a *InstrumentedAPL) IsReady(ctx context.Context) ports.ReadyResult {
	return a.next.IsReady(ctx)
}

func (a *InstrumentedAPL) IsConfigured(ctx context.Context) ports.ConfiguredResult {
	return a.next.IsConfigured(ctx)
}
