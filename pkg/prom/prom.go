package prom

import (
	"fmt"
	"sync"

	xhttp "github.com/nimasrn/billing-console/pkg/http"
	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemGateway = "gateway"
	SystemConsole = "console"
)

const (
	MetricGatewayRequestsTotal      = "requests_total"
	MetricGatewayRequestDuration    = "request_duration_seconds"
	MetricGatewayEnrichmentFallback = "enrichment_fallbacks_total"

	MetricConsoleSessions    = "sessions_total"
	MetricConsoleIdempotency = "idempotency_total"
)

const (
	TypeCounterVec   = "counterVec"
	TypeHistogramVec = "histogramVec"
)

type definition struct {
	kind      string
	subsystem string
	name      string
	help      string
	labels    []string
}

var definitions = []definition{
	{TypeCounterVec, SystemGateway, MetricGatewayRequestsTotal, "Billing API calls by operation and outcome.", []string{"operation", "outcome"}},
	{TypeHistogramVec, SystemGateway, MetricGatewayRequestDuration, "Billing API call latency.", []string{"operation"}},
	{TypeCounterVec, SystemGateway, MetricGatewayEnrichmentFallback, "Subscriptions shown with the fallback customer name.", []string{"reason"}},
	{TypeCounterVec, SystemConsole, MetricConsoleSessions, "Operator session events.", []string{"event"}},
	{TypeCounterVec, SystemConsole, MetricConsoleIdempotency, "Idempotency-Key handling results.", []string{"result"}},
}

var (
	mu         sync.Mutex
	namespace  = "none"
	enabled    bool
	counters   = make(map[string]*prometheus.CounterVec)
	histograms = make(map[string]*prometheus.HistogramVec)

	defaultLabels prometheus.Labels
)

// registerer is swapped by tests.
var registerer prometheus.Registerer = prometheus.DefaultRegisterer

// Create registers every console metric under nameSpace. Until it is called
// the record helpers do nothing.
func Create(host string, env string, nameSpace string) error {
	mu.Lock()
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = nameSpace
	mu.Unlock()

	for _, d := range definitions {
		if err := CreateMetric(d.kind, d.subsystem, d.name, d.labels...); err != nil {
			return err
		}
	}

	mu.Lock()
	enabled = true
	mu.Unlock()
	return nil
}

func CreateMetric(metricType, subsystem, name string, labels ...string) error {
	mu.Lock()
	defer mu.Unlock()

	help := helpFor(subsystem, name)
	switch metricType {
	case TypeCounterVec:
		c, err := register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: defaultLabels,
		}, labels))
		if err != nil {
			return err
		}
		counters[subsystem+name] = c.(*prometheus.CounterVec)
		return nil
	case TypeHistogramVec:
		h, err := register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: defaultLabels,
			Buckets:     []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, labels))
		if err != nil {
			return err
		}
		histograms[subsystem+name] = h.(*prometheus.HistogramVec)
		return nil
	}
	return fmt.Errorf("metric type %s is not defined", metricType)
}

// ListenAndServer serves the default registry on addr until the process
// exits.
func ListenAndServer(addr string, uri string) {
	s := xhttp.CreateServer()
	s.GET(uri, fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	logger.Info("[metrics-server] listening...", "uri", uri, "addr", addr)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func helpFor(subsystem, name string) string {
	for _, d := range definitions {
		if d.subsystem == subsystem && d.name == name {
			return d.help
		}
	}
	return subsystem + " " + name
}

// register adds c, reusing an identical collector registered earlier.
func register(c prometheus.Collector) (prometheus.Collector, error) {
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	mu.Lock()
	v, ok := counters[subsystem+name]
	on := enabled
	mu.Unlock()
	if !on {
		return
	}
	if !ok {
		logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
		return
	}
	v.WithLabelValues(labelValues...).Add(num)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	mu.Lock()
	v, ok := histograms[subsystem+name]
	on := enabled
	mu.Unlock()
	if !on {
		return
	}
	if !ok {
		logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
		return
	}
	v.WithLabelValues(labelValues...).Observe(number)
}

// Enabled reports whether Create has run.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// ObserveGatewayRequest records one billing API call.
func ObserveGatewayRequest(operation, outcome string, seconds float64) {
	IncCounterVec(SystemGateway, MetricGatewayRequestsTotal, operation, outcome)
	AddHistogramVec(SystemGateway, MetricGatewayRequestDuration, seconds, operation)
}

func IncEnrichmentFallback(reason string) {
	IncCounterVec(SystemGateway, MetricGatewayEnrichmentFallback, reason)
}

func IncSession(event string) {
	IncCounterVec(SystemConsole, MetricConsoleSessions, event)
}

func IncIdempotency(result string) {
	IncCounterVec(SystemConsole, MetricConsoleIdempotency, result)
}

func disable() {
	mu.Lock()
	enabled = false
	mu.Unlock()
}
