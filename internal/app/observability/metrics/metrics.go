package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal       metric.Int64Counter
	HTTPRequestDuration     metric.Float64Histogram
	ItineraryRequestsTotal  metric.Int64Counter
	ItineraryRounds         metric.Int64Histogram
	ToolInvocationsTotal    metric.Int64Counter
	ProviderRequestDuration metric.Float64Histogram
	ModelCallDuration       metric.Float64Histogram
	SearchCacheHitsTotal    metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider, so it must run
// after the provider is installed to export anything.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-travel-planner")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.ItineraryRequestsTotal, err = meter.Int64Counter(
			"itinerary_requests_total",
			metric.WithDescription("Total number of itinerary requests by outcome"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_requests_total: %v", err)
		}

		m.ItineraryRounds, err = meter.Int64Histogram(
			"itinerary_rounds",
			metric.WithDescription("Model rounds needed to finish an itinerary"),
			metric.WithUnit("{round}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_rounds: %v", err)
		}

		m.ToolInvocationsTotal, err = meter.Int64Counter(
			"tool_invocations_total",
			metric.WithDescription("Total number of tool invocations"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create tool_invocations_total: %v", err)
		}

		m.ProviderRequestDuration, err = meter.Float64Histogram(
			"provider_request_duration_seconds",
			metric.WithDescription("Duration of search provider requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_request_duration_seconds: %v", err)
		}

		m.ModelCallDuration, err = meter.Float64Histogram(
			"model_call_duration_seconds",
			metric.WithDescription("Duration of language model calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create model_call_duration_seconds: %v", err)
		}

		m.SearchCacheHitsTotal, err = meter.Int64Counter(
			"search_cache_hits_total",
			metric.WithDescription("Search provider responses served from cache"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create search_cache_hits_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the global AppMetrics instance. Instruments are created lazily
// against whatever MeterProvider is installed, a no-op one in tests.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
