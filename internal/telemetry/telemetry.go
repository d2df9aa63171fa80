package telemetry

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/jobagent/config"
)

// Telemetry tracks session counters and model usage.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	llmCalls *prometheus.CounterVec
	cards    prometheus.Counter
}

// NewTelemetry creates a telemetry instance and registers its collectors.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	registry := prometheus.NewRegistry()
	t := &Telemetry{
		config:   cfg,
		logger:   log.New(os.Stdout, "[TELEMETRY] ", log.LstdFlags),
		registry: registry,
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobagent_card_outcomes_total",
			Help: "Terminal outcomes per processed job card.",
		}, []string{"outcome"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobagent_llm_calls_total",
			Help: "Language-model calls by operation and result.",
		}, []string{"operation", "result"}),
		cards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobagent_cards_processed_total",
			Help: "Job cards opened during sessions.",
		}),
	}
	registry.MustRegister(t.outcomes, t.llmCalls, t.cards)
	return t
}

// RecordOutcome counts one terminal card outcome.
func (t *Telemetry) RecordOutcome(outcome string) {
	t.outcomes.WithLabelValues(outcome).Inc()
}

// RecordLLMCall counts one model call.
func (t *Telemetry) RecordLLMCall(operation, result string) {
	t.llmCalls.WithLabelValues(operation, result).Inc()
}

// RecordCard counts one opened job card.
func (t *Telemetry) RecordCard() {
	t.cards.Inc()
}

// Serve exposes /metrics on the configured port when telemetry is enabled.
// It returns immediately; the listener runs until the process exits.
func (t *Telemetry) Serve() {
	if !t.config.Enabled || t.config.MetricsPort <= 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", t.config.MetricsPort)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			t.logger.Printf("metrics listener stopped: %v", err)
		}
	}()
	t.logger.Printf("metrics available on %s/metrics", addr)
}

var debugLogging bool

// SetDebug switches component loggers into debug mode. Call once at
// startup, before loggers are handed out.
func SetDebug(enabled bool) { debugLogging = enabled }

// NewLogger returns a component logger in the shared format. Debug mode
// adds the caller file and line to every entry.
func NewLogger(prefix string) *log.Logger {
	flags := log.LstdFlags
	if debugLogging {
		flags |= log.Lshortfile
	}
	return log.New(os.Stdout, "["+prefix+"] ", flags)
}
