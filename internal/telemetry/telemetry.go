package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/mohammad-safakhou/notesmith/config"
	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry tracks pipeline activity: generations by status, backend calls
// and retries by stage, fallback tier transitions, and estimated model cost.
// All record methods are safe on a nil receiver so tests can pass nil.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	mu           sync.RWMutex
	generations  map[string]int64 // status -> count
	backendCalls map[string]int64 // stage -> count
	retries      map[string]int64 // stage -> count
	tiers        map[string]int64 // tier -> count
	totalTime    time.Duration
	totalCost    float64
}

// Per-1K-character cost estimates for local and hosted models. Local models
// cost nothing; the table exists so hosted backends show up in the summary.
var modelCostPer1K = map[string]float64{
	"gpt-4o":      0.0050,
	"gpt-4o-mini": 0.0003,
	"llama3":      0,
	"mistral":     0,
}

var (
	promOnce sync.Once

	generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notesmith_generations_total",
		Help: "Completed note generations by terminal status.",
	}, []string{"status"})
	backendCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notesmith_backend_calls_total",
		Help: "Text-generation backend calls by stage and outcome.",
	}, []string{"stage", "outcome"})
	retriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notesmith_stage_retries_total",
		Help: "Stage-level retries against the generation backend.",
	}, []string{"stage"})
	tierTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notesmith_tier_transitions_total",
		Help: "Fallback cascade tier activations.",
	}, []string{"tier"})
	generationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notesmith_generation_duration_seconds",
		Help:    "Wall-clock duration of full note generations.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)

func registerCollectors() {
	promOnce.Do(func() {
		prometheus.MustRegister(generationsTotal, backendCallsTotal, retriesTotal, tierTransitionsTotal, generationSeconds)
	})
}

// NewTelemetry creates a telemetry instance and registers the prometheus
// collectors exactly once per process.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	registerCollectors()
	return &Telemetry{
		config:       cfg,
		logger:       log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		generations:  make(map[string]int64),
		backendCalls: make(map[string]int64),
		retries:      make(map[string]int64),
		tiers:        make(map[string]int64),
	}
}

// RecordGeneration records one completed pipeline run.
func (t *Telemetry) RecordGeneration(status string, duration time.Duration) {
	if t == nil {
		return
	}
	generationsTotal.WithLabelValues(status).Inc()
	generationSeconds.Observe(duration.Seconds())

	t.mu.Lock()
	t.generations[status]++
	t.totalTime += duration
	t.mu.Unlock()
}

// RecordBackendCall records one backend call and, when cost tracking is
// enabled, adds a character-count based cost estimate for the model.
func (t *Telemetry) RecordBackendCall(stage, model string, promptLen, responseLen int, err error) {
	if t == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	backendCallsTotal.WithLabelValues(stage, outcome).Inc()

	t.mu.Lock()
	t.backendCalls[stage]++
	if t.config.CostTracking {
		t.totalCost += float64(promptLen+responseLen) / 1000.0 * modelCostPer1K[model]
	}
	t.mu.Unlock()
}

// RecordRetry records a stage retrying after an empty or unusable response.
func (t *Telemetry) RecordRetry(stage string) {
	if t == nil {
		return
	}
	retriesTotal.WithLabelValues(stage).Inc()

	t.mu.Lock()
	t.retries[stage]++
	t.mu.Unlock()
}

// RecordTier records the cascade activating a fallback tier.
func (t *Telemetry) RecordTier(tier string) {
	if t == nil {
		return
	}
	tierTransitionsTotal.WithLabelValues(tier).Inc()

	t.mu.Lock()
	t.tiers[tier]++
	t.mu.Unlock()
}

// LogSummary writes a one-shot summary of everything recorded so far.
func (t *Telemetry) LogSummary() {
	if t == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total int64
	for _, n := range t.generations {
		total += n
	}
	t.logger.Printf("generations: %d (by status: %v)", total, t.generations)
	t.logger.Printf("backend calls by stage: %v, retries: %v", t.backendCalls, t.retries)
	t.logger.Printf("tier activations: %v", t.tiers)
	if t.config.CostTracking {
		t.logger.Printf("estimated cost: $%.4f, total generation time: %s", t.totalCost, t.totalTime)
	}
}

// Shutdown flushes the final summary.
func (t *Telemetry) Shutdown() {
	if t == nil {
		return
	}
	t.LogSummary()
}
