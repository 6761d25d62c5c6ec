package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/fitcoach-backend/internal/platform/envutil"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// Metrics is the process-wide registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	streamsStarted   *CounterVec
	streamsCompleted *CounterVec
	streamErrors     *CounterVec
	streamsActive    *Gauge
	streamFirstToken *HistogramVec
	streamDuration   *HistogramVec
	streamChunks     *HistogramVec
	dbSaveFailures   *CounterVec

	queries      *CounterVec
	queryErrors  *CounterVec
	queryLatency *HistogramVec

	onboardingSteps       *CounterVec
	onboardingCompletions *CounterVec
	materializations      *CounterVec
	profileMutations      *CounterVec
	toolCalls             *CounterVec
	classifications       *CounterVec
	planCache             *CounterVec
	agentCache            *CounterVec

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec
}

var (
	initMu   sync.Mutex
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the registry installed by Init, or nil.
func Current() *Metrics {
	initMu.Lock()
	defer initMu.Unlock()
	return instance
}

// Init installs the process-wide registry once when METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initMu.Lock()
	defer initMu.Unlock()
	if instance == nil {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	}
	return instance
}

// Shutdown drops the process-wide registry.
func Shutdown() {
	initMu.Lock()
	instance = nil
	initMu.Unlock()
}

// Install replaces the process-wide registry; tests use it with New().
func Install(m *Metrics) {
	initMu.Lock()
	instance = m
	initMu.Unlock()
}

func New() *Metrics {
	latency := []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}
	return &Metrics{
		apiRequests: NewCounterVec("fc_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("fc_api_request_duration_seconds", "API latency in seconds.", []string{"method", "route"}, latency),
		apiInflight: NewGauge("fc_api_inflight_requests", "API requests in flight."),

		llmRequests: NewCounterVec("fc_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency:  NewHistogramVec("fc_llm_request_duration_seconds", "LLM latency in seconds.", []string{"model", "endpoint"}, latency),
		llmTokens:   NewCounterVec("fc_llm_tokens_total", "LLM tokens by model/direction.", []string{"model", "direction"}),

		streamsStarted:   NewCounterVec("fc_streams_started_total", "Streams started by agent/mode.", []string{"agent_type", "mode"}),
		streamsCompleted: NewCounterVec("fc_streams_completed_total", "Streams completed by agent/mode.", []string{"agent_type", "mode"}),
		streamErrors:     NewCounterVec("fc_stream_errors_total", "Stream failures by error type.", []string{"error_type", "mode"}),
		streamsActive:    NewGauge("fc_streams_active", "Streams currently open."),
		streamFirstToken: NewHistogramVec("fc_stream_first_token_seconds", "Time to first token.", []string{"mode"}, []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5, 10}),
		streamDuration:   NewHistogramVec("fc_stream_duration_seconds", "Stream wall time.", []string{"mode", "status"}, latency),
		streamChunks:     NewHistogramVec("fc_stream_chunks", "Chunks delivered per stream.", []string{"mode"}, []float64{1, 5, 10, 25, 50, 100, 250, 500}),
		dbSaveFailures:   NewCounterVec("fc_database_save_failed_total", "Conversation persistence failures after a stream.", []string{"mode"}),

		queries:      NewCounterVec("fc_queries_total", "Non-streaming queries by agent/mode/status.", []string{"agent_type", "mode", "status"}),
		queryErrors:  NewCounterVec("fc_query_errors_total", "Non-streaming query failures by error type.", []string{"error_type", "mode"}),
		queryLatency: NewHistogramVec("fc_query_duration_seconds", "Non-streaming query wall time.", []string{"mode", "status"}, latency),

		onboardingSteps:       NewCounterVec("fc_onboarding_step_saves_total", "Onboarding step saves by step/outcome.", []string{"step", "outcome"}),
		onboardingCompletions: NewCounterVec("fc_onboarding_completions_total", "Onboarding completions by outcome.", []string{"outcome"}),
		materializations:      NewCounterVec("fc_profile_materializations_total", "Profile materializations by status.", []string{"status"}),
		profileMutations:      NewCounterVec("fc_profile_mutations_total", "Profile mutations by outcome.", []string{"outcome"}),
		toolCalls:             NewCounterVec("fc_agent_tool_calls_total", "Agent tool calls by agent/tool/status.", []string{"agent_type", "tool", "status"}),
		classifications:       NewCounterVec("fc_query_classifications_total", "Query classifications by domain/source.", []string{"domain", "source"}),
		planCache:             NewCounterVec("fc_plan_cache_total", "Plan cache lookups by result.", []string{"result"}),
		agentCache:            NewCounterVec("fc_agent_cache_total", "Voice agent cache lookups by result.", []string{"result"}),

		aggregateOps:       NewCounterVec("fc_aggregate_operations_total", "Aggregate writes by operation/status.", []string{"operation", "status"}),
		aggregateLatency:   NewHistogramVec("fc_aggregate_operation_duration_seconds", "Aggregate write latency.", []string{"operation"}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}),
		aggregateConflicts: NewCounterVec("fc_aggregate_conflicts_total", "Aggregate conflicts by operation.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("fc_aggregate_retries_total", "Aggregate retryable failures by operation.", []string{"operation"}),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.streamsStarted, m.streamsCompleted, m.streamErrors, m.streamsActive,
		m.streamFirstToken, m.streamDuration, m.streamChunks, m.dbSaveFailures,
		m.queries, m.queryErrors, m.queryLatency,
		m.onboardingSteps, m.onboardingCompletions, m.materializations, m.profileMutations,
		m.toolCalls, m.classifications, m.planCache, m.agentCache,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

func (m *Metrics) IncOnboardingStep(step int, outcome string) {
	if m != nil {
		m.onboardingSteps.Inc(strconv.Itoa(step), outcome)
	}
}

func (m *Metrics) IncOnboardingCompletion(outcome string) {
	if m != nil {
		m.onboardingCompletions.Inc(outcome)
	}
}

func (m *Metrics) IncMaterialization(status string) {
	if m != nil {
		m.materializations.Inc(status)
	}
}

func (m *Metrics) IncProfileMutation(outcome string) {
	if m != nil {
		m.profileMutations.Inc(outcome)
	}
}

func (m *Metrics) IncToolCall(agentType, tool, status string) {
	if m != nil {
		m.toolCalls.Inc(agentType, tool, status)
	}
}

func (m *Metrics) IncClassification(domain, source string) {
	if m != nil {
		m.classifications.Inc(domain, source)
	}
}

func (m *Metrics) IncPlanCache(result string) {
	if m != nil {
		m.planCache.Inc(result)
	}
}

func (m *Metrics) IncAgentCache(result string) {
	if m != nil {
		m.agentCache.Inc(result)
	}
}

func (m *Metrics) IncDatabaseSaveFailed(mode string) {
	if m != nil {
		m.dbSaveFailures.Inc(mode)
	}
}

// DatabaseSaveFailures reports the persistence failure count for mode.
func (m *Metrics) DatabaseSaveFailures(mode string) float64 {
	if m == nil {
		return 0
	}
	return m.dbSaveFailures.Value(mode)
}

// ObserveQuery records one RouteQuery turn. errorType is empty on success.
func (m *Metrics) ObserveQuery(agentType, mode, errorType string, dur time.Duration) {
	if m == nil {
		return
	}
	status := "complete"
	if errorType != "" {
		status = "error"
		m.queryErrors.Inc(errorType, mode)
	}
	m.queries.Inc(agentType, mode, status)
	m.queryLatency.Observe(dur.Seconds(), mode, status)
}

// QueryErrors reports RouteQuery failures recorded for errorType in mode.
func (m *Metrics) QueryErrors(errorType, mode string) float64 {
	if m == nil {
		return 0
	}
	return m.queryErrors.Value(errorType, mode)
}

// StreamErrors reports failures recorded for errorType in mode.
func (m *Metrics) StreamErrors(errorType, mode string) float64 {
	if m == nil {
		return 0
	}
	return m.streamErrors.Value(errorType, mode)
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m != nil {
		m.aggregateConflicts.Inc(op)
	}
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m != nil {
		m.aggregateRetries.Inc(op)
	}
}

// AggregateOperations reports the count recorded for op with status.
func (m *Metrics) AggregateOperations(op, status string) float64 {
	if m == nil {
		return 0
	}
	return m.aggregateOps.Value(op, status)
}
