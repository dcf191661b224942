// Package engine sequences the batch: load, detect, correlate, and
// optionally evaluate causality, with a fail-fast stage contract.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/netsentry/kpi-rca/internal/config"
	"github.com/netsentry/kpi-rca/internal/correlator"
	"github.com/netsentry/kpi-rca/internal/detector"
	"github.com/netsentry/kpi-rca/internal/metrics"
	"github.com/netsentry/kpi-rca/internal/models"
	"github.com/netsentry/kpi-rca/internal/utils"
)

// State names one position in the pipeline's linear stage machine.
type State string

const (
	StateInit                 State = "INIT"
	StateDataLoaded           State = "DATA_LOADED"
	StateDegradationsDetected State = "DEGRADATIONS_DETECTED"
	StateAlarmsCorrelated     State = "ALARMS_CORRELATED"
	StateReasoningEvaluated   State = "REASONING_EVALUATED"
	StateDone                 State = "DONE"
)

// ProgressFunc is invoked after each completed reasoning call. It is an
// observation hook only; it must not alter ordering or content.
type ProgressFunc func(done, total int)

// DataLoader supplies canonical readings and events for one batch.
type DataLoader interface {
	LoadReadings(path string) ([]models.Reading, error)
	LoadEvents(path string) ([]models.Event, error)
}

// Evaluator judges causality for one interval and its matched events.
// Implementations never fail the batch; terminal trouble yields a fallback
// verdict.
type Evaluator interface {
	EvaluateCorrelation(ctx context.Context, index int, interval models.DegradationInterval, events []models.ConsolidatedEvent) models.CausalVerdict
}

// Pipeline owns one batch end to end. Stages must run in order; invoking one
// out of order is a precondition error, not a silent no-op. A Pipeline is not
// reusable across batches.
type Pipeline struct {
	logger     *slog.Logger
	cfg        *config.Config
	loader     DataLoader
	detector   *detector.Detector
	correlator *correlator.Correlator
	evaluator  Evaluator
	latencies  *utils.LatencyTracker

	state        State
	readings     []models.Reading
	events       []models.Event
	degradations []models.DegradationInterval
	correlations models.CorrelationResult
	verdicts     map[int]models.CausalVerdict
}

// NewPipeline constructs a pipeline. A nil evaluator disables the reasoning
// stage; Process then goes straight from correlation to done.
func NewPipeline(logger *slog.Logger, cfg *config.Config, loader DataLoader, evaluator Evaluator) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:     logger,
		cfg:        cfg,
		loader:     loader,
		detector:   detector.New(logger),
		correlator: correlator.New(logger),
		evaluator:  evaluator,
		latencies:  utils.NewLatencyTracker(1024),
		state:      StateInit,
		verdicts:   make(map[int]models.CausalVerdict),
	}
}

// State returns the pipeline's current stage.
func (p *Pipeline) State() State {
	return p.state
}

func (p *Pipeline) requireState(op string, want State) error {
	if p.state != want {
		return utils.PreconditionError(op, fmt.Sprintf("pipeline in state %s, want %s", p.state, want))
	}
	return nil
}

// LoadData ingests the readings and events sources.
func (p *Pipeline) LoadData(readingsPath, eventsPath string) error {
	if err := p.requireState("engine.LoadData", StateInit); err != nil {
		return err
	}
	if p.loader == nil {
		return utils.PreconditionError("engine.LoadData", "data loader not configured")
	}

	start := time.Now()
	readings, err := p.loader.LoadReadings(readingsPath)
	if err != nil {
		return err
	}
	events, err := p.loader.LoadEvents(eventsPath)
	if err != nil {
		return err
	}
	metrics.ObserveStage("load", time.Since(start))

	p.readings = readings
	p.events = events
	p.state = StateDataLoaded
	p.logger.Info("data loaded",
		slog.Int("readings", len(readings)),
		slog.Int("events", len(events)))
	return nil
}

// DetectDegradations runs the detector over the loaded readings.
func (p *Pipeline) DetectDegradations() error {
	if err := p.requireState("engine.DetectDegradations", StateDataLoaded); err != nil {
		return err
	}

	start := time.Now()
	p.degradations = p.detector.Detect(p.readings, p.cfg.Detection)
	metrics.ObserveStage("detect", time.Since(start))
	metrics.AddDegradations(len(p.degradations))

	p.state = StateDegradationsDetected
	p.logger.Info("degradations detected", slog.Int("intervals", len(p.degradations)))
	return nil
}

// CorrelateEvents joins every detected interval with its windowed events.
// Zero detected intervals is the common healthy outcome, not an error; the
// stage still runs and yields an empty correlation map.
func (p *Pipeline) CorrelateEvents() error {
	if err := p.requireState("engine.CorrelateEvents", StateDegradationsDetected); err != nil {
		return err
	}

	start := time.Now()
	p.correlations = p.correlator.CorrelateAll(
		p.degradations,
		p.events,
		p.cfg.Correlation.MinutesBefore,
		p.cfg.Correlation.MinutesAfter,
	)
	metrics.ObserveStage("correlate", time.Since(start))
	metrics.AddCorrelatedEvents(p.correlations.TotalEvents())

	p.state = StateAlarmsCorrelated
	p.logger.Info("events correlated",
		slog.Int("total_events", p.correlations.TotalEvents()),
		slog.Int("intervals_with_events", p.correlations.IntervalsWithEvents()))
	return nil
}

// EvaluateReasoning asks the reasoning service for a verdict per interval,
// one at a time, in interval order. Per-interval failures land in the
// verdict itself; the stage never aborts the batch.
func (p *Pipeline) EvaluateReasoning(ctx context.Context, progress ProgressFunc) error {
	if err := p.requireState("engine.EvaluateReasoning", StateAlarmsCorrelated); err != nil {
		return err
	}
	if p.evaluator == nil {
		return utils.PreconditionError("engine.EvaluateReasoning", "reasoning evaluator not configured")
	}

	start := time.Now()
	total := len(p.degradations)
	for idx, interval := range p.degradations {
		callStart := time.Now()
		verdict := p.evaluator.EvaluateCorrelation(ctx, idx, interval, p.correlations[idx])
		p.latencies.Observe(time.Since(callStart))
		p.verdicts[idx] = verdict

		if progress != nil {
			progress(idx+1, total)
		}
	}
	metrics.ObserveStage("reasoning", time.Since(start))

	if count := p.latencies.Count(); count > 0 {
		p.logger.Info("reasoning evaluation complete",
			slog.Int("intervals", total),
			slog.Duration("p95", p.latencies.Percentile(95)))
	}

	p.state = StateReasoningEvaluated
	return nil
}

// Options name the inputs of one Process run.
type Options struct {
	ReadingsPath string
	EventsPath   string
	Progress     ProgressFunc
}

// Process runs the full batch. The caller receives either a complete result
// bundle (possibly with empty sub-collections) or a single fatal error; there
// is no partial result state.
func (p *Pipeline) Process(ctx context.Context, opts Options) (*models.ResultBundle, error) {
	if err := p.LoadData(opts.ReadingsPath, opts.EventsPath); err != nil {
		metrics.ObserveRun(metrics.OutcomeError)
		return nil, err
	}
	if err := p.DetectDegradations(); err != nil {
		metrics.ObserveRun(metrics.OutcomeError)
		return nil, err
	}
	if err := p.CorrelateEvents(); err != nil {
		metrics.ObserveRun(metrics.OutcomeError)
		return nil, err
	}
	if p.evaluator != nil {
		if err := p.EvaluateReasoning(ctx, opts.Progress); err != nil {
			metrics.ObserveRun(metrics.OutcomeError)
			return nil, err
		}
	}
	p.state = StateDone
	metrics.ObserveRun(metrics.OutcomeSuccess)

	return &models.ResultBundle{
		RunID:        uuid.NewString(),
		Readings:     p.readings,
		Events:       p.events,
		Degradations: p.degradations,
		Correlations: p.correlations,
		Verdicts:     p.verdicts,
		Summary:      p.Summary(),
		CompletedAt:  time.Now().UTC(),
	}, nil
}

// Summary returns aggregate counts over already-computed state. It never
// triggers computation; before any stage has run, all counts are zero.
func (p *Pipeline) Summary() models.Summary {
	affected := make(map[string]struct{})
	for _, d := range p.degradations {
		affected[d.Node] = struct{}{}
	}

	summary := models.Summary{
		TotalDegradations:      len(p.degradations),
		AffectedNodes:          len(affected),
		TotalCorrelatedEvents:  p.correlations.TotalEvents(),
		DegradationsWithEvents: p.correlations.IntervalsWithEvents(),
	}
	summary.DegradationsNoEvents = summary.TotalDegradations - summary.DegradationsWithEvents

	if len(p.verdicts) > 0 {
		summary.Verdicts = make(map[models.Verdict]int)
		for _, v := range p.verdicts {
			summary.Verdicts[v.OverallVerdict]++
		}
	}

	return summary
}

// Degradations returns the detected intervals.
func (p *Pipeline) Degradations() []models.DegradationInterval {
	return p.degradations
}

// Correlations returns the interval-to-events map.
func (p *Pipeline) Correlations() models.CorrelationResult {
	return p.correlations
}

// Verdicts returns the reasoning verdicts keyed by interval index.
func (p *Pipeline) Verdicts() map[int]models.CausalVerdict {
	return p.verdicts
}

// Baselines exposes the detector's per-node baselines for diagnostics.
func (p *Pipeline) Baselines() map[string]models.NodeBaseline {
	return p.detector.Baselines()
}

// NodeStatistics exposes per-node value distributions for diagnostics.
func (p *Pipeline) NodeStatistics() map[string]models.NodeStatistics {
	return p.detector.NodeStatistics()
}
