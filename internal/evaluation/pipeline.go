package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/engine"
	"github.com/khanglvm/quest-eval/internal/heuristic"
	"github.com/khanglvm/quest-eval/internal/llm"
	"github.com/khanglvm/quest-eval/internal/metrics"
	"github.com/khanglvm/quest-eval/internal/patterns"
	"github.com/khanglvm/quest-eval/internal/storage"
	"github.com/khanglvm/quest-eval/internal/transcript"
)

// Concurrency bounds.
const (
	DefaultConcurrency = 4
	MaxConcurrency     = 32
)

// skippedReason degrades both analyses when the LLM stage is turned off for a run.
const skippedReason = "llm analysis skipped"

// ClampConcurrency keeps n within [1, MaxConcurrency]; zero or negative selects the default.
func ClampConcurrency(n int) int {
	switch {
	case n <= 0:
		return DefaultConcurrency
	case n > MaxConcurrency:
		return MaxConcurrency
	default:
		return n
	}
}

// Options configures a Pipeline.
type Options struct {
	Concurrency int
	SkipLLM     bool
	Version     string
}

// Pipeline evaluates examples: execute, analyze, score, run both LLM
// analyses concurrently, assemble and persist.
type Pipeline struct {
	executor  engine.Executor
	analyzer  *llm.Analyzer
	store     *Store
	assembler *Assembler
	runs      storage.Storage
	metrics   *metrics.Metrics
	logger    *zap.Logger
	opts      Options
}

// NewPipeline wires a pipeline. runs and m may be nil.
func NewPipeline(executor engine.Executor, analyzer *llm.Analyzer, store *Store, runs storage.Storage, m *metrics.Metrics, logger *zap.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if analyzer == nil {
		analyzer = llm.NewAnalyzer(nil, llm.DefaultOptions(), logger)
	}
	opts.Concurrency = ClampConcurrency(opts.Concurrency)

	return &Pipeline{
		executor:  executor,
		analyzer:  analyzer,
		store:     store,
		assembler: NewAssembler(opts.Version),
		runs:      runs,
		metrics:   m,
		logger:    logger,
		opts:      opts,
	}
}

// Outcome is the result of evaluating one example within a run.
type Outcome struct {
	Key    string
	Record *Record
	Err    error
}

// Summary counts a run's outcomes.
type Summary struct {
	RunID      string
	Filter     string
	StartedAt  time.Time
	FinishedAt time.Time

	Total       int
	Pass        int
	Fail        int
	NeedsReview int
	Errored     int
}

func (s *Summary) add(o Outcome) {
	s.Total++
	if o.Err != nil || o.Record == nil {
		s.Errored++
		return
	}
	switch o.Record.BasicEvaluation.Verdict {
	case heuristic.Pass:
		s.Pass++
	case heuristic.Fail:
		s.Fail++
	case heuristic.NeedsReview:
		s.NeedsReview++
	}
}

// Run evaluates examples with at most Options.Concurrency in flight. One
// example's failure never stops its siblings. onOutcome, if set, is called
// once per example and never concurrently.
func (p *Pipeline) Run(ctx context.Context, examples []corpus.Example, filter string, onOutcome func(Outcome)) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		Filter:    filter,
		StartedAt: time.Now(),
	}

	p.logger.Info("evaluation run started",
		zap.String("run_id", summary.RunID),
		zap.Int("examples", len(examples)),
		zap.Int("concurrency", p.opts.Concurrency),
		zap.Bool("llm", !p.opts.SkipLLM))

	var mu sync.Mutex
	record := func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		summary.add(o)
		if onOutcome != nil {
			onOutcome(o)
		}
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)

	for _, ex := range examples {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := p.evaluate(ctx, ex, summary.RunID)
			record(Outcome{Key: ex.Key(), Record: rec, Err: err})
			return nil
		})
	}
	g.Wait()

	summary.FinishedAt = time.Now()

	if p.runs != nil {
		if err := p.runs.RecordRun(storage.RunRecord{
			RunID:       summary.RunID,
			StartedAt:   summary.StartedAt,
			FinishedAt:  summary.FinishedAt,
			Filter:      filter,
			Concurrency: p.opts.Concurrency,
			LLMEnabled:  !p.opts.SkipLLM,
			Total:       summary.Total,
			Pass:        summary.Pass,
			Fail:        summary.Fail,
			NeedsReview: summary.NeedsReview,
			Errored:     summary.Errored,
		}); err != nil {
			p.logger.Warn("failed to record run", zap.String("run_id", summary.RunID), zap.Error(err))
		}
	}

	p.logger.Info("evaluation run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("total", summary.Total),
		zap.Int("pass", summary.Pass),
		zap.Int("fail", summary.Fail),
		zap.Int("needs_review", summary.NeedsReview),
		zap.Int("errored", summary.Errored),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("evaluation interrupted after %d of %d examples: %w", summary.Total, len(examples), err)
	}
	return summary, nil
}

// EvaluateOne evaluates and persists a single example outside of a run.
func (p *Pipeline) EvaluateOne(ctx context.Context, ex corpus.Example) (*Record, error) {
	return p.evaluate(ctx, ex, "")
}

func (p *Pipeline) evaluate(ctx context.Context, ex corpus.Example, runID string) (*Record, error) {
	p.metrics.WorkerStarted()
	defer p.metrics.WorkerDone()

	log := p.logger.With(zap.String("example", ex.Key()))

	start := time.Now()
	result, err := p.executor.Execute(ctx, ex)
	p.metrics.ObserveStage("execute", time.Since(start))
	if err != nil {
		log.Warn("execution failed", zap.Error(err))
		result = &engine.Result{Succeeded: false}
	}

	stats := transcript.Analyze(result.Transcript, result.Succeeded)
	set := patterns.Detect(ex.Source)
	assessment := heuristic.Score(set, stats, ex.Intent)

	start = time.Now()
	analysis, intent := p.analyze(ctx, ex, set, result.Transcript)
	p.metrics.ObserveStage("llm", time.Since(start))

	if err := ctx.Err(); err != nil {
		// keep the previous artifact rather than overwrite it with a degraded one
		p.metrics.ObserveExample("errored")
		return nil, err
	}

	rec := p.assembler.Assemble(Inputs{
		Example:        ex,
		Patterns:       set,
		Result:         *result,
		Stats:          stats,
		Heuristic:      assessment,
		LLMAnalysis:    analysis,
		EnhancedIntent: intent,
	}, runID)

	start = time.Now()
	err = p.store.Save(rec)
	p.metrics.ObserveStage("persist", time.Since(start))
	if err != nil {
		log.Error("failed to persist record", zap.Error(err))
		p.metrics.ObserveExample("errored")
		return nil, err
	}

	p.metrics.ObserveExample(string(assessment.Verdict))
	log.Debug("example evaluated",
		zap.String("verdict", string(assessment.Verdict)),
		zap.Int("score", assessment.Score))
	return &rec, nil
}

// analyze runs both LLM analyses concurrently and waits for both.
func (p *Pipeline) analyze(ctx context.Context, ex corpus.Example, set patterns.Set, output string) (analysis, intent llm.Payload) {
	if p.opts.SkipLLM {
		return llm.Degrade(skippedReason, ""), llm.Degrade(skippedReason, "")
	}

	var g errgroup.Group
	g.Go(func() error {
		analysis = p.analyzer.Assess(ctx, ex, set, output)
		p.metrics.ObserveLLMCall(llm.AnalysisAssessment, analysis.IsDegraded())
		return nil
	})
	g.Go(func() error {
		intent = p.analyzer.AnalyzeIntent(ctx, ex)
		p.metrics.ObserveLLMCall(llm.AnalysisIntent, intent.IsDegraded())
		return nil
	})
	_ = g.Wait()

	return analysis, intent
}

// IsNoRecord reports whether err means the example has not been evaluated yet.
func IsNoRecord(err error) bool {
	return errors.Is(err, ErrNoRecord)
}
