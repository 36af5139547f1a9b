package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/patterns"
)

// Analysis names, used in logs and metrics labels.
const (
	AnalysisIntent     = "intent"
	AnalysisAssessment = "assessment"
)

// CallOptions are the sampling settings of one analysis type.
type CallOptions struct {
	Temperature float32
	MaxTokens   int
}

// Options configures an Analyzer.
type Options struct {
	Model      string
	Timeout    time.Duration
	RepairJSON bool
	Intent     CallOptions
	Assessment CallOptions
}

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 30 * time.Second

// DefaultOptions returns conservative settings for both analyses.
func DefaultOptions() Options {
	return Options{
		Model:      "gpt-4o-mini",
		Timeout:    DefaultTimeout,
		Intent:     CallOptions{Temperature: 0.3, MaxTokens: 800},
		Assessment: CallOptions{Temperature: 0.3, MaxTokens: 1500},
	}
}

// Analyzer runs the two analyses. Calls share no state and are safe to issue concurrently.
type Analyzer struct {
	client    Client
	opts      Options
	extractor Extractor
	logger    *zap.Logger
}

// NewAnalyzer creates an analyzer. A nil client disables analysis: every
// call degrades with ErrDisabled. A zero timeout falls back to DefaultTimeout.
func NewAnalyzer(client Client, opts Options, logger *zap.Logger) *Analyzer {
	if client == nil {
		client = disabledClient{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		client:    client,
		opts:      opts,
		extractor: Extractor{Repair: opts.RepairJSON},
		logger:    logger,
	}
}

// IntentRequest builds the completion request for intent analysis.
func (a *Analyzer) IntentRequest(ex corpus.Example) CompletionRequest {
	return CompletionRequest{
		SystemPrompt: intentSystemPrompt,
		UserPrompt:   IntentPrompt(ex),
		Model:        a.opts.Model,
		Temperature:  a.opts.Intent.Temperature,
		MaxTokens:    a.opts.Intent.MaxTokens,
	}
}

// AssessmentRequest builds the completion request for the comprehensive assessment.
func (a *Analyzer) AssessmentRequest(ex corpus.Example, set patterns.Set, transcript string) CompletionRequest {
	return CompletionRequest{
		SystemPrompt: assessmentSystemPrompt,
		UserPrompt:   AssessmentPrompt(ex, set, transcript),
		Model:        a.opts.Model,
		Temperature:  a.opts.Assessment.Temperature,
		MaxTokens:    a.opts.Assessment.MaxTokens,
	}
}

// AnalyzeIntent asks the model to refine the example's declared intent.
func (a *Analyzer) AnalyzeIntent(ctx context.Context, ex corpus.Example) Payload {
	return a.call(ctx, AnalysisIntent, ex.Key(), a.IntentRequest(ex))
}

// Assess asks the model for a comprehensive assessment of the example and its transcript.
func (a *Analyzer) Assess(ctx context.Context, ex corpus.Example, set patterns.Set, transcript string) Payload {
	return a.call(ctx, AnalysisAssessment, ex.Key(), a.AssessmentRequest(ex, set, transcript))
}

func (a *Analyzer) call(ctx context.Context, analysis, key string, req CompletionRequest) Payload {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	content, err := a.client.Complete(ctx, req)
	if errors.Is(err, ErrDisabled) {
		return Degrade(ErrDisabled.Error(), "")
	}
	if err != nil {
		a.logger.Warn("llm analysis failed",
			zap.String("example", key),
			zap.String("analysis", analysis),
			zap.Error(err))
		return Degrade(fmt.Sprintf("completion failed: %v", err), "")
	}

	payload := a.extractor.Extract(content)
	if payload.IsDegraded() {
		a.logger.Warn("llm response was not a JSON object",
			zap.String("example", key),
			zap.String("analysis", analysis),
			zap.String("error", payload.Degraded().Error))
	}
	return payload
}
