package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/quest-eval/internal/patterns"
)

// stubClient records requests and answers from a function.
type stubClient struct {
	mu       sync.Mutex
	requests []CompletionRequest
	respond  func(ctx context.Context, req CompletionRequest) (string, error)
}

func (s *stubClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(ctx, req)
}

func TestAnalyzer_Success(t *testing.T) {
	client := &stubClient{respond: func(_ context.Context, req CompletionRequest) (string, error) {
		if req.SystemPrompt == intentSystemPrompt {
			return "```json\n{\"purpose\": \"refined\"}\n```", nil
		}
		return `{"assessment": {"grade": "A", "score": 9, "overall_assessment": "PASS"}}`, nil
	}}

	a := NewAnalyzer(client, DefaultOptions(), nil)
	ex := testExample()

	intent := a.AnalyzeIntent(context.Background(), ex)
	require.False(t, intent.IsDegraded())
	assert.Equal(t, "refined", intent.String("purpose"))

	assessment := a.Assess(context.Background(), ex, patterns.Detect(ex.Source), "(1 row)")
	require.False(t, assessment.IsDegraded())
	assert.Equal(t, "A", assessment.Grade())

	require.Len(t, client.requests, 2)
	assert.Equal(t, "gpt-4o-mini", client.requests[0].Model)
	assert.Equal(t, 800, client.requests[0].MaxTokens)
	assert.Equal(t, 1500, client.requests[1].MaxTokens)
	assert.InDelta(t, 0.3, client.requests[1].Temperature, 0.0001)
}

func TestAnalyzer_CompletionFailureDegrades(t *testing.T) {
	client := &stubClient{respond: func(context.Context, CompletionRequest) (string, error) {
		return "", errors.New("dial tcp: connection refused")
	}}

	a := NewAnalyzer(client, DefaultOptions(), nil)
	got := a.AnalyzeIntent(context.Background(), testExample())

	require.True(t, got.IsDegraded())
	assert.Contains(t, got.Degraded().Error, "connection refused")
	assert.Equal(t, "", got.Degraded().RawContent)
}

func TestAnalyzer_MalformedResponseKeepsRaw(t *testing.T) {
	raw := "Sorry, here is prose instead of JSON."
	client := &stubClient{respond: func(context.Context, CompletionRequest) (string, error) {
		return raw, nil
	}}

	got := NewAnalyzer(client, DefaultOptions(), nil).Assess(context.Background(), testExample(), patterns.NewSet(), "")
	require.True(t, got.IsDegraded())
	assert.Equal(t, raw, got.Degraded().RawContent)
}

func TestAnalyzer_Timeout(t *testing.T) {
	client := &stubClient{respond: func(ctx context.Context, _ CompletionRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond

	start := time.Now()
	got := NewAnalyzer(client, opts, nil).AnalyzeIntent(context.Background(), testExample())

	assert.Less(t, time.Since(start), 2*time.Second)
	require.True(t, got.IsDegraded())
	assert.Contains(t, got.Degraded().Error, "deadline exceeded")
}

func TestAnalyzer_ZeroTimeoutUsesDefault(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	client := &stubClient{respond: func(ctx context.Context, _ CompletionRequest) (string, error) {
		deadline, hasDeadline = ctx.Deadline()
		return "{}", nil
	}}

	opts := DefaultOptions()
	opts.Timeout = 0

	start := time.Now()
	NewAnalyzer(client, opts, nil).AnalyzeIntent(context.Background(), testExample())

	require.True(t, hasDeadline, "calls must always carry a deadline")
	assert.WithinDuration(t, start.Add(DefaultTimeout), deadline, time.Second)
}

func TestAnalyzer_Disabled(t *testing.T) {
	a := NewAnalyzer(nil, DefaultOptions(), nil)

	for _, got := range []Payload{
		a.AnalyzeIntent(context.Background(), testExample()),
		a.Assess(context.Background(), testExample(), patterns.NewSet(), ""),
	} {
		require.True(t, got.IsDegraded())
		assert.Equal(t, "llm analysis disabled", got.Degraded().Error)
		assert.Equal(t, "", got.Degraded().RawContent)
	}
}
