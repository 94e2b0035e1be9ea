package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// fakeExecutor records the requests it sees and replays a canned result.
type fakeExecutor struct {
	calls  []engine.PromptRequest
	result *engine.PromptResult
	err    error
}

func (f *fakeExecutor) Execute(_ context.Context, req engine.PromptRequest) (*engine.PromptResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// memBundleStore keeps bundles in a map, enough for service flow tests.
type memBundleStore struct {
	bundles map[int64]*Bundle
	putErr  error
}

func newMemBundleStore() *memBundleStore {
	return &memBundleStore{bundles: make(map[int64]*Bundle)}
}

func (m *memBundleStore) Get(_ context.Context, jobID int64, fp string) (*Bundle, error) {
	b, ok := m.bundles[jobID]
	if !ok || b.Fingerprint != fp {
		return nil, nil
	}
	return b, nil
}

func (m *memBundleStore) Put(_ context.Context, b *Bundle) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.bundles[b.JobID] = b
	return nil
}

func (m *memBundleStore) Invalidate(_ context.Context, jobID int64) error {
	delete(m.bundles, jobID)
	return nil
}

func okResult() *engine.PromptResult {
	return &engine.PromptResult{
		Success:    true,
		Data:       json.RawMessage(`{"score": 70, "highlights": [], "gaps": []}`),
		TokensUsed: 1200,
		Cost:       0.012,
	}
}

func testService(exec engine.PromptExecutor) (*Service, *memBundleStore) {
	bundles := newMemBundleStore()
	gate := NewGate(NewMemoryStore(), GateConfig{Cooldown: 5 * time.Minute})
	limiter := NewLimiter(100, time.Minute)
	return NewService(gate, limiter, bundles, exec), bundles
}

func matchRequest(jobID int64) AnalyzeRequest {
	return AnalyzeRequest{
		JobID:    jobID,
		CallerID: "10.0.0.1",
		Company:  "Acme",
		Inputs: Inputs{
			JobDescription: "Requires Python and AWS experience",
			Resume:         "I have 5 years of Python experience",
		},
		Stage: StageMatch,
	}
}

func TestService_PaidRunRecordsAndStores(t *testing.T) {
	exec := &fakeExecutor{result: okResult()}
	svc, bundles := testService(exec)
	ctx := context.Background()
	req := matchRequest(1)

	out, err := svc.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if !out.Allowed || out.Denial != nil || out.RateLimited {
		t.Fatalf("expected a clean paid run, got %+v", out)
	}
	if out.Stage != StageMatch || len(out.Data) == 0 {
		t.Errorf("paid result missing, got %+v", out)
	}
	if out.TokensUsed != 1200 || out.CostUSD != 0.012 {
		t.Errorf("spend not propagated, got %d tokens, $%v", out.TokensUsed, out.CostUSD)
	}
	if out.Preliminary.TotalKeywords == 0 {
		t.Error("free preliminary score must always be computed")
	}
	if len(exec.calls) != 1 {
		t.Fatalf("want 1 executor call, got %d", len(exec.calls))
	}
	if exec.calls[0].PromptName != engine.PromptMatchScore {
		t.Errorf("wrong prompt for stage: %s", exec.calls[0].PromptName)
	}

	// The run was recorded: an immediate retry with identical inputs denies.
	out2, err := svc.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if out2.Denial == nil || out2.Denial.Reason != ReasonNoChanges {
		t.Fatalf("expected no_changes denial after success, got %+v", out2)
	}
	if len(exec.calls) != 1 {
		t.Error("denied run must not reach the executor")
	}

	// The bundle was persisted under the document fingerprint.
	b := bundles.bundles[1]
	if b == nil {
		t.Fatal("bundle not stored")
	}
	if b.Fingerprint != Fingerprint(req.Inputs.Resume, req.Inputs.JobDescription) {
		t.Errorf("bundle stored under wrong fingerprint %q", b.Fingerprint)
	}
	if b.TokensUsed != 1200 {
		t.Errorf("bundle spend: want 1200, got %d", b.TokensUsed)
	}
}

func TestService_RateLimitedBeforeEverything(t *testing.T) {
	exec := &fakeExecutor{result: okResult()}
	bundles := newMemBundleStore()
	gate := NewGate(NewMemoryStore(), GateConfig{})
	svc := NewService(gate, NewLimiter(1, time.Minute), bundles, exec)
	ctx := context.Background()

	if _, err := svc.Analyze(ctx, matchRequest(1)); err != nil {
		t.Fatalf("first call: %v", err)
	}

	req := matchRequest(2) // different job, same caller
	out, err := svc.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if !out.RateLimited {
		t.Fatalf("expected rate limit denial, got %+v", out)
	}
	if out.RetryAfter <= 0 {
		t.Errorf("rate limit denial must carry retry-after, got %d", out.RetryAfter)
	}
	if len(exec.calls) != 1 {
		t.Error("rate-limited run must not reach the executor")
	}
}

func TestService_LocalOnlySkipsExecutorAndGateRecording(t *testing.T) {
	exec := &fakeExecutor{result: okResult()}
	svc, _ := testService(exec)
	ctx := context.Background()

	req := matchRequest(1)
	req.LocalOnly = true

	out, err := svc.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if !out.Allowed || out.Stage != "" || out.Data != nil {
		t.Errorf("local-only run must carry no paid result, got %+v", out)
	}
	if out.Preliminary.Score == 0 {
		t.Error("local-only run must still score")
	}
	if len(exec.calls) != 0 {
		t.Error("local-only run must not reach the executor")
	}

	// Free runs are never recorded: a paid retry with the same inputs passes.
	req.LocalOnly = false
	out2, err := svc.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if out2.Denial != nil {
		t.Errorf("free run must not start the cooldown, got %+v", out2)
	}
}

func TestService_ExecutorFailureIsNotRecorded(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("provider down")}
	svc, bundles := testService(exec)
	ctx := context.Background()
	req := matchRequest(1)

	if _, err := svc.Analyze(ctx, req); err == nil {
		t.Fatal("expected executor failure to surface")
	}
	if len(bundles.bundles) != 0 {
		t.Error("failed run must not persist a bundle")
	}

	// Failed runs must not arm the guardrails either.
	exec.err = nil
	exec.result = okResult()
	out, err := svc.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if out.Denial != nil {
		t.Errorf("failed run must not start change detection or cooldown, got %+v", out)
	}
}

func TestService_BundleReuseSwapsVariants(t *testing.T) {
	exec := &fakeExecutor{result: okResult()}
	svc, bundles := testService(exec)
	ctx := context.Background()
	req := matchRequest(1)

	fp := Fingerprint(req.Inputs.Resume, req.Inputs.JobDescription)
	bundles.bundles[1] = &Bundle{
		JobID:             1,
		Fingerprint:       fp,
		ResumeAIOptimized: "optimized resume python aws experience",
		JDAIOptimized:     "optimized jd python aws",
		TokensUsed:        500,
		CostUSD:           0.005,
	}

	out, err := svc.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if !out.BundleReused {
		t.Fatal("matching fingerprint must reuse the bundle")
	}
	if exec.calls[0].Variables["resume"] != "optimized resume python aws experience" {
		t.Errorf("prompt must see the optimized variant, got %q", exec.calls[0].Variables["resume"])
	}

	// Spend accumulates across the bundle's lifetime.
	if got := bundles.bundles[1].TokensUsed; got != 1700 {
		t.Errorf("want accumulated 1700 tokens, got %d", got)
	}
	if bundles.bundles[1].ResumeAIOptimized == "" {
		t.Error("variants must be carried forward on upsert")
	}
}

func TestService_PriorStageContextInjected(t *testing.T) {
	exec := &fakeExecutor{result: okResult()}
	svc, _ := testService(exec)
	ctx := context.Background()

	req := matchRequest(1)
	req.Previous = StageResults{
		Company: json.RawMessage(`{"name":"Acme","overview":"Acme builds rockets.","culture_notes":"","key_facts":[]}`),
	}

	if _, err := svc.Analyze(ctx, req); err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	vars := exec.calls[0].Variables
	if vars["company_context"] == "" {
		t.Error("prior company stage must be injected as context")
	}
	if _, ok := vars["people_context"]; ok {
		t.Error("absent stages must not add empty variables")
	}
}

func TestService_UnknownStage(t *testing.T) {
	svc, _ := testService(&fakeExecutor{result: okResult()})

	req := matchRequest(1)
	req.Stage = "nonsense"

	if _, err := svc.Analyze(context.Background(), req); err == nil {
		t.Fatal("unknown stage must be an error")
	}
}
