package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// Stage names one step of the analysis chain. Stages run in order
// company → people → match_score → skill_gap, each seeded with the
// compressed context of its predecessors.
type Stage string

const (
	StageCompany  Stage = "company"
	StagePeople   Stage = "people"
	StageMatch    Stage = "match_score"
	StageSkillGap Stage = "skill_gap"
)

// promptForStage maps a stage to its registered prompt.
var promptForStage = map[Stage]string{
	StageCompany:  engine.PromptCompanyResearch,
	StagePeople:   engine.PromptPeopleResearch,
	StageMatch:    engine.PromptMatchScore,
	StageSkillGap: engine.PromptSkillGap,
}

// AnalyzeRequest asks the service to run one stage for one job.
type AnalyzeRequest struct {
	JobID     int64
	CallerID  string // rate-limit identity, e.g. IP-derived
	Company   string // company name for research stages
	Inputs    Inputs
	Stage     Stage
	Force     bool // operator override: bypass change detection and cooldown
	LocalOnly bool // skip the paid call, return the free preliminary answer
	Previous  StageResults
}

// AnalyzeResult reports what actually happened: a denial (free), a cache
// reuse, a local preliminary answer, and optionally a paid stage result.
type AnalyzeResult struct {
	Allowed      bool             `json:"allowed"`
	Denial       *Decision        `json:"denial,omitempty"`
	RateLimited  bool             `json:"rate_limited,omitempty"`
	RetryAfter   int              `json:"retry_after,omitempty"` // seconds
	BundleReused bool             `json:"bundle_reused,omitempty"`
	Preliminary  PreliminaryScore `json:"preliminary"`
	Context      Context          `json:"context,omitempty"`
	Stage        Stage            `json:"stage,omitempty"`
	Data         json.RawMessage  `json:"data,omitempty"`
	TokensUsed   int              `json:"tokens_used,omitempty"`
	CostUSD      float64          `json:"cost_usd,omitempty"`
}

// Service orchestrates one analysis run: rate limit, guardrail gate,
// fingerprint cache, free local score, then the optional paid stage.
type Service struct {
	gate     *Gate
	limiter  *Limiter
	bundles  BundleStore
	executor engine.PromptExecutor
}

// NewService wires the orchestrator. executor may be nil for local-only use.
func NewService(gate *Gate, limiter *Limiter, bundles BundleStore, executor engine.PromptExecutor) *Service {
	return &Service{gate: gate, limiter: limiter, bundles: bundles, executor: executor}
}

// Gate exposes the guardrail gate for status reads and operator resets.
func (s *Service) Gate() *Gate { return s.gate }

// Bundles exposes the bundle store for explicit invalidation.
func (s *Service) Bundles() BundleStore { return s.bundles }

// Analyze runs the control flow for one stage. Denials come back as typed
// results at zero cost; only store and executor failures are errors.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	// Caller-scoped rate limit: evaluates and records in one step.
	if req.CallerID != "" && !s.limiter.Allow(req.CallerID) {
		engine.Incr(engine.MetricRateLimitDenials)
		return &AnalyzeResult{
			RateLimited: true,
			RetryAfter:  s.limiter.ResetIn(req.CallerID),
		}, nil
	}

	// Per-job guardrails: no changes / cooldown, both free to check.
	decision, err := s.gate.Check(ctx, req.JobID, req.Inputs, req.Force)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		engine.Incr(engine.MetricGuardrailDenials)
		return &AnalyzeResult{Denial: &decision}, nil
	}

	out := &AnalyzeResult{Allowed: true}

	// Fingerprint cache: reuse extracted variants when the documents are
	// byte-identical to the last extraction.
	resume, jd := req.Inputs.Resume, req.Inputs.JobDescription
	fp := Fingerprint(resume, jd)
	bundle, err := s.bundles.Get(ctx, req.JobID, fp)
	if err != nil {
		return nil, err
	}
	if bundle != nil {
		engine.Incr(engine.MetricBundleHits)
		out.BundleReused = true
		if bundle.ResumeAIOptimized != "" {
			resume = bundle.ResumeAIOptimized
		}
		if bundle.JDAIOptimized != "" {
			jd = bundle.JDAIOptimized
		}
	} else {
		engine.Incr(engine.MetricBundleMisses)
	}

	// Free local answer, always computed so the UI has something instantly.
	engine.Incr(engine.MetricLocalScores)
	out.Preliminary = CalculatePreliminaryScore(jd, resume)

	// Compressed context from prior stages.
	out.Context = BuildContext(req.Previous)

	if req.LocalOnly || s.executor == nil {
		return out, nil
	}

	promptName, ok := promptForStage[req.Stage]
	if !ok {
		return nil, fmt.Errorf("analysis: unknown stage %q", req.Stage)
	}

	result, err := s.executor.Execute(ctx, engine.PromptRequest{
		PromptName: promptName,
		Variables:  s.promptVariables(req, resume, jd, out),
		JobID:      req.JobID,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis: stage %s: %w", req.Stage, err)
	}
	if !result.Success {
		return nil, fmt.Errorf("analysis: stage %s failed: %s", req.Stage, result.Error)
	}

	engine.Incr(engine.MetricAnalysisRuns)
	out.Stage = req.Stage
	out.Data = result.Data
	out.TokensUsed = result.TokensUsed
	out.CostUSD = result.Cost

	// The gate never records implicitly: a successful paid run must be
	// recorded here so the next Check for this job observes it.
	if err := s.gate.RecordAnalysis(ctx, req.JobID, req.Inputs); err != nil {
		return nil, err
	}

	if err := s.storeBundle(ctx, req, fp, bundle, result); err != nil {
		// The analysis itself succeeded; a bundle write failure only costs
		// a future cache hit.
		slog.Warn("analysis: bundle write failed",
			slog.Int64("job_id", req.JobID), slog.Any("error", err))
	}
	return out, nil
}

// promptVariables assembles the variable map for the stage prompt, injecting
// each prior stage's compressed context.
func (s *Service) promptVariables(req AnalyzeRequest, resume, jd string, out *AnalyzeResult) map[string]string {
	vars := map[string]string{
		"company":           req.Company,
		"job_description":   jd,
		"resume":            resume,
		"notes":             req.Inputs.Notes,
		"person_urls":       strings.Join(req.Inputs.PersonURLs, ", "),
		"preliminary_score": strconv.Itoa(out.Preliminary.Score),
	}
	if out.Context.Company != "" {
		vars["company_context"] = out.Context.Company
	}
	if out.Context.People != "" {
		vars["people_context"] = out.Context.People
	}
	if out.Context.Match != "" {
		vars["match_context"] = out.Context.Match
	}
	return vars
}

// storeBundle upserts the job's bundle with the documents and accumulated
// spend. An existing bundle's variants are carried forward.
func (s *Service) storeBundle(ctx context.Context, req AnalyzeRequest, fp string, prev *Bundle, result *engine.PromptResult) error {
	b := &Bundle{
		JobID:       req.JobID,
		Fingerprint: fp,
		ResumeRaw:   req.Inputs.Resume,
		JDRaw:       req.Inputs.JobDescription,
		TokensUsed:  result.TokensUsed,
		CostUSD:     result.Cost,
	}
	if prev != nil {
		b.ResumeAIOptimized = prev.ResumeAIOptimized
		b.ResumeDetailed = prev.ResumeDetailed
		b.JDAIOptimized = prev.JDAIOptimized
		b.JDDetailed = prev.JDDetailed
		b.TokensUsed += prev.TokensUsed
		b.CostUSD += prev.CostUSD
		b.CreatedAt = prev.CreatedAt
	}
	return s.bundles.Put(ctx, b)
}
