package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Inputs is the full set of inputs considered for change detection.
type Inputs struct {
	JobDescription string   `json:"job_description"`
	Resume         string   `json:"resume"`
	Notes          string   `json:"notes,omitempty"`
	PersonURLs     []string `json:"person_urls,omitempty"`
	CompanyURLs    []string `json:"company_urls,omitempty"`
}

// HashInputs canonicalizes the input set and returns its digest. Texts are
// trimmed and URL lists sorted, so whitespace-only edits and URL entry order
// do not change the hash.
func HashInputs(in Inputs) string {
	parts := []string{
		strings.TrimSpace(in.JobDescription),
		strings.TrimSpace(in.Resume),
		strings.TrimSpace(in.Notes),
		strings.Join(sortedCopy(in.PersonURLs), ","),
		strings.Join(sortedCopy(in.CompanyURLs), ","),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func sortedCopy(urls []string) []string {
	out := make([]string, len(urls))
	copy(out, urls)
	sort.Strings(out)
	return out
}

// GuardrailState records the last successful analysis for one job.
// Absent state means "never analyzed, always allowed".
type GuardrailState struct {
	LastInputHash string    `json:"last_input_hash"`
	LastRunAt     time.Time `json:"last_run_at"`
}

// Reason classifies a guardrail denial.
type Reason string

const (
	ReasonNoChanges Reason = "no_changes"
	ReasonCooldown  Reason = "cooldown"
)

// Decision is the gate's answer to "may a paid analysis run?". A denial is a
// normal result, never an error.
type Decision struct {
	Allowed           bool    `json:"allowed"`
	Reason            Reason  `json:"reason,omitempty"`
	Message           string  `json:"message,omitempty"`
	CooldownRemaining int     `json:"cooldown_remaining,omitempty"` // seconds, ceiling-rounded
	EstimatedTokens   int     `json:"estimated_tokens,omitempty"`
	EstimatedCostUSD  float64 `json:"estimated_cost_usd,omitempty"`
}

// GateConfig tunes the guardrail gate. Zero values fall back to defaults.
type GateConfig struct {
	Cooldown        time.Duration // default 5 minutes
	EstimatedTokens int           // fixed per-run estimate, default 8000
	CostPer1K       float64       // USD per 1K tokens, default 0.01
}

// Gate decides per job whether a new paid analysis may proceed, based on
// change detection and a cooldown window. It never updates its own state:
// the caller must invoke RecordAnalysis after a successful run.
type Gate struct {
	store StateStore
	cfg   GateConfig
	now   func() time.Time
}

// NewGate returns a gate backed by the given state store.
func NewGate(store StateStore, cfg GateConfig) *Gate {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.EstimatedTokens <= 0 {
		cfg.EstimatedTokens = 8000
	}
	if cfg.CostPer1K <= 0 {
		cfg.CostPer1K = 0.01
	}
	return &Gate{store: store, cfg: cfg, now: time.Now}
}

func guardrailKey(jobID int64) string {
	return fmt.Sprintf("guardrail:%d", jobID)
}

// Check evaluates change detection, then cooldown. force bypasses both.
// The returned error covers store failures only, never denials.
func (g *Gate) Check(ctx context.Context, jobID int64, in Inputs, force bool) (Decision, error) {
	st, err := g.loadState(ctx, jobID)
	if err != nil {
		return Decision{}, err
	}

	if st != nil && !force {
		if HashInputs(in) == st.LastInputHash {
			return Decision{
				Allowed: false,
				Reason:  ReasonNoChanges,
				Message: "No changes detected since the last analysis. Re-run anyway?",
			}, nil
		}

		if remaining := g.remaining(st); remaining > 0 {
			return Decision{
				Allowed:           false,
				Reason:            ReasonCooldown,
				Message:           fmt.Sprintf("Analysis is cooling down. Try again in %d seconds.", remaining),
				CooldownRemaining: remaining,
			}, nil
		}
	}

	return Decision{
		Allowed:          true,
		EstimatedTokens:  g.cfg.EstimatedTokens,
		EstimatedCostUSD: float64(g.cfg.EstimatedTokens) / 1000 * g.cfg.CostPer1K,
	}, nil
}

// RecordAnalysis stores the input hash and run time after a successful paid
// run. Must be called by the caller; the gate never records implicitly.
func (g *Gate) RecordAnalysis(ctx context.Context, jobID int64, in Inputs) error {
	data, err := json.Marshal(GuardrailState{
		LastInputHash: HashInputs(in),
		LastRunAt:     g.now(),
	})
	if err != nil {
		return fmt.Errorf("guardrails: marshal state: %w", err)
	}
	if err := g.store.Set(ctx, guardrailKey(jobID), data); err != nil {
		return fmt.Errorf("guardrails: record job %d: %w", jobID, err)
	}
	return nil
}

// ResetCooldown clears the job's state entirely (operator escape hatch).
func (g *Gate) ResetCooldown(ctx context.Context, jobID int64) error {
	if err := g.store.Delete(ctx, guardrailKey(jobID)); err != nil {
		return fmt.Errorf("guardrails: reset job %d: %w", jobID, err)
	}
	return nil
}

// CooldownRemaining reports the seconds left in the job's cooldown window.
// Pure read, no side effects; 0 when absent or elapsed.
func (g *Gate) CooldownRemaining(ctx context.Context, jobID int64) (int, error) {
	st, err := g.loadState(ctx, jobID)
	if err != nil || st == nil {
		return 0, err
	}
	return g.remaining(st), nil
}

func (g *Gate) loadState(ctx context.Context, jobID int64) (*GuardrailState, error) {
	raw, err := g.store.Get(ctx, guardrailKey(jobID))
	if err != nil {
		return nil, fmt.Errorf("guardrails: load job %d: %w", jobID, err)
	}
	if raw == nil {
		return nil, nil
	}
	var st GuardrailState
	if err := json.Unmarshal(raw, &st); err != nil {
		// Corrupt state reads as "never analyzed" rather than blocking runs.
		slog.Warn("guardrails: corrupt state, treating as absent",
			slog.Int64("job_id", jobID), slog.Any("error", err))
		return nil, nil
	}
	return &st, nil
}

// remaining returns ceiling-rounded seconds left in the cooldown window.
func (g *Gate) remaining(st *GuardrailState) int {
	left := g.cfg.Cooldown - g.now().Sub(st.LastRunAt)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
