package analysis

import "context"

// Bundle holds the extracted document variants for one job, keyed by the
// fingerprint of the source texts. One bundle per job; a new fingerprint
// replaces the old bundle entirely.
type Bundle struct {
	JobID       int64  `json:"job_id"`
	Fingerprint string `json:"fingerprint"`

	ResumeRaw         string `json:"resume_raw,omitempty"`
	ResumeAIOptimized string `json:"resume_ai_optimized,omitempty"`
	ResumeDetailed    string `json:"resume_detailed,omitempty"`
	JDRaw             string `json:"jd_raw,omitempty"`
	JDAIOptimized     string `json:"jd_ai_optimized,omitempty"`
	JDDetailed        string `json:"jd_detailed,omitempty"`

	TokensUsed int     `json:"tokens_used"`
	CostUSD    float64 `json:"cost_usd"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// BundleStore persists analysis bundles. Get returns (nil, nil) when the job
// has no bundle or the stored fingerprint does not match: a miss, not an
// error. Put upserts by job ID, overwriting every field.
type BundleStore interface {
	Get(ctx context.Context, jobID int64, fingerprint string) (*Bundle, error)
	Put(ctx context.Context, b *Bundle) error
	Invalidate(ctx context.Context, jobID int64) error
}
