package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Prompt names accepted by the executor, one per analysis stage.
const (
	PromptCompanyResearch = "company_research"
	PromptPeopleResearch  = "people_research"
	PromptMatchScore      = "match_score"
	PromptSkillGap        = "skill_gap"
)

// promptRegistry maps prompt name → current version and template text.
var promptRegistry = map[string]struct {
	version string
	text    string
}{
	PromptCompanyResearch: {"v1", companyResearchPrompt},
	PromptPeopleResearch:  {"v1", peopleResearchPrompt},
	PromptMatchScore:      {"v1", matchScorePrompt},
	PromptSkillGap:        {"v1", skillGapPrompt},
}

// PromptRequest identifies a versioned prompt plus its variables.
type PromptRequest struct {
	PromptName    string            `json:"prompt_name"`
	PromptVersion string            `json:"prompt_version,omitempty"` // empty = current
	Variables     map[string]string `json:"variables"`
	JobID         int64             `json:"job_id"`
}

// PromptResult is the executor's response. Data is the parsed JSON payload
// returned by the model for the requested stage.
type PromptResult struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	TokensUsed int             `json:"tokens_used"`
	Cost       float64         `json:"cost"`
	Error      string          `json:"error,omitempty"`
}

// PromptExecutor is the paid-analysis boundary. Implementations must not be
// called before the guardrail gate has allowed the run.
type PromptExecutor interface {
	Execute(ctx context.Context, req PromptRequest) (*PromptResult, error)
}

// LLMExecutor executes registered prompts against the configured LLM client.
type LLMExecutor struct{}

// NewLLMExecutor returns an executor backed by cfg.LLMClient.
func NewLLMExecutor() *LLMExecutor { return &LLMExecutor{} }

// Execute renders the named prompt template and sends it to the LLM.
// A malformed JSON response is a recoverable error with the raw text attached.
func (e *LLMExecutor) Execute(ctx context.Context, req PromptRequest) (*PromptResult, error) {
	tpl, ok := promptRegistry[req.PromptName]
	if !ok {
		return nil, fmt.Errorf("executor: unknown prompt %q", req.PromptName)
	}
	if req.PromptVersion != "" && req.PromptVersion != tpl.version {
		return nil, fmt.Errorf("executor: prompt %q has version %s, requested %s",
			req.PromptName, tpl.version, req.PromptVersion)
	}

	vars := req.Variables
	if sc := researchSearchContext(ctx, req.PromptName, vars); sc != "" {
		if vars == nil {
			vars = map[string]string{}
		}
		vars["search_context"] = sc
	}
	prompt := renderPrompt(tpl.text, vars)

	raw, err := CallLLM(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("executor: %s LLM: %w", req.PromptName, err)
	}

	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("executor: %s parse: invalid JSON (raw: %s)",
			req.PromptName, TruncateRunes(raw, 200, "..."))
	}

	// The client reports no token usage; estimate at ~4 chars/token for
	// cost accounting, same approximation the guardrail gate uses.
	tokens := (len(prompt) + len(raw)) / 4
	return &PromptResult{
		Success:    true,
		Data:       json.RawMessage(raw),
		TokensUsed: tokens,
		Cost:       float64(tokens) / 1000 * cfg.CostPer1KTokens,
	}, nil
}

// researchSearchContext fetches live web results for the research prompts
// and formats them as a numbered source list. Search failures, including the
// hard timeout, degrade to an empty context: the stage still runs.
func researchSearchContext(ctx context.Context, promptName string, vars map[string]string) string {
	company := vars["company"]
	if company == "" || cfg.SearchURL == "" {
		return ""
	}

	var query string
	switch promptName {
	case PromptCompanyResearch:
		query = company + " company overview culture"
	case PromptPeopleResearch:
		query = company + " leadership team"
	default:
		return ""
	}

	results, err := SearchWeb(ctx, query, SearchOptions{MaxResults: 5})
	if err != nil {
		slog.Warn("executor: search context unavailable",
			slog.String("prompt", promptName), slog.Any("error", err))
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Web search results:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s\nURL: %s\nSnippet: %s\n\n",
			i+1, r.Title, r.URL, TruncateRunes(r.Content, 300, "..."))
	}
	return strings.TrimSpace(sb.String())
}

// renderPrompt substitutes {{name}} placeholders. Unknown placeholders are
// replaced with an empty string so optional context sections collapse cleanly.
func renderPrompt(tpl string, vars map[string]string) string {
	out := tpl
	for name, val := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", val)
	}
	for {
		start := strings.Index(out, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(out[start:], "}}")
		if end < 0 {
			break
		}
		out = out[:start] + out[start+end+2:]
	}
	return out
}
