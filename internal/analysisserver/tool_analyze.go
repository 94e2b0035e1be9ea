package analysisserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anatolykoptev/go_apply/internal/engine/analysis"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AnalyzeJobInput is the input for analyze_job.
type AnalyzeJobInput struct {
	JobID          int64    `json:"job_id" jsonschema:"Tracked job ID"`
	Stage          string   `json:"stage" jsonschema:"Analysis stage: company, people, match_score, skill_gap"`
	Company        string   `json:"company,omitempty" jsonschema:"Company name, used by research stages"`
	JobDescription string   `json:"job_description" jsonschema:"Job description text"`
	Resume         string   `json:"resume" jsonschema:"Resume text"`
	Notes          string   `json:"notes,omitempty" jsonschema:"Free-form notes included in change detection"`
	PersonURLs     []string `json:"person_urls,omitempty" jsonschema:"Profile URLs for the people stage"`
	CompanyURLs    []string `json:"company_urls,omitempty" jsonschema:"Company URLs included in change detection"`
	CallerID       string   `json:"caller_id,omitempty" jsonschema:"Rate-limit identity (e.g. client IP)"`
	Force          bool     `json:"force,omitempty" jsonschema:"Bypass change detection and cooldown"`
	LocalOnly      bool     `json:"local_only,omitempty" jsonschema:"Skip the paid call; return the free local estimate only"`
	PrevCompany    string   `json:"prev_company,omitempty" jsonschema:"JSON result of an earlier company stage"`
	PrevPeople     string   `json:"prev_people,omitempty" jsonschema:"JSON result of an earlier people stage"`
	PrevMatch      string   `json:"prev_match,omitempty" jsonschema:"JSON result of an earlier match_score stage"`
}

func registerAnalyzeJob(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_job",
		Description: "Run one analysis stage (company, people, match_score, skill_gap) for a tracked job. Checks guardrails first: unchanged inputs or an active cooldown deny the run at zero cost. Reuses cached document bundles, always returns an instant local keyword score, and threads compressed context from earlier stages into the prompt.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeJobInput) (*mcp.CallToolResult, analysis.AnalyzeResult, error) {
		if input.JobID <= 0 {
			return nil, analysis.AnalyzeResult{}, fmt.Errorf("job_id is required")
		}
		if input.JobDescription == "" || input.Resume == "" {
			return nil, analysis.AnalyzeResult{}, fmt.Errorf("job_description and resume are required")
		}
		stage := analysis.Stage(input.Stage)
		if stage == "" {
			stage = analysis.StageMatch
		}

		out, err := svc.Analyze(ctx, analysis.AnalyzeRequest{
			JobID:    input.JobID,
			CallerID: input.CallerID,
			Company:  input.Company,
			Inputs: analysis.Inputs{
				JobDescription: input.JobDescription,
				Resume:         input.Resume,
				Notes:          input.Notes,
				PersonURLs:     input.PersonURLs,
				CompanyURLs:    input.CompanyURLs,
			},
			Stage:     stage,
			Force:     input.Force,
			LocalOnly: input.LocalOnly,
			Previous: analysis.StageResults{
				Company: rawOrNil(input.PrevCompany),
				People:  rawOrNil(input.PrevPeople),
				Match:   rawOrNil(input.PrevMatch),
			},
		})
		if err != nil {
			return nil, analysis.AnalyzeResult{}, err
		}
		return nil, *out, nil
	})
}

// rawOrNil passes a prior stage result through only when it is valid JSON;
// the context chain treats anything else as an absent stage.
func rawOrNil(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return nil
	}
	return json.RawMessage(s)
}
