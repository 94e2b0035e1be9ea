package analysisserver

import (
	"context"

	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/engine/analysis"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// PreliminaryScoreInput is the input for preliminary_score.
type PreliminaryScoreInput struct {
	JobDescription string `json:"job_description" jsonschema:"Job description text"`
	Resume         string `json:"resume" jsonschema:"Resume text"`
}

func registerPreliminaryScore(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "preliminary_score",
		Description: "Instant, zero-cost keyword match score (0-100) between a resume and a job description, with the first matched and missing keywords. Fully local, no AI call. Empty input returns a zero score.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input PreliminaryScoreInput) (*mcp.CallToolResult, analysis.PreliminaryScore, error) {
		engine.Incr(engine.MetricLocalScores)
		return nil, analysis.CalculatePreliminaryScore(input.JobDescription, input.Resume), nil
	})
}
