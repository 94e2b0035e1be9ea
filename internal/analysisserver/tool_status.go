package analysisserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// JobRefInput identifies a tracked job for status/reset operations.
type JobRefInput struct {
	JobID int64 `json:"job_id" jsonschema:"Tracked job ID"`
}

// AnalysisStatusOutput is the output for analysis_status.
type AnalysisStatusOutput struct {
	JobID             int64 `json:"job_id"`
	CooldownRemaining int   `json:"cooldown_remaining"` // seconds, 0 = ready
}

// OpResult is the output for reset/invalidate operations.
type OpResult struct {
	Message string `json:"message"`
}

func registerAnalysisStatus(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analysis_status",
		Description: "Cooldown status for a job's paid analysis: seconds remaining until a new run is allowed (0 = ready). Pure read, no side effects.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input JobRefInput) (*mcp.CallToolResult, AnalysisStatusOutput, error) {
		if input.JobID <= 0 {
			return nil, AnalysisStatusOutput{}, fmt.Errorf("job_id is required")
		}
		remaining, err := svc.Gate().CooldownRemaining(ctx, input.JobID)
		if err != nil {
			return nil, AnalysisStatusOutput{}, err
		}
		return nil, AnalysisStatusOutput{JobID: input.JobID, CooldownRemaining: remaining}, nil
	})
}

func registerResetCooldown(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_analysis_cooldown",
		Description: "Operator override: clear a job's guardrail state entirely, so the next analysis runs regardless of cooldown or change detection.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input JobRefInput) (*mcp.CallToolResult, OpResult, error) {
		if input.JobID <= 0 {
			return nil, OpResult{}, fmt.Errorf("job_id is required")
		}
		if err := svc.Gate().ResetCooldown(ctx, input.JobID); err != nil {
			return nil, OpResult{}, err
		}
		return nil, OpResult{Message: fmt.Sprintf("Guardrail state for job #%d cleared", input.JobID)}, nil
	})
}

func registerInvalidateCache(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "invalidate_analysis_cache",
		Description: "Delete a job's cached document bundle immediately. Use when source documents were replaced out-of-band.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input JobRefInput) (*mcp.CallToolResult, OpResult, error) {
		if input.JobID <= 0 {
			return nil, OpResult{}, fmt.Errorf("job_id is required")
		}
		if err := svc.Bundles().Invalidate(ctx, input.JobID); err != nil {
			return nil, OpResult{}, err
		}
		return nil, OpResult{Message: fmt.Sprintf("Analysis bundle for job #%d invalidated", input.JobID)}, nil
	})
}
