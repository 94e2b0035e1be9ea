package analysisserver

import (
	"context"
	"fmt"

	"github.com/anatolykoptev/go_apply/internal/engine/analysis"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SkillAssessmentInput is the input for skill_assessment.
type SkillAssessmentInput struct {
	Skills []string `json:"skills" jsonschema:"Target skills to assess"`
	Resume string   `json:"resume" jsonschema:"Resume text"`
}

// SkillReport is one assessed skill with presentation fields attached.
type SkillReport struct {
	analysis.SkillAssessment
	ConfidenceLabel string `json:"confidence_label"` // low / medium / high
	Discrepancy     bool   `json:"discrepancy"`      // self-reported vs. evidence mismatch
}

// SkillAssessmentOutput is the output for skill_assessment.
type SkillAssessmentOutput struct {
	Assessments []SkillReport `json:"assessments"`
}

func registerSkillAssessment(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "skill_assessment",
		Description: "Dual skill assessment: for each target skill, extracts the self-reported level (expert/proficient/... phrases, 1-5) and independently computes an evidence score (0-100) from projects, years, mentions, and certifications found in the resume. Flags skills where the two disagree. Fully local, no AI call.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input SkillAssessmentInput) (*mcp.CallToolResult, SkillAssessmentOutput, error) {
		if len(input.Skills) == 0 {
			return nil, SkillAssessmentOutput{}, fmt.Errorf("skills are required")
		}

		assessments := analysis.AssessSkills(input.Skills, input.Resume)
		out := SkillAssessmentOutput{Assessments: make([]SkillReport, 0, len(assessments))}
		for _, a := range assessments {
			out.Assessments = append(out.Assessments, SkillReport{
				SkillAssessment: a,
				ConfidenceLabel: analysis.ConfidenceLabel(a.Confidence),
				Discrepancy:     analysis.HasDiscrepancy(a),
			})
		}
		return nil, out, nil
	})
}
