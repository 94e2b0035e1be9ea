// Package analysisserver exposes the analysis engine as MCP tools:
// analyze_job, preliminary_score, skill_assessment, analysis_status,
// reset_analysis_cooldown, invalidate_analysis_cache.
package analysisserver

import (
	"github.com/anatolykoptev/go_apply/internal/engine/analysis"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// svc is the shared orchestration service, set once from main.
var svc *analysis.Service

// RegisterTools wires all analysis tools onto the given MCP server.
func RegisterTools(server *mcp.Server, service *analysis.Service) {
	svc = service
	registerAnalyzeJob(server)
	registerPreliminaryScore(server)
	registerSkillAssessment(server)
	registerAnalysisStatus(server)
	registerResetCooldown(server)
	registerInvalidateCache(server)
}
