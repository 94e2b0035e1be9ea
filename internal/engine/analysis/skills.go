package analysis

import (
	"regexp"
	"strconv"
	"strings"
)

// Self-reported level phrases, checked highest first; the first qualifying
// match per skill wins. Each pattern is completed with the quoted skill name.
var levelPhrases = []struct {
	prefix string
	level  int
}{
	{`expert\s+(?:in|with)\s+`, 5},
	{`(?:advanced|proficient)\s+(?:in|with)?\s*`, 4},
	{`(?:skilled|intermediate)\s+(?:in|with)?\s*`, 3},
	{`familiar\s+with\s+`, 2},
	{`beginner\s+(?:in|with)?\s*`, 1},
}

// Evidence sub-score caps. The computed score is the sum of four capped
// contributions; these exact numbers are load-bearing for downstream
// discrepancy warnings, change them and the warnings shift.
const (
	projectsPerPoint = 10
	projectsCap      = 40
	yearsPerPoint    = 10
	yearsCap         = 30
	mentionsPerPoint = 5
	mentionsCap      = 20
	certsPerPoint    = 10
	certsCap         = 10
)

// SkillEvidence counts the independent evidence categories found in the
// resume for one skill.
type SkillEvidence struct {
	Projects       int `json:"projects"`
	Years          int `json:"years"`
	Mentions       int `json:"mentions"`
	Certifications int `json:"certifications"`
}

// SkillAssessment pairs a self-reported level with an evidence-derived score
// for one skill, so the caller can surface under/over-statement warnings.
type SkillAssessment struct {
	Skill        string        `json:"skill"`
	SelfReported *int          `json:"self_reported"` // 1-5, nil when no phrase found
	Computed     int           `json:"computed"`      // 0-100
	Confidence   int           `json:"confidence"`    // 0-100
	Evidence     SkillEvidence `json:"evidence"`
}

// AssessSkills runs the dual assessment for each target skill against the
// resume text. Pure text scanning; empty input yields empty evidence.
func AssessSkills(skills []string, resumeText string) []SkillAssessment {
	out := make([]SkillAssessment, 0, len(skills))
	for _, skill := range skills {
		out = append(out, assessSkill(skill, resumeText))
	}
	return out
}

func assessSkill(skill, resumeText string) SkillAssessment {
	a := SkillAssessment{Skill: skill}
	if strings.TrimSpace(skill) == "" || strings.TrimSpace(resumeText) == "" {
		return a
	}

	a.SelfReported = findSelfReportedLevel(skill, resumeText)
	a.Evidence = gatherEvidence(skill, resumeText)
	a.Computed = computeScore(a.Evidence)
	a.Confidence = computeConfidence(a.Evidence)
	return a
}

// findSelfReportedLevel scans for level phrases ("expert in X" → 5, ...,
// "beginner" → 1), highest level first.
func findSelfReportedLevel(skill, text string) *int {
	quoted := regexp.QuoteMeta(strings.ToLower(skill))
	for _, p := range levelPhrases {
		re := regexp.MustCompile(`(?i)` + p.prefix + quoted + `\b`)
		if re.MatchString(text) {
			level := p.level
			return &level
		}
	}
	return nil
}

// gatherEvidence collects the four independent evidence categories.
func gatherEvidence(skill, text string) SkillEvidence {
	var ev SkillEvidence
	skillLower := strings.ToLower(skill)
	textLower := strings.ToLower(text)
	quoted := regexp.QuoteMeta(skillLower)

	// Projects: bullet-point lines mentioning the skill, or an explicit
	// "N <skill> projects" phrase, whichever counts more.
	bullets := 0
	for _, line := range strings.Split(textLower, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch trimmed[0] {
		case '-', '*', '+':
		default:
			if !strings.HasPrefix(trimmed, "•") && !strings.HasPrefix(trimmed, "–") {
				continue
			}
		}
		if strings.Contains(trimmed, skillLower) {
			bullets++
		}
	}
	ev.Projects = bullets
	projectRe := regexp.MustCompile(`(\d+)\s+` + quoted + `\s+projects?\b`)
	if m := projectRe.FindStringSubmatch(textLower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > ev.Projects {
			ev.Projects = n
		}
	}

	// Mentions: every occurrence of the skill in the text.
	ev.Mentions = strings.Count(textLower, skillLower)

	// Years: "N years ... <skill>" within one sentence.
	yearsRe := regexp.MustCompile(`(\d+)\+?\s*years?[^.\n]{0,80}?` + quoted)
	if m := yearsRe.FindStringSubmatch(textLower); m != nil {
		ev.Years, _ = strconv.Atoi(m[1])
	}

	// Certifications: a "certified ... <skill>" or "<skill> ... certified" phrase.
	certRe := regexp.MustCompile(`certified[^.\n]{0,80}?` + quoted + `|` + quoted + `[^.\n]{0,80}?certified`)
	if certRe.MatchString(textLower) {
		ev.Certifications = 1
	}
	return ev
}

func computeScore(ev SkillEvidence) int {
	return capped(ev.Projects*projectsPerPoint, projectsCap) +
		capped(ev.Years*yearsPerPoint, yearsCap) +
		capped(ev.Mentions*mentionsPerPoint, mentionsCap) +
		capped(ev.Certifications*certsPerPoint, certsCap)
}

// computeConfidence depends only on how many evidence categories are
// non-empty, not on the magnitude of any one category.
func computeConfidence(ev SkillEvidence) int {
	categories := 0
	if ev.Projects > 0 {
		categories++
	}
	if ev.Years > 0 {
		categories++
	}
	if ev.Mentions > 0 {
		categories++
	}
	if ev.Certifications > 0 {
		categories++
	}
	return categories * 100 / 4
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

// discrepancyThreshold is the max tolerated distance between the
// self-reported level (scaled to 0-100) and the computed score.
// Exactly 30 is NOT a discrepancy.
const discrepancyThreshold = 30

// HasDiscrepancy reports whether the self-reported level disagrees with the
// evidence by more than the threshold, in either direction. Always false
// without a self-reported level.
func HasDiscrepancy(a SkillAssessment) bool {
	if a.SelfReported == nil {
		return false
	}
	scaled := *a.SelfReported * 20
	diff := scaled - a.Computed
	if diff < 0 {
		diff = -diff
	}
	return diff > discrepancyThreshold
}

// ConfidenceLabel buckets a 0-100 confidence into low/medium/high.
func ConfidenceLabel(confidence int) string {
	switch {
	case confidence < 50:
		return "low"
	case confidence < 75:
		return "medium"
	default:
		return "high"
	}
}
