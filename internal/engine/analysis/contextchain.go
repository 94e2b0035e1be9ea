package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// charsPerToken approximates the token budget in characters.
const charsPerToken = 4

// stageContextTokens bounds each compressed stage summary injected into the
// next stage's prompt.
const stageContextTokens = 80

// contextKeywords score sentences during extractive summarization. The list
// is load-bearing: summaries (and their fixtures) depend on these words.
var contextKeywords = []string{
	"recommend", "important", "key", "critical", "must", "should",
	"culture", "fit", "gap", "strength", "weakness", "focus",
}

// SummarizeForContext compresses text to at most maxTokens*4 characters by
// keeping the highest-scoring sentences. Order among equally-scored
// sentences is implementation-defined. Text without sentence terminators
// falls back to a hard truncation with an ellipsis marker.
func SummarizeForContext(text string, maxTokens int) string {
	budget := maxTokens * charsPerToken
	if len(text) <= budget {
		return text
	}

	sentences := splitSentences(text)
	type scored struct {
		sentence string
		score    int
	}
	ranked := make([]scored, 0, len(sentences))
	for _, s := range sentences {
		lower := strings.ToLower(s)
		score := 0
		for _, kw := range contextKeywords {
			score += strings.Count(lower, kw)
		}
		ranked = append(ranked, scored{s, score})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var sb strings.Builder
	for _, r := range ranked {
		need := len(r.sentence)
		if sb.Len() > 0 {
			need++ // joining space
		}
		if sb.Len()+need > budget {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(r.sentence)
	}

	if sb.Len() == 0 {
		// No sentence fits (e.g. no terminators at all): best-effort cut.
		return engine.TruncateRunes(text, budget, "...")
	}
	return sb.String()
}

// splitSentences breaks text after . ! ? terminators, dropping empties.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// StageResults carries the structured JSON produced by prior paid stages.
// Any stage may be absent.
type StageResults struct {
	Company json.RawMessage `json:"company,omitempty"`
	People  json.RawMessage `json:"people,omitempty"`
	Match   json.RawMessage `json:"match,omitempty"`
}

// Context is the bounded, ephemeral context object injected into the next
// stage's prompt variables. Absent stages leave their field empty.
type Context struct {
	Company string `json:"company,omitempty"`
	People  string `json:"people,omitempty"`
	Match   string `json:"match,omitempty"`
}

type companyPayload struct {
	Name        string   `json:"name"`
	Overview    string   `json:"overview"`
	CultureNote string   `json:"culture_notes"`
	KeyFacts    []string `json:"key_facts"`
}

type personPayload struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Summary string `json:"summary"`
}

type peoplePayload struct {
	People []personPayload `json:"people"`
}

type matchPayload struct {
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights"`
	Gaps       []string `json:"gaps"`
}

// ExtractCompanyInsights pulls overview, culture and the top 3 key facts out
// of a company stage result. Unparseable input yields "".
func ExtractCompanyInsights(data json.RawMessage) string {
	var p companyPayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil {
		return ""
	}
	var parts []string
	if p.Overview != "" {
		parts = append(parts, p.Overview)
	}
	if p.CultureNote != "" {
		parts = append(parts, "Culture: "+p.CultureNote)
	}
	for i, fact := range p.KeyFacts {
		if i == 3 {
			break
		}
		parts = append(parts, fact)
	}
	if len(parts) == 0 {
		return ""
	}
	return SummarizeForContext(strings.Join(parts, " "), stageContextTokens)
}

// ExtractPeopleInsights pulls the top 3 people (name, role, one line) out of
// a people stage result.
func ExtractPeopleInsights(data json.RawMessage) string {
	var p peoplePayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil {
		return ""
	}
	var parts []string
	for i, person := range p.People {
		if i == 3 {
			break
		}
		line := person.Name
		if person.Role != "" {
			line += " (" + person.Role + ")"
		}
		if person.Summary != "" {
			line += ": " + person.Summary
		}
		if line != "" {
			parts = append(parts, line)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return SummarizeForContext(strings.Join(parts, ". "), stageContextTokens)
}

// ExtractMatchInsights pulls the score plus the top 2 highlights and gaps
// out of a match stage result.
func ExtractMatchInsights(data json.RawMessage) string {
	var p matchPayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil {
		return ""
	}
	parts := []string{fmt.Sprintf("Match score: %.0f%%.", p.Score)}
	if len(p.Highlights) > 0 {
		parts = append(parts, "Strengths: "+strings.Join(firstN(p.Highlights, 2), "; ")+".")
	}
	if len(p.Gaps) > 0 {
		parts = append(parts, "Gaps: "+strings.Join(firstN(p.Gaps, 2), "; ")+".")
	}
	return SummarizeForContext(strings.Join(parts, " "), stageContextTokens)
}

// BuildContext runs all extractors over whatever prior stage results exist.
// A missing or unparseable stage simply leaves its field empty.
func BuildContext(prev StageResults) Context {
	return Context{
		Company: ExtractCompanyInsights(prev.Company),
		People:  ExtractPeopleInsights(prev.People),
		Match:   ExtractMatchInsights(prev.Match),
	}
}
