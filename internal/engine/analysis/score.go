package analysis

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// scoreStopWords filters common English words that add noise to keyword matching.
var scoreStopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"work": true, "team": true, "role": true, "job": true, "join": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "well": true, "high": true,
	"good": true, "able": true, "get": true, "set": true, "such": true,
}

// Multi-word technical phrases worth matching whole.
var (
	roleTitleRe = regexp.MustCompile(`(?i)\b(?:senior|junior|lead|staff|principal)\s+[a-z/]+\s+(?:engineer|developer|manager|architect|designer|analyst)\b`)
	skillNounRe = regexp.MustCompile(`(?i)\b([a-z][a-z+#]{2,})\s+(?:experience|skills?|knowledge)\b`)
)

// Well-known technology names matched as fixed phrases, so "node.js" or
// "machine learning" survive tokenization.
var knownTechNames = []string{
	"javascript", "typescript", "python", "java", "golang", "rust", "ruby",
	"node.js", "react", "angular", "vue", "django", "rails", "spring",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform",
	"postgresql", "mysql", "mongodb", "redis", "kafka", "elasticsearch",
	"graphql", "rest api", "ci/cd", "machine learning", "data science",
	"microservices",
}

// PreliminaryScore is a zero-cost, network-free approximation of a paid
// match analysis, computed directly from text.
type PreliminaryScore struct {
	Score           int      `json:"score"` // 0-100
	MatchedKeywords int      `json:"matched_keywords"`
	TotalKeywords   int      `json:"total_keywords"`
	Highlights      []string `json:"highlights"` // first 5 matched
	Gaps            []string `json:"gaps"`       // first 5 unmatched
}

// CalculatePreliminaryScore scores a resume against a job description by
// keyword coverage. Empty input yields a zero result, never an error; the
// free preliminary path must never block the UI.
func CalculatePreliminaryScore(jd, resume string) PreliminaryScore {
	out := PreliminaryScore{Highlights: []string{}, Gaps: []string{}}
	if strings.TrimSpace(jd) == "" || strings.TrimSpace(resume) == "" {
		return out
	}

	keywords := extractJDKeywords(jd)
	if len(keywords) == 0 {
		return out
	}

	resumeLower := strings.ToLower(resume)
	var matched, missing []string
	for _, kw := range keywords {
		if strings.Contains(resumeLower, kw) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}

	out.MatchedKeywords = len(matched)
	out.TotalKeywords = len(keywords)
	out.Score = int(float64(len(matched))/float64(len(keywords))*100 + 0.5)

	for _, kw := range firstN(matched, 5) {
		out.Highlights = append(out.Highlights, fmt.Sprintf("%s — found in resume", kw))
	}
	for _, kw := range firstN(missing, 5) {
		out.Gaps = append(out.Gaps, fmt.Sprintf("%s — not found in resume", kw))
	}
	return out
}

// extractJDKeywords tokenizes the JD into a deduplicated, insertion-ordered
// keyword list: single words (stop words and short tokens dropped) plus
// multi-word technical phrases.
func extractJDKeywords(jd string) []string {
	var keywords []string
	seen := make(map[string]bool)
	add := func(kw string) {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}

	// Single-word tokens. + and # are word chars so "c++" and "c#" survive.
	var word strings.Builder
	flush := func() {
		w := word.String()
		word.Reset()
		if len([]rune(w)) >= 3 && !scoreStopWords[w] {
			add(w)
		}
	}
	for _, r := range strings.ToLower(jd) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	// Multi-word phrases.
	for _, m := range roleTitleRe.FindAllString(jd, -1) {
		add(m)
	}
	for _, m := range skillNounRe.FindAllStringSubmatch(jd, -1) {
		w := strings.ToLower(m[1])
		if len([]rune(w)) >= 3 && !scoreStopWords[w] {
			add(w)
		}
	}
	jdLower := strings.ToLower(jd)
	for _, name := range knownTechNames {
		if strings.Contains(jdLower, name) {
			add(name)
		}
	}

	return keywords
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
