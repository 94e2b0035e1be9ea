package engine

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestRenderPrompt(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		vars map[string]string
		want string
	}{
		{
			name: "simple substitution",
			tpl:  "Company: {{company}}, Score: {{preliminary_score}}",
			vars: map[string]string{"company": "Acme", "preliminary_score": "50"},
			want: "Company: Acme, Score: 50",
		},
		{
			name: "repeated placeholder",
			tpl:  "{{company}} and {{company}}",
			vars: map[string]string{"company": "Acme"},
			want: "Acme and Acme",
		},
		{
			name: "unknown placeholder collapses",
			tpl:  "Context: {{company_context}} End",
			vars: map[string]string{},
			want: "Context:  End",
		},
		{
			name: "no placeholders",
			tpl:  "static text",
			vars: map[string]string{"company": "Acme"},
			want: "static text",
		},
		{
			name: "unterminated braces left alone",
			tpl:  "broken {{company",
			vars: map[string]string{},
			want: "broken {{company",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderPrompt(tt.tpl, tt.vars); got != tt.want {
				t.Errorf("renderPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecuteUnknownPrompt(t *testing.T) {
	e := NewLLMExecutor()
	_, err := e.Execute(context.Background(), PromptRequest{PromptName: "nonsense"})
	if err == nil || !strings.Contains(err.Error(), "unknown prompt") {
		t.Errorf("want unknown prompt error, got %v", err)
	}
}

func TestExecuteVersionMismatch(t *testing.T) {
	e := NewLLMExecutor()
	_, err := e.Execute(context.Background(), PromptRequest{
		PromptName:    PromptMatchScore,
		PromptVersion: "v99",
	})
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("want version mismatch error, got %v", err)
	}
}

func TestResearchSearchContext(t *testing.T) {
	initSearchTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"title": "Acme Corp", "url": "https://acme.example", "content": "Rocket maker", "score": 0.9}
		]}`))
	}, 5*time.Second)

	t.Run("company research gets sources", func(t *testing.T) {
		got := researchSearchContext(context.Background(), PromptCompanyResearch, map[string]string{"company": "Acme"})
		if !strings.Contains(got, "[1] Acme Corp") || !strings.Contains(got, "Snippet: Rocket maker") {
			t.Errorf("unexpected search context %q", got)
		}
	})

	t.Run("non-research prompts get none", func(t *testing.T) {
		if got := researchSearchContext(context.Background(), PromptMatchScore, map[string]string{"company": "Acme"}); got != "" {
			t.Errorf("want empty, got %q", got)
		}
	})

	t.Run("missing company gets none", func(t *testing.T) {
		if got := researchSearchContext(context.Background(), PromptCompanyResearch, map[string]string{}); got != "" {
			t.Errorf("want empty, got %q", got)
		}
	})
}

func TestResearchSearchContextUnconfigured(t *testing.T) {
	Init(Config{})
	got := researchSearchContext(context.Background(), PromptCompanyResearch, map[string]string{"company": "Acme"})
	if got != "" {
		t.Errorf("no endpoint configured: want empty, got %q", got)
	}
}

func TestPromptRegistryCoversAllStages(t *testing.T) {
	for _, name := range []string{PromptCompanyResearch, PromptPeopleResearch, PromptMatchScore, PromptSkillGap} {
		tpl, ok := promptRegistry[name]
		if !ok {
			t.Errorf("prompt %q not registered", name)
			continue
		}
		if tpl.version == "" || tpl.text == "" {
			t.Errorf("prompt %q registered without version or text", name)
		}
	}
}
