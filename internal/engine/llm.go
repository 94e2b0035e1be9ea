package engine

import (
	"context"
	"strings"
)

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CallLLM sends a prompt using the configured temperature and max_tokens.
func CallLLM(ctx context.Context, prompt string) (string, error) {
	Incr(MetricLLMCalls)
	resp, err := cfg.LLMClient.Complete(ctx, "", prompt)
	if err != nil {
		Incr(MetricLLMErrors)
		return "", err
	}
	return stripFences(resp), nil
}
