// go_apply — Analysis orchestration MCP server for the job-application tracker.
//
// Decides whether a paid AI analysis may run (guardrails, rate limits),
// reuses content-addressed document bundles, computes free local scores,
// and threads compressed context between analysis stages.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_apply/internal/analysisserver"
	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/engine/analysis"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	svc := initEngine()

	slog.Info("starting go_apply",
		slog.String("port", mcpPort),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_apply",
		Version: version,
	}, nil)

	analysisserver.RegisterTools(server, svc)
	slog.Info("tools registered", slog.Int("count", 6))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_apply",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() *analysis.Service {
	c := engine.Config{
		LLMAPIKey:          env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:           env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", 0.1),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", 8192),

		SearchURL:     env.Str("SEARCH_URL", ""),
		SearchTimeout: env.Duration("SEARCH_TIMEOUT", 30*time.Second),
		SearchRPS:     env.Float("SEARCH_RPS", 2),

		DatabaseURL: env.Str("DATABASE_URL", ""),
		RedisURL:    env.Str("REDIS_URL", ""),

		CooldownWindow:  env.Duration("ANALYSIS_COOLDOWN", 5*time.Minute),
		RateLimitMax:    env.Int("RATE_LIMIT_MAX", 20),
		RateLimitWindow: env.Duration("RATE_LIMIT_WINDOW", time.Minute),

		EstimatedTokensPerRun: env.Int("ANALYSIS_EST_TOKENS", 8000),
		CostPer1KTokens:       env.Float("ANALYSIS_COST_PER_1K", 0.01),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(c.LLMMaxTokens),
		llm.WithTemperature(c.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)

	engine.Init(c)

	ctx := context.Background()

	// Bundle store: Postgres when configured, SQLite otherwise.
	var bundles analysis.BundleStore
	if c.DatabaseURL != "" {
		pg, err := analysis.ConnectPGBundleStore(ctx, c.DatabaseURL)
		if err != nil {
			slog.Error("postgres bundle store init failed", slog.Any("error", err))
		} else {
			bundles = pg
			slog.Info("bundle store: postgres")
		}
	}
	if bundles == nil {
		lite, err := analysis.OpenSQLiteBundleStore(analysis.DefaultBundlePath())
		if err != nil {
			slog.Error("sqlite bundle store init failed", slog.Any("error", err))
			panic(err)
		}
		bundles = lite
		slog.Info("bundle store: sqlite", slog.String("path", analysis.DefaultBundlePath()))
	}

	// Guardrail state: Redis when configured (shared deployments), memory otherwise.
	var states analysis.StateStore
	if c.RedisURL != "" {
		rs, err := analysis.NewRedisStore(ctx, c.RedisURL)
		if err != nil {
			slog.Warn("redis state store unavailable, using memory", slog.Any("error", err))
		} else {
			states = rs
			slog.Info("guardrail state: redis")
		}
	}
	if states == nil {
		states = analysis.NewMemoryStore()
		slog.Info("guardrail state: memory")
	}

	gate := analysis.NewGate(states, analysis.GateConfig{
		Cooldown:        c.CooldownWindow,
		EstimatedTokens: c.EstimatedTokensPerRun,
		CostPer1K:       c.CostPer1KTokens,
	})
	limiter := analysis.NewLimiter(c.RateLimitMax, c.RateLimitWindow)

	return analysis.NewService(gate, limiter, bundles, engine.NewLLMExecutor())
}
