package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int

	SearchURL     string        // SearXNG-compatible endpoint; empty = web search disabled
	SearchTimeout time.Duration // hard cap per search call
	SearchRPS     float64       // outbound search throttle (requests/sec)

	DatabaseURL string // Postgres bundle store; empty = SQLite default
	RedisURL    string // Redis guardrail state store; empty = in-memory

	CooldownWindow  time.Duration // min gap between paid analyses per job
	RateLimitMax    int           // calls per caller per window
	RateLimitWindow time.Duration

	// Cost estimate shown by the guardrail gate before a paid run.
	// Fixed per-run token estimate, not derived from text length.
	EstimatedTokensPerRun int
	CostPer1KTokens       float64

	HTTPClient *http.Client
	LLMClient  *llm.Client
}

var cfg Config

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	initSearchLimiter()
}
