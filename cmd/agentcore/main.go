// agentcore is the composition root: it wires the guard pipeline, lifecycle
// hooks, ReAct executor, conversation memory, response cache, filter chain,
// async metrics, and the PostgreSQL reference store into one runnable
// process. Transport (HTTP/SSE/gRPC inbound, dashboards, channel adapters)
// is deliberately not this binary's concern — embed pkg/react.Executor
// behind whatever transport a deployment needs.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codeready-toolchain/agentcore/pkg/breaker"
	"github.com/codeready-toolchain/agentcore/pkg/cache"
	"github.com/codeready-toolchain/agentcore/pkg/config"
	"github.com/codeready-toolchain/agentcore/pkg/filters"
	"github.com/codeready-toolchain/agentcore/pkg/guard"
	"github.com/codeready-toolchain/agentcore/pkg/hooks"
	"github.com/codeready-toolchain/agentcore/pkg/llm"
	"github.com/codeready-toolchain/agentcore/pkg/memory"
	"github.com/codeready-toolchain/agentcore/pkg/metrics"
	"github.com/codeready-toolchain/agentcore/pkg/pricing"
	"github.com/codeready-toolchain/agentcore/pkg/react"
	"github.com/codeready-toolchain/agentcore/pkg/retry"
	"github.com/codeready-toolchain/agentcore/pkg/store"
	"github.com/codeready-toolchain/agentcore/pkg/tools"
	"github.com/codeready-toolchain/agentcore/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("no .env file loaded, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	slog.Info("starting agentcore", "version", version.UserAgent())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(ctx, storeConfigFromEnv())
	if err != nil {
		slog.Error("failed to open reference store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("connected to reference store")

	executor, writer := buildExecutor(cfg, st)

	go writer.Run(ctx)
	defer writer.Stop()

	slog.Info("agentcore ready", "max_concurrent_requests", cfg.MaxConcurrentRequests)

	_ = executor // held by the (not-yet-wired) transport adapter

	<-ctx.Done()
	slog.Info("shutting down")
}

func storeConfigFromEnv() store.Config {
	c := store.DefaultConfig()
	c.Host = getEnv("DB_HOST", c.Host)
	c.User = getEnv("DB_USER", "agentcore")
	c.Password = os.Getenv("DB_PASSWORD")
	c.Database = getEnv("DB_NAME", "agentcore")
	c.SSLMode = getEnv("DB_SSLMODE", c.SSLMode)
	return c
}

// buildExecutor wires every collaborator package into one react.Executor,
// grounded on config.Config's adapter methods for each component's own
// config shape.
func buildExecutor(cfg *config.Config, st *store.Store) (*react.Executor, *metrics.Writer) {
	guardPipeline := buildGuardPipeline(cfg)
	hookExec := hooks.NewExecutor(nil, nil, nil, nil)
	respCache := cache.New(1000, 10*time.Minute)

	var summarizer memory.Summarizer // nil: summarization degrades to trim-only until an LLM-backed summarizer is configured
	convManager := memory.NewConversationManager(st.MessageStore(), st.SummaryStore(), summarizer, cfg.MemoryConfig(), nil)

	toolsReg := tools.NewRegistry()
	if addr := os.Getenv("MCP_SERVER_ADDR"); addr != "" {
		toolsReg.Register("mcp", tools.NewMCPExecutor(
			[]tools.MCPServerConfig{{ID: "mcp", Command: addr}},
			version.AppName, version.GitCommit))
	}

	filterChain := filters.NewChain(
		filters.MaxLengthResponseFilter{MaxChars: cfg.Response.MaxLength},
		filters.NewSecretMaskingResponseFilter(),
	)

	breakers := breaker.NewRegistry(cfg.BreakerConfig(), nil)
	provider := buildProvider(breakers, cfg.Fallback)

	costCalc := pricing.NewCostCalculator(st.ModelPriceStore())
	ringBuf := metrics.NewRingBuffer(cfg.RingBufferSize)
	writer := metrics.NewWriter(ringBuf, st.MetricEventStore(), costCalc, cfg.WriterConfig(), prometheus.DefaultRegisterer)

	model := getEnv("LLM_MODEL", "gpt-4o")
	executor := react.NewExecutor(
		cfg.ReactConfig(),
		guardPipeline,
		hookExec,
		respCache,
		convManager,
		toolsReg,
		tools.AllSelector{},
		provider,
		filterChain,
		writer,
		model,
	)

	return executor, writer
}

func buildGuardPipeline(cfg *config.Config) *guard.Pipeline {
	stages := []guard.Stage{
		guard.NewRateLimitStage(10, 60, 1000),
		guard.NewInputValidationStage(20, cfg.MaxContextWindowTokens*4),
	}
	if injection, err := guard.NewInjectionDetectionStage(30, nil); err != nil {
		slog.Warn("injection detection stage disabled, no default patterns compiled", "error", err)
	} else {
		stages = append(stages, injection)
	}
	return guard.NewPipeline(stages...)
}

// buildProvider wraps the primary gRPC-backed LLM provider with retry,
// circuit-breaking, and an optional ordered fallback list.
func buildProvider(breakers *breaker.Registry, fallbackCfg config.FallbackConfig) react.Provider {
	addr := getEnv("LLM_SERVICE_ADDR", "localhost:50051")
	primary, err := llm.NewGRPCProvider("primary", addr)
	if err != nil {
		slog.Error("failed to connect to LLM service", "addr", addr, "error", err)
		os.Exit(1)
	}

	var fallback *llm.FallbackStrategy
	if fallbackCfg.Enabled && len(fallbackCfg.Models) > 0 {
		entries := make([]llm.FallbackEntry, len(fallbackCfg.Models))
		for i, model := range fallbackCfg.Models {
			entries[i] = llm.FallbackEntry{Provider: primary, Model: model}
		}
		fallback = &llm.FallbackStrategy{Entries: entries, ToollessRetry: true}
	}

	return react.NewProtectedProvider(primary, breakers, retry.DefaultConfig(), fallback)
}
