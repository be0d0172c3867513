// Command autoweb starts the browser-automation agent: it wires every
// component described in the configuration surface (vector store,
// embeddings, chat LLM, both caches, the knowledge-base pipeline, the
// browser driver, the program runner and the orchestration graph) and
// hands control to the supervisor's interactive REPL.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/autoweb/agent/ai"
	"github.com/autoweb/agent/ai/providers/gemini"
	"github.com/autoweb/agent/ai/providers/openai"
	"github.com/autoweb/agent/browser"
	"github.com/autoweb/agent/cache"
	"github.com/autoweb/agent/config"
	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/graph"
	"github.com/autoweb/agent/kb"
	"github.com/autoweb/agent/nodes"
	"github.com/autoweb/agent/runner"
	"github.com/autoweb/agent/supervisor"
	"github.com/autoweb/agent/telemetry"
	"github.com/autoweb/agent/toolbox"
	"github.com/autoweb/agent/vectorstore"
)

const autowebVersion = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:           "autoweb",
		Short:         "LLM-driven browser automation agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}
	root.Flags().String("output-dir", "", "overrides OUTPUT_DIR")
	root.Flags().String("status-addr", "", "overrides STATUS_ADDR (optional status/control HTTP surface)")
	root.Flags().Bool("headless", true, "overrides HEADLESS_MODE")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("autoweb " + autowebVersion)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "autoweb:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command) error {
	ctx := context.Background()
	bindFlagOverrides(cmd)

	cfg, err := config.Load(config.WithKeywordFile(os.Getenv("KEYWORD_FILE")))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	logDir := filepath.Join("logs", "sys_log")
	rotator, err := core.NewRotatingFileWriter(logDir, "autoweb")
	if err != nil {
		return fmt.Errorf("init log rotation: %w", err)
	}
	defer rotator.Close()

	logOutput := io.MultiWriter(os.Stdout, rotator)
	logger := core.NewProductionLoggerWithOutput(
		core.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, TimeFormat: time.RFC3339},
		core.DevelopmentConfig{},
		"autoweb",
		logOutput,
	)

	if _, err := telemetry.EnableTelemetry(logger, "autoweb", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); err != nil {
		logger.Warn("telemetry disabled", map[string]interface{}{"error": err.Error()})
	}

	gw, err := vectorstore.Connect(ctx, cfg.VectorStoreURI, logger, vectorstore.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("connect vector store: %w", err)
	}

	embeddings := ai.NewOpenAIEmbeddingClient(cfg.EmbeddingAPIKey, cfg.EmbeddingBaseURL, cfg.EmbeddingModel, logger)

	aiClient, err := newAIClient(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init chat client: %w", err)
	}

	codeBase, err := cache.NewBase(ctx, gw, embeddings, logger, cfg.CodeCacheCollection, cache.CodeCacheFields, cache.CodeCacheScalars)
	if err != nil {
		return fmt.Errorf("init code cache base: %w", err)
	}
	codeCache := cache.NewCodeCache(codeBase, filepath.Join(cfg.OutputDir, "cache_failures.jsonl"))
	codeCache.SimilarityThreshold = cfg.CodeCacheThreshold
	codeCache.Weights = cfg.CodeCacheWeights
	codeCacheWriter := cache.NewAsyncWriter("code_cache", logger)

	domBase, err := cache.NewBase(ctx, gw, embeddings, logger, "dom_cache", cache.DOMCacheFields, cache.DOMCacheScalars)
	if err != nil {
		return fmt.Errorf("init dom cache base: %w", err)
	}
	domCache := cache.NewDOMCache(domBase, filepath.Join(cfg.OutputDir, "cache_failures.jsonl"))
	domCache.SimilarityThreshold = cfg.DOMCacheThreshold
	domCache.TaskMinSimilarity = cfg.DOMCacheTaskMinSim
	domCache.TTLHours = cfg.DOMCacheTTLHours
	domCache.TopK = cfg.DOMCacheTopK
	domCache.Weights = cfg.DOMCacheWeights
	domCacheWriter := cache.NewAsyncWriter("dom_cache", logger)

	registryBackend, err := newFieldRegistryBackend(cfg)
	if err != nil {
		return fmt.Errorf("init field registry backend: %w", err)
	}
	registry, err := kb.NewFieldRegistry(ctx, registryBackend)
	if err != nil {
		return fmt.Errorf("init field registry: %w", err)
	}

	kbStore, err := kb.NewStore(ctx, gw, embeddings, logger, "knowledge_base")
	if err != nil {
		return fmt.Errorf("init kb store: %w", err)
	}

	var postgresSink *kb.PostgresSink
	if cfg.PostgresConnectionString != "" {
		postgresSink, err = kb.NewPostgresSink(ctx, cfg.PostgresConnectionString, logger)
		if err != nil {
			return fmt.Errorf("init postgres sink: %w", err)
		}
	}
	kbWriter := kb.NewWriter(kbStore, registry, postgresSink, filepath.Join(cfg.OutputDir, "kb_local"), logger)
	queryAnalyzer := kb.NewQueryAnalyzer(aiClient, registry, logger)

	chromeBrowser, err := browser.NewChromeBrowser(cfg.HeadlessMode, cfg.BrowserUserDataDir, logger)
	if err != nil {
		return fmt.Errorf("init browser: %w", err)
	}
	defer chromeBrowser.Close(ctx)

	tab, err := chromeBrowser.NewTab(ctx)
	if err != nil {
		return fmt.Errorf("open browser tab: %w", err)
	}

	tb := toolbox.New(cfg.OutputDir, &http.Client{Timeout: 30 * time.Second}, logger)
	tbServer, err := toolbox.NewServer(tb)
	if err != nil {
		return fmt.Errorf("init toolbox server: %w", err)
	}
	go func() {
		if serveErr := tbServer.Serve(); serveErr != nil {
			logger.Warn("toolbox server stopped", map[string]interface{}{"error": serveErr.Error()})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tbServer.Shutdown(shutdownCtx)
	}()

	nodeCfg := &nodes.Config{
		AI: aiClient,

		DOMCache:        domCache,
		DOMCacheWriter:  domCacheWriter,
		CodeCache:       codeCache,
		CodeCacheWriter: codeCacheWriter,

		KBWriter:      kbWriter,
		QueryAnalyzer: queryAnalyzer,
		KBStore:       kbStore,

		Tab:     tab,
		Browser: chromeBrowser,
		Runner:  runner.NewProcessRunner([]string{"python3", "-"}),
		Toolbox: tb,

		OutputDir:   cfg.OutputDir,
		ToolboxAddr: tbServer.Addr(),
		Logger:      logger,

		CodeCacheEnabled: cfg.CodeCacheEnabled,

		ContinuationKeywords: cfg.ContinuationKeywords,
		StoreKBKeywords:      cfg.StoreKBKeywords,
		RAGStoreKeywords:     cfg.RAGStoreKeywords,
		RAGAskKeywords:       cfg.RAGAskKeywords,

		ExecTimeout: 2 * time.Minute,
	}

	kwWatcher, err := config.WatchKeywordFile(os.Getenv("KEYWORD_FILE"), func(continuation, storeKB, ragStore, ragAsk []string) {
		if len(continuation) > 0 {
			nodeCfg.ContinuationKeywords = continuation
		}
		if len(storeKB) > 0 {
			nodeCfg.StoreKBKeywords = storeKB
		}
		if len(ragStore) > 0 {
			nodeCfg.RAGStoreKeywords = ragStore
		}
		if len(ragAsk) > 0 {
			nodeCfg.RAGAskKeywords = ragAsk
		}
	}, logger)
	if err != nil {
		logger.Warn("keyword file watch disabled", map[string]interface{}{"error": err.Error()})
	} else if kwWatcher != nil {
		defer kwWatcher.Close()
	}

	checkpointer, err := newCheckpointer(cfg, logger)
	if err != nil {
		return fmt.Errorf("init checkpointer: %w", err)
	}

	sup := supervisor.New(supervisor.Config{
		NodeConfig:   nodeCfg,
		Checkpointer: checkpointer,
		Browser:      chromeBrowser,
		Logger:       logger,
		OutputDir:    cfg.OutputDir,
		HTTPAddr:     os.Getenv("STATUS_ADDR"),
	})
	return sup.Run(ctx)
}

// bindFlagOverrides lets a CLI flag win over whatever Load would
// otherwise read from the environment, without the config package
// itself needing to know about cobra.
func bindFlagOverrides(cmd *cobra.Command) {
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		os.Setenv("OUTPUT_DIR", v)
	}
	if v, _ := cmd.Flags().GetString("status-addr"); v != "" {
		os.Setenv("STATUS_ADDR", v)
	}
	if cmd.Flags().Changed("headless") {
		v, _ := cmd.Flags().GetBool("headless")
		os.Setenv("HEADLESS_MODE", fmt.Sprintf("%t", v))
	}
}

func newAIClient(ctx context.Context, cfg *config.Config, logger core.Logger) (core.AIClient, error) {
	switch cfg.ModelName {
	case "gemini", "gemini-pro", "gemini-1.5-pro", "gemini-2.0-flash":
		return gemini.NewClient(ctx, cfg.APIKey, logger)
	default:
		return openai.NewClient(cfg.APIKey, cfg.BaseURL, logger), nil
	}
}

func newFieldRegistryBackend(cfg *config.Config) (kb.FieldRegistryBackend, error) {
	if cfg.FieldRegistryBackend != "redis" {
		return kb.NewJSONRegistryBackend(cfg.FieldRegistryPath), nil
	}
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return kb.NewRedisRegistryBackend(goredis.NewClient(opts), "autoweb:field_registry"), nil
}

func newCheckpointer(cfg *config.Config, logger core.Logger) (graph.Checkpointer, error) {
	if cfg.RedisURL == "" {
		return graph.NewInMemoryCheckpointer(), nil
	}
	client, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL:  cfg.RedisURL,
		DB:        core.RedisDBSessions,
		Namespace: "autoweb:checkpoint",
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect checkpoint redis: %w", err)
	}
	return graph.NewRedisCheckpointer(client), nil
}
