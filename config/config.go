// Package config binds the engine's environment/configuration surface
// (spec §6) through viper, with optional .env loading and an optional
// YAML keyword-lists file for the fields that are awkward to express as
// a single environment variable.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is every recognized environment key from spec §6, typed and
// defaulted. Functional options below override whatever Load read from
// the environment, mirroring the teacher's defaults < env < options
// layering (core/config.go).
type Config struct {
	VectorStoreURI string

	EmbeddingProvider string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string
	EmbeddingModel    string

	ModelName string
	APIKey    string
	BaseURL   string

	CodeCacheEnabled     bool
	CodeCacheThreshold   float64
	CodeCacheCollection  string
	CodeCacheWeights     map[string]float64

	DOMCacheEnabled    bool
	DOMCacheThreshold  float64
	DOMCacheTopK       int
	DOMCacheTTLHours   int
	DOMCacheTaskMinSim float64
	DOMCacheWeights    map[string]float64

	FieldRegistryBackend string
	FieldRegistryPath    string
	RedisURL             string

	HeadlessMode       bool
	BrowserUserDataDir string
	OutputDir          string

	PostgresConnectionString string

	ContinuationKeywords []string
	StoreKBKeywords      []string
	RAGStoreKeywords     []string
	RAGAskKeywords       []string

	LogLevel  string
	LogFormat string
}

// keywordFile is the optional YAML shape loaded over the defaults for
// every keyword-list setting (spec §6 "configurable lists").
type keywordFile struct {
	ContinuationKeywords []string `yaml:"continuation_keywords"`
	StoreKBKeywords      []string `yaml:"store_kb_keywords"`
	RAGStoreKeywords     []string `yaml:"rag_store_keywords"`
	RAGAskKeywords       []string `yaml:"rag_ask_keywords"`
}

func defaultContinuationKeywords() []string {
	return []string{"continue", "also", "then", "next", "now"}
}

func defaultStoreKBKeywords() []string {
	return []string{"store in knowledge base", "save to knowledge base", "store in kb", "save to kb"}
}

func defaultRAGStoreKeywords() []string {
	return []string{"store:", "save:"}
}

func defaultRAGAskKeywords() []string {
	return []string{"ask:", "qa:", "question:"}
}

// Option customizes a Config after Load has applied env/defaults.
type Option func(*Config)

// WithKeywordFile parses a YAML file of keyword-list overrides. A missing
// or malformed file is ignored: the option reports no error and the
// default lists stay in place.
func WithKeywordFile(path string) Option {
	return func(c *Config) {
		kf, err := parseKeywordFile(path)
		if err != nil {
			return
		}
		if len(kf.ContinuationKeywords) > 0 {
			c.ContinuationKeywords = kf.ContinuationKeywords
		}
		if len(kf.StoreKBKeywords) > 0 {
			c.StoreKBKeywords = kf.StoreKBKeywords
		}
		if len(kf.RAGStoreKeywords) > 0 {
			c.RAGStoreKeywords = kf.RAGStoreKeywords
		}
		if len(kf.RAGAskKeywords) > 0 {
			c.RAGAskKeywords = kf.RAGAskKeywords
		}
	}
}

// parseKeywordFile reads and parses path as a keywordFile. An empty path
// or unreadable file is not an error here; only malformed YAML is, so
// callers can no-op on "not configured" and fail loud on "configured
// wrong".
func parseKeywordFile(path string) (keywordFile, error) {
	if path == "" {
		return keywordFile{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return keywordFile{}, nil
	}
	var kf keywordFile
	if err := yaml.Unmarshal(raw, &kf); err != nil {
		return keywordFile{}, err
	}
	return kf, nil
}

// Load reads .env (if present, best-effort) then every recognized
// environment key via viper, applying spec-documented defaults, then
// applies opts in order.
func Load(opts ...Option) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("MILVUS_URI", "")
	v.SetDefault("EMBEDDING_PROVIDER", "openai")
	v.SetDefault("EMBEDDING_API_KEY", "")
	v.SetDefault("EMBEDDING_BASE_URL", "")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	v.SetDefault("MODEL_NAME", "gpt-4o-mini")
	v.SetDefault("API_KEY", "")
	v.SetDefault("BASE_URL", "")

	v.SetDefault("CODE_CACHE_ENABLED", true)
	v.SetDefault("CODE_CACHE_THRESHOLD", 0.90)
	v.SetDefault("CODE_CACHE_COLLECTION", "code_cache")
	v.SetDefault("CODE_CACHE_WEIGHT_GOAL", 0.6)
	v.SetDefault("CODE_CACHE_WEIGHT_LOCATOR", 0.2)
	v.SetDefault("CODE_CACHE_WEIGHT_USER_TASK", 0.1)
	v.SetDefault("CODE_CACHE_WEIGHT_URL", 0.1)

	v.SetDefault("DOM_CACHE_ENABLED", true)
	v.SetDefault("DOM_CACHE_THRESHOLD", 0.90)
	v.SetDefault("DOM_CACHE_TOP_K", 5)
	v.SetDefault("DOM_CACHE_TTL_HOURS", 168)
	v.SetDefault("DOM_CACHE_TASK_MIN_SIM", 0.8)
	v.SetDefault("DOM_CACHE_WEIGHT_URL", 0.2)
	v.SetDefault("DOM_CACHE_WEIGHT_DOM", 0.7)
	v.SetDefault("DOM_CACHE_WEIGHT_TASK", 0.1)

	v.SetDefault("FIELD_REGISTRY_BACKEND", "json")
	v.SetDefault("FIELD_REGISTRY_PATH", "data/field_registry.json")
	v.SetDefault("REDIS_URL", "")

	v.SetDefault("HEADLESS_MODE", true)
	v.SetDefault("BROWSER_USER_DATA_DIR", "")
	v.SetDefault("OUTPUT_DIR", "output")

	v.SetDefault("POSTGRES_CONNECTION_STRING", "")

	v.SetDefault("GOMIND_LOG_LEVEL", "info")
	v.SetDefault("GOMIND_LOG_FORMAT", "json")

	cfg := &Config{
		VectorStoreURI: v.GetString("MILVUS_URI"),

		EmbeddingProvider: v.GetString("EMBEDDING_PROVIDER"),
		EmbeddingAPIKey:   v.GetString("EMBEDDING_API_KEY"),
		EmbeddingBaseURL:  v.GetString("EMBEDDING_BASE_URL"),
		EmbeddingModel:    v.GetString("EMBEDDING_MODEL"),

		ModelName: v.GetString("MODEL_NAME"),
		APIKey:    v.GetString("API_KEY"),
		BaseURL:   v.GetString("BASE_URL"),

		CodeCacheEnabled:    v.GetBool("CODE_CACHE_ENABLED"),
		CodeCacheThreshold:  v.GetFloat64("CODE_CACHE_THRESHOLD"),
		CodeCacheCollection: v.GetString("CODE_CACHE_COLLECTION"),
		CodeCacheWeights: map[string]float64{
			"goal_vector":      v.GetFloat64("CODE_CACHE_WEIGHT_GOAL"),
			"locator_vector":   v.GetFloat64("CODE_CACHE_WEIGHT_LOCATOR"),
			"user_task_vector": v.GetFloat64("CODE_CACHE_WEIGHT_USER_TASK"),
			"url_vector":       v.GetFloat64("CODE_CACHE_WEIGHT_URL"),
		},

		DOMCacheEnabled:    v.GetBool("DOM_CACHE_ENABLED"),
		DOMCacheThreshold:  v.GetFloat64("DOM_CACHE_THRESHOLD"),
		DOMCacheTopK:       v.GetInt("DOM_CACHE_TOP_K"),
		DOMCacheTTLHours:   v.GetInt("DOM_CACHE_TTL_HOURS"),
		DOMCacheTaskMinSim: v.GetFloat64("DOM_CACHE_TASK_MIN_SIM"),
		DOMCacheWeights: map[string]float64{
			"url_vector":  v.GetFloat64("DOM_CACHE_WEIGHT_URL"),
			"dom_vector":  v.GetFloat64("DOM_CACHE_WEIGHT_DOM"),
			"task_vector": v.GetFloat64("DOM_CACHE_WEIGHT_TASK"),
		},

		FieldRegistryBackend: v.GetString("FIELD_REGISTRY_BACKEND"),
		FieldRegistryPath:    v.GetString("FIELD_REGISTRY_PATH"),
		RedisURL:             v.GetString("REDIS_URL"),

		HeadlessMode:       v.GetBool("HEADLESS_MODE"),
		BrowserUserDataDir: v.GetString("BROWSER_USER_DATA_DIR"),
		OutputDir:          v.GetString("OUTPUT_DIR"),

		PostgresConnectionString: v.GetString("POSTGRES_CONNECTION_STRING"),

		ContinuationKeywords: defaultContinuationKeywords(),
		StoreKBKeywords:      defaultStoreKBKeywords(),
		RAGStoreKeywords:     defaultRAGStoreKeywords(),
		RAGAskKeywords:       defaultRAGAskKeywords(),

		LogLevel:  v.GetString("GOMIND_LOG_LEVEL"),
		LogFormat: v.GetString("GOMIND_LOG_FORMAT"),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CodeCacheThreshold < 0 || c.CodeCacheThreshold > 1 {
		return fmt.Errorf("config: CODE_CACHE_THRESHOLD must be in [0,1], got %v", c.CodeCacheThreshold)
	}
	if c.DOMCacheThreshold < 0 || c.DOMCacheThreshold > 1 {
		return fmt.Errorf("config: DOM_CACHE_THRESHOLD must be in [0,1], got %v", c.DOMCacheThreshold)
	}
	if c.FieldRegistryBackend != "json" && c.FieldRegistryBackend != "redis" {
		return fmt.Errorf("config: FIELD_REGISTRY_BACKEND must be json or redis, got %q", c.FieldRegistryBackend)
	}
	if c.FieldRegistryBackend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("config: FIELD_REGISTRY_BACKEND=redis requires REDIS_URL")
	}
	return nil
}
