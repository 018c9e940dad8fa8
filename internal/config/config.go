package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "FACTSHEETGEN_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	openAIModelEnv   = "OPENAI_MODEL"
	factsheetDirEnv  = "FACTSHEETS_DIR"
	listenAddrEnv    = "LISTEN_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Storage   StorageConfig   `yaml:"storage"`
	Tasks     TaskConfig      `yaml:"tasks"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig describes the HTTP API listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// DatabaseConfig describes the optional Postgres audit store.
// An empty DSN disables it.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// FetchConfig bounds per-page HTTP fetching and text reduction.
type FetchConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds"`
	MaxRedirects   int `yaml:"maxRedirects"`
	RetryBackoffMS int `yaml:"retryBackoffMs"`
	MinTextChars   int `yaml:"minTextChars"`
	MaxPageChars   int `yaml:"maxPageChars"`
	MaxBundleChars int `yaml:"maxBundleChars"`
}

// Timeout resolves the per-page fetch timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// RetryBackoff resolves the fixed backoff before the single retry.
func (f FetchConfig) RetryBackoff() time.Duration {
	return time.Duration(f.RetryBackoffMS) * time.Millisecond
}

// SynthesisConfig bounds the generated document.
type SynthesisConfig struct {
	TargetWordsMin int `yaml:"targetWordsMin"`
	TargetWordsMax int `yaml:"targetWordsMax"`
	AcceptWordsMin int `yaml:"acceptWordsMin"`
	AcceptWordsMax int `yaml:"acceptWordsMax"`
}

// OpenAIConfig defines how to contact the completion API.
type OpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// StorageConfig locates the factsheet output directory.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// TaskConfig bounds task concurrency and lifetime.
type TaskConfig struct {
	MaxInFlight   int `yaml:"maxInFlight"`
	BudgetSeconds int `yaml:"budgetSeconds"`
}

// Budget resolves the per-task wall-clock budget.
func (t TaskConfig) Budget() time.Duration {
	return time.Duration(t.BudgetSeconds) * time.Second
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv(factsheetDirEnv); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.ListenAddr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Server.ListenAddr != "" {
		base.Server = override.Server
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Fetch.TimeoutSeconds > 0 {
		base.Fetch.TimeoutSeconds = override.Fetch.TimeoutSeconds
	}
	if override.Fetch.MaxRedirects > 0 {
		base.Fetch.MaxRedirects = override.Fetch.MaxRedirects
	}
	if override.Fetch.RetryBackoffMS > 0 {
		base.Fetch.RetryBackoffMS = override.Fetch.RetryBackoffMS
	}
	if override.Fetch.MinTextChars > 0 {
		base.Fetch.MinTextChars = override.Fetch.MinTextChars
	}
	if override.Fetch.MaxPageChars > 0 {
		base.Fetch.MaxPageChars = override.Fetch.MaxPageChars
	}
	if override.Fetch.MaxBundleChars > 0 {
		base.Fetch.MaxBundleChars = override.Fetch.MaxBundleChars
	}

	if override.Synthesis.TargetWordsMin > 0 {
		base.Synthesis.TargetWordsMin = override.Synthesis.TargetWordsMin
	}
	if override.Synthesis.TargetWordsMax > 0 {
		base.Synthesis.TargetWordsMax = override.Synthesis.TargetWordsMax
	}
	if override.Synthesis.AcceptWordsMin > 0 {
		base.Synthesis.AcceptWordsMin = override.Synthesis.AcceptWordsMin
	}
	if override.Synthesis.AcceptWordsMax > 0 {
		base.Synthesis.AcceptWordsMax = override.Synthesis.AcceptWordsMax
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.SystemPrompt != "" {
		base.OpenAI.SystemPrompt = override.OpenAI.SystemPrompt
	}

	if override.Storage.Dir != "" {
		base.Storage = override.Storage
	}

	if override.Tasks.MaxInFlight > 0 {
		base.Tasks.MaxInFlight = override.Tasks.MaxInFlight
	}
	if override.Tasks.BudgetSeconds > 0 {
		base.Tasks.BudgetSeconds = override.Tasks.BudgetSeconds
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{ListenAddr: ":8080"},
		Fetch: FetchConfig{
			TimeoutSeconds: 10,
			MaxRedirects:   5,
			RetryBackoffMS: 500,
			MinTextChars:   50,
			MaxPageChars:   3000,
			MaxBundleChars: 10000,
		},
		Synthesis: SynthesisConfig{
			TargetWordsMin: 600,
			TargetWordsMax: 1000,
			AcceptWordsMin: 400,
			AcceptWordsMax: 1400,
		},
		OpenAI: OpenAIConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "You are a business analyst creating evidence-based sales intelligence factsheets. Only use information directly stated in the provided content.",
		},
		Storage: StorageConfig{Dir: "factsheets"},
		Tasks: TaskConfig{
			MaxInFlight:   4,
			BudgetSeconds: 120,
		},
	}
}
