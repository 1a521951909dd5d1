package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zakerytclarke/teapot/internal/domain"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"

	defaultSystemPrompt = "You are a helpful assistant. Answer the question using the context above. " +
		"If the context does not contain the answer, say you do not know."
)

// OpenAIConfig configures an OpenAI-compatible endpoint (OpenAI, Ollama,
// llama.cpp server and the like).
type OpenAIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	AllowAnonymous bool    `yaml:"allow_anonymous"`
	Model          string  `yaml:"model"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
	MaxRetries     int     `yaml:"max_retries"`
	Temperature    float64 `yaml:"temperature,omitempty"`
	MaxTokens      int     `yaml:"max_tokens,omitempty"`
}

// GeminiConfig configures Google Gemini models.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	TaskType  string `yaml:"task_type,omitempty"`
}

// EmbedderConfig selects the embedder: tfidf, openai, ollama or gemini.
// tfidf, the default, scores documents by shared terms only, so a query
// phrased in different words than a document scores 0 and falls under any
// positive similarity threshold. Semantic queries need ollama, openai or
// gemini.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
	Gemini *GeminiConfig `yaml:"gemini,omitempty"`
}

// GeneratorConfig selects the generator: openai, ollama or gemini.
type GeneratorConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
	Gemini *GeminiConfig `yaml:"gemini,omitempty"`
}

// RefusalConfig configures the refusal detector. Without a classifier only
// the phrase check runs.
type RefusalConfig struct {
	ClassifierPath string   `yaml:"classifier_path,omitempty"`
	Phrases        []string `yaml:"phrases,omitempty"`
}

// CacheConfig configures embedding caches. A zero LRU size disables the
// memory cache and an empty SQLite path the disk cache.
type CacheConfig struct {
	LRUSize     int    `yaml:"lru_size"`
	TTLSecs     int    `yaml:"ttl_secs"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	MaxAgeHours int    `yaml:"max_age_hours,omitempty"`
}

// ToolsConfig enables the built-in tools. fetch_page is off by default since
// it lets anyone who can query the engine make it download URLs.
type ToolsConfig struct {
	Calculator        bool `yaml:"calculator"`
	FetchPage         bool `yaml:"fetch_page"`
	FetchMaxChars     int  `yaml:"fetch_max_chars"`
	FetchTimeoutSecs  int  `yaml:"fetch_timeout_secs"`
	FetchAllowPrivate bool `yaml:"fetch_allow_private"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig mirrors the arguments of the logger initialiser.
type LogConfig struct {
	File      string `yaml:"file"`
	Level     string `yaml:"level"`
	FileCount int    `yaml:"file_count"`
	FileSize  int    `yaml:"file_size"`
	KeepDays  int    `yaml:"keep_days"`
	Console   bool   `yaml:"console"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Engine       domain.Settings `yaml:"engine"`
	Embedder     EmbedderConfig  `yaml:"embedder"`
	Generator    GeneratorConfig `yaml:"generator"`
	Refusal      RefusalConfig   `yaml:"refusal"`
	Cache        CacheConfig     `yaml:"cache"`
	Tools        ToolsConfig     `yaml:"tools"`
	Server       ServerConfig    `yaml:"server"`
	Log          LogConfig       `yaml:"log"`
	SystemPrompt string          `yaml:"system_prompt"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Keys missing from the file keep their default values.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := baseConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./teapot.yaml first, then ~/.config/teapot/config.yaml.
// If neither exists, it writes defaults to ~/.config/teapot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "teapot.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "teapot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := baseConfig()
	applyConfigDefaults(cfg)
	return cfg
}

// baseConfig holds the defaults that do not depend on the selected providers.
func baseConfig() *AppConfig {
	return &AppConfig{
		Engine:       domain.DefaultSettings(),
		Embedder:     EmbedderConfig{Type: "tfidf"},
		Generator:    GeneratorConfig{Type: "ollama"},
		Cache:        CacheConfig{LRUSize: 4096, TTLSecs: 3600},
		Tools:        ToolsConfig{Calculator: true, FetchMaxChars: 4000, FetchTimeoutSecs: 15},
		Server:       ServerConfig{Addr: "127.0.0.1:8080"},
		Log:          LogConfig{Level: "info", FileCount: 5, FileSize: 50, KeepDays: 7, Console: true},
		SystemPrompt: defaultSystemPrompt,
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = cfg.Engine.LogLevel
	}
	switch cfg.Embedder.Type {
	case "openai":
		cfg.Embedder.OpenAI = openAIDefaults(cfg.Embedder.OpenAI, defaultOpenAIBaseURL, "text-embedding-3-small", false)
	case "ollama":
		cfg.Embedder.OpenAI = openAIDefaults(cfg.Embedder.OpenAI, defaultOllamaBaseURL, "nomic-embed-text", true)
	case "gemini":
		cfg.Embedder.Gemini = geminiDefaults(cfg.Embedder.Gemini, "text-embedding-004")
	}
	switch cfg.Generator.Type {
	case "openai":
		cfg.Generator.OpenAI = openAIDefaults(cfg.Generator.OpenAI, defaultOpenAIBaseURL, "gpt-4o-mini", false)
	case "ollama":
		cfg.Generator.OpenAI = openAIDefaults(cfg.Generator.OpenAI, defaultOllamaBaseURL, "llama3.2", true)
	case "gemini":
		cfg.Generator.Gemini = geminiDefaults(cfg.Generator.Gemini, "gemini-2.0-flash")
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
}

func openAIDefaults(c *OpenAIConfig, baseURL, model string, anonymous bool) *OpenAIConfig {
	if c == nil {
		c = &OpenAIConfig{AllowAnonymous: anonymous}
	}
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	return c
}

func geminiDefaults(c *GeminiConfig, model string) *GeminiConfig {
	if c == nil {
		c = &GeminiConfig{}
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	return c
}
