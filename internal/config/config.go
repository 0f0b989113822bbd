package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the sumview API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Auth     AuthConfig     `yaml:"auth"`
	Pool     PoolConfig     `yaml:"pool"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Search   SearchConfig   `yaml:"search"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// OpenAIConfig holds AI provider settings.
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	WhisperModel   string `yaml:"whisper_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimensions     int    `yaml:"dimensions"`
	MaxRetries     int    `yaml:"max_retries"`
}

// PoolConfig holds resource pool settings.
type PoolConfig struct {
	// Limits bounds concurrent unit loads per kind (transcriber, summarizer,
	// generator, embedder). Missing kinds fall back to DefaultLimit.
	Limits       map[string]int `yaml:"limits"`
	DefaultLimit int            `yaml:"default_limit"`
	// MaxIdleSec unloads units idle longer than this; 0 disables eviction.
	MaxIdleSec int `yaml:"max_idle_sec"`
	SweepSec   int `yaml:"sweep_sec"`
	// Tier selects the default quality tier for loaded units.
	Tier string `yaml:"tier"`
}

// PipelineConfig holds stage coordinator settings.
type PipelineConfig struct {
	// Weights is the default stage weight table; must sum to 1.0.
	Weights map[string]float64 `yaml:"weights"`
	// MinPublishDelta throttles progress publication: snapshots are pushed
	// only when overall percent moved by at least this much. Boundary and
	// terminal snapshots are always pushed.
	MinPublishDelta float64 `yaml:"min_publish_delta"`
	// StageTimeoutSec bounds each stage; 0 disables the per-stage deadline.
	StageTimeoutSec int `yaml:"stage_timeout_sec"`
}

// SearchConfig holds hybrid retrieval settings.
type SearchConfig struct {
	Alpha float64 `yaml:"alpha"` // semantic weight
	Beta  float64 `yaml:"beta"`  // lexical weight
	// CandidateFactor multiplies the requested limit when querying each backend.
	CandidateFactor int `yaml:"candidate_factor"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	// UploadDir is where uploaded recordings are spooled before processing.
	UploadDir string `yaml:"upload_dir"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// DefaultStageWeights is the stage weight table used when config omits one.
// Matches the reference pipeline: audio extraction is cheap, transcription
// dominates, indexing closes the run.
func DefaultStageWeights() map[string]float64 {
	return map[string]float64{
		"extract":    0.10,
		"transcribe": 0.45,
		"summarize":  0.25,
		"test":       0.10,
		"index":      0.10,
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.OpenAI.WhisperModel == "" {
		c.OpenAI.WhisperModel = "whisper-1"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.Dimensions <= 0 {
		c.OpenAI.Dimensions = 1536
	}
	if c.OpenAI.MaxRetries <= 0 {
		c.OpenAI.MaxRetries = 3
	}
	if c.Pool.DefaultLimit <= 0 {
		c.Pool.DefaultLimit = 1
	}
	if c.Pool.SweepSec <= 0 {
		c.Pool.SweepSec = 60
	}
	if c.Pool.Tier == "" {
		c.Pool.Tier = "small"
	}
	if len(c.Pipeline.Weights) == 0 {
		c.Pipeline.Weights = DefaultStageWeights()
	}
	if c.Pipeline.MinPublishDelta <= 0 {
		c.Pipeline.MinPublishDelta = 1.0
	}
	if c.Search.Alpha == 0 && c.Search.Beta == 0 {
		c.Search.Alpha = 0.7
		c.Search.Beta = 0.3
	}
	if c.Search.CandidateFactor <= 0 {
		c.Search.CandidateFactor = 2
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "sumview:"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = filepath.Join(os.TempDir(), "sumview", "uploads")
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	for kind, limit := range c.Pool.Limits {
		if limit <= 0 {
			return fmt.Errorf("pool.limits.%s must be positive, got %d", kind, limit)
		}
	}
	var sum float64
	for name, w := range c.Pipeline.Weights {
		if w <= 0 || w > 1 {
			return fmt.Errorf("pipeline.weights.%s must be in (0,1], got %g", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("pipeline.weights must sum to 1.0, got %g", sum)
	}
	if c.Search.Alpha < 0 || c.Search.Beta < 0 {
		return fmt.Errorf("search.alpha and search.beta must be non-negative")
	}
	if c.Search.Alpha+c.Search.Beta == 0 {
		return fmt.Errorf("search.alpha and search.beta must not both be zero")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
