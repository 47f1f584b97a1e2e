package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Session      SessionConfig
	Storage      StorageConfig
	Log          LogConfig
	LLM          LLMConfig
	MADL         MADLConfig
	Runner       RunnerConfig
	Orchestrator OrchestratorConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

// SessionConfig holds session management configuration.
type SessionConfig struct {
	CookieName   string
	CookieSecret string
	Duration     time.Duration
	Secure       bool
}

// StorageConfig holds execution artifact storage configuration.
type StorageConfig struct {
	Type            string        // "local" or "s3"
	BaseDir         string        // For local: "./artifacts"
	S3Bucket        string        // For S3: bucket name
	S3Region        string        // For S3: AWS region
	S3PresignExpiry time.Duration // Presigned URL expiration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
}

// LLMConfig holds model provider configuration for script generation,
// healing, and reusable method extraction.
type LLMConfig struct {
	Provider        string // "openai" or "bedrock"
	OpenAIAPIKey    string
	Model           string
	MaxTokens       int
	BedrockRegion   string
	EmbeddingAPIKey string
	EmbeddingModel  string
}

// MADLConfig holds reusable method index configuration.
type MADLConfig struct {
	IndexPath string
	TopK      int
	MinScore  float64
}

// RunnerConfig holds script subprocess configuration.
type RunnerConfig struct {
	Interpreter string
	Args        []string
	Timeout     time.Duration
	TempDir     string
}

// OrchestratorConfig holds execution pipeline configuration.
type OrchestratorConfig struct {
	EditWait      time.Duration
	SelectionWait time.Duration
	ScriptType    string
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "flux")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("session.cookie_name", "session_id")
	v.SetDefault("session.cookie_secret", "change-this-secret-in-production-min-32-chars")
	v.SetDefault("session.duration", "24h")
	v.SetDefault("session.secure", false)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./artifacts")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_presign_expiry", "15m")

	v.SetDefault("log.level", "info")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.bedrock_region", "us-east-1")
	v.SetDefault("llm.embedding_api_key", "")
	v.SetDefault("llm.embedding_model", "gemini-embedding-001")

	v.SetDefault("madl.index_path", "./madl.db")
	v.SetDefault("madl.top_k", 5)
	v.SetDefault("madl.min_score", 0.6)

	v.SetDefault("runner.interpreter", "python3")
	v.SetDefault("runner.args", []string{"-u"})
	v.SetDefault("runner.timeout", "5m")
	v.SetDefault("runner.temp_dir", "")

	v.SetDefault("orchestrator.edit_wait", "30s")
	v.SetDefault("orchestrator.selection_wait", "30s")
	v.SetDefault("orchestrator.script_type", "web")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	// Parse configuration
	var config Config

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")

	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Session.CookieName = v.GetString("session.cookie_name")
	config.Session.CookieSecret = v.GetString("session.cookie_secret")
	config.Session.Duration = v.GetDuration("session.duration")
	config.Session.Secure = v.GetBool("session.secure")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")
	config.Storage.S3PresignExpiry = v.GetDuration("storage.s3_presign_expiry")

	config.Log.Level = v.GetString("log.level")

	config.LLM.Provider = v.GetString("llm.provider")
	config.LLM.OpenAIAPIKey = v.GetString("llm.openai_api_key")
	config.LLM.Model = v.GetString("llm.model")
	config.LLM.MaxTokens = v.GetInt("llm.max_tokens")
	config.LLM.BedrockRegion = v.GetString("llm.bedrock_region")
	config.LLM.EmbeddingAPIKey = v.GetString("llm.embedding_api_key")
	config.LLM.EmbeddingModel = v.GetString("llm.embedding_model")

	config.MADL.IndexPath = v.GetString("madl.index_path")
	config.MADL.TopK = v.GetInt("madl.top_k")
	config.MADL.MinScore = v.GetFloat64("madl.min_score")

	config.Runner.Interpreter = v.GetString("runner.interpreter")
	config.Runner.Args = v.GetStringSlice("runner.args")
	config.Runner.Timeout = v.GetDuration("runner.timeout")
	config.Runner.TempDir = v.GetString("runner.temp_dir")

	config.Orchestrator.EditWait = v.GetDuration("orchestrator.edit_wait")
	config.Orchestrator.SelectionWait = v.GetDuration("orchestrator.selection_wait")
	config.Orchestrator.ScriptType = v.GetString("orchestrator.script_type")

	return &config, nil
}
