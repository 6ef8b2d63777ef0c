package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the notes service
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Search     SearchConfig     `mapstructure:"search"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LLMConfig describes the text-generation backend and per-stage model routing
type LLMConfig struct {
	Provider string           `mapstructure:"provider"` // ollama, openai
	BaseURL  string           `mapstructure:"base_url"`
	APIKey   string           `mapstructure:"api_key"`
	Timeout  time.Duration    `mapstructure:"timeout"`
	Routing  LLMRoutingConfig `mapstructure:"routing"`
}

// LLMRoutingConfig selects the model used by each pipeline stage. Empty
// entries fall back to Default.
type LLMRoutingConfig struct {
	Default string `mapstructure:"default"`
	Topics  string `mapstructure:"topics"`
	Content string `mapstructure:"content"`
	Simple  string `mapstructure:"simple"`
	Spell   string `mapstructure:"spell"`
}

// Model returns the routed model for a stage, falling back to the default.
func (r LLMRoutingConfig) Model(stage string) string {
	m := ""
	switch stage {
	case "topics":
		m = r.Topics
	case "content":
		m = r.Content
	case "simple":
		m = r.Simple
	case "spell":
		m = r.Spell
	}
	if m == "" {
		m = r.Default
	}
	return m
}

// PipelineConfig tunes the note-synthesis pipeline. TopicBackoff is a fixed
// inter-attempt delay, a deliberate throttle against a transiently overloaded
// backend rather than exponential backoff.
type PipelineConfig struct {
	TopicAttempts   int           `mapstructure:"topic_attempts"`
	TopicBackoff    time.Duration `mapstructure:"topic_backoff"`
	ContentAttempts int           `mapstructure:"content_attempts"`
	Workers         int           `mapstructure:"workers"`
	TopicTimeout    time.Duration `mapstructure:"topic_timeout"`
	ShutdownGrace   time.Duration `mapstructure:"shutdown_grace"`
	SpellCorrection bool          `mapstructure:"spell_correction"`
}

// TranscriptConfig configures transcript acquisition tooling
type TranscriptConfig struct {
	YTDLPPath    string        `mapstructure:"ytdlp_path"`
	FFmpegPath   string        `mapstructure:"ffmpeg_path"`
	WorkDir      string        `mapstructure:"work_dir"`
	SubtitleLang string        `mapstructure:"subtitle_lang"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// StorageConfig groups persistence backends
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN assembles a connection string, preferring an explicit URL.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig contains Redis connection settings shared by the cache, the
// job queue and the scheduler lock
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// QueueConfig contains Redis Streams queue settings
type QueueConfig struct {
	Stream string `mapstructure:"stream"`
	Group  string `mapstructure:"group"`
	MaxLen int64  `mapstructure:"max_len"`
}

// SearchConfig contains full-text index settings
type SearchConfig struct {
	IndexPath string `mapstructure:"index_path"`
}

// TelemetryConfig contains telemetry and cost-tracking settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// LoadConfig reads configuration from yaml files and NOTESMITH_* environment
// variables, applying defaults for every knob.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/notesmith")
	}
	v.SetEnvPrefix("NOTESMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.timeout", 5*time.Minute)
	v.SetDefault("llm.routing.default", "llama3")

	v.SetDefault("pipeline.topic_attempts", 3)
	v.SetDefault("pipeline.topic_backoff", 2*time.Second)
	v.SetDefault("pipeline.content_attempts", 2)
	v.SetDefault("pipeline.workers", 5)
	v.SetDefault("pipeline.topic_timeout", 5*time.Minute)
	v.SetDefault("pipeline.shutdown_grace", 60*time.Second)
	v.SetDefault("pipeline.spell_correction", true)

	v.SetDefault("transcript.ytdlp_path", "yt-dlp")
	v.SetDefault("transcript.ffmpeg_path", "ffmpeg")
	v.SetDefault("transcript.work_dir", "")
	v.SetDefault("transcript.subtitle_lang", "en")
	v.SetDefault("transcript.fetch_timeout", 10*time.Minute)

	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.cache_ttl", 24*time.Hour)

	v.SetDefault("queue.stream", "notes.enqueued")
	v.SetDefault("queue.group", "notes-workers")
	v.SetDefault("queue.max_len", 10000)

	v.SetDefault("search.index_path", "notes.bleve")

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.cost_tracking", true)
}

// Normalize fills derived values that depend on the runtime environment.
func (c *Config) Normalize() {
	if c.Transcript.WorkDir == "" {
		c.Transcript.WorkDir = os.TempDir()
	}
	if c.Server.Address != "" && !strings.Contains(c.Server.Address, ":") {
		c.Server.Address = ":" + c.Server.Address
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.LLM.Provider != "ollama" && c.LLM.Provider != "openai" {
		return fmt.Errorf("llm.provider must be ollama or openai, got %q", c.LLM.Provider)
	}
	if c.LLM.Routing.Default == "" {
		return fmt.Errorf("llm.routing.default is required")
	}
	if c.Pipeline.TopicAttempts < 1 {
		return fmt.Errorf("pipeline.topic_attempts must be >= 1")
	}
	if c.Pipeline.ContentAttempts < 1 {
		return fmt.Errorf("pipeline.content_attempts must be >= 1")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be >= 1")
	}
	if c.Pipeline.TopicTimeout <= 0 {
		return fmt.Errorf("pipeline.topic_timeout must be > 0")
	}
	return nil
}
