package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGreeting = "Namaste! 🙏 I'm your BharatVerse AI Guide. I can help you explore India's ecology, culture, stories, and spiritual wisdom. What would you like to discover today?"
	defaultApology  = "I apologize, but I encountered an error. Please try again."
)

type Config struct {
	ServerPort     string
	JWTSecret      string
	AllowedOrigins []string
	Postgres       PostgresConfig
	Mongo          MongoConfig
	Redis          RedisConfig
	Logging        LoggingConfig
	Guide          GuideConfig
	Speech         SpeechConfig
	Archive        ArchiveConfig
}

type PostgresConfig struct {
	DSN               string
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Enabled reports whether transcripts should be archived to MongoDB.
func (m MongoConfig) Enabled() bool {
	return strings.TrimSpace(m.URI) != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

// GuideConfig configures the chat assistant and its completion endpoint.
type GuideConfig struct {
	CompletionURL   string
	APIKey          string
	Greeting        string
	FallbackMessage string
	MaxSessions     int
	SessionIdleTTL  time.Duration
}

// SpeechConfig configures the text-to-speech collaborator. Narration of guide replies
// is skipped when Enabled is false.
type SpeechConfig struct {
	Enabled   bool
	BaseURL   string
	APIKey    string
	VoiceType string
	Format    string
	Timeout   time.Duration
}

type ArchiveConfig struct {
	BoltPath string
}

func LoadConfig() (*Config, error) {
	port := envOrDefault("PORT", "8080")
	jwtSecret := envOrDefault("JWT_SECRET", "dev-secret")

	pgPort, _ := strconv.Atoi(envOrDefault("POSTGRES_PORT", "5432"))
	maxConns := parseInt32(envOrDefault("POSTGRES_MAX_CONNS", "8"), 8)
	minConns := parseInt32(envOrDefault("POSTGRES_MIN_CONNS", "1"), 1)

	logging := LoggingConfig{
		Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "console")),
		Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
		EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
		ServiceName:  envOrDefault("SERVICE_NAME", "bharatverse"),
	}

	speechKey := envOrDefault("SPEECH_API_KEY", os.Getenv("GUIDE_API_KEY"))

	cfg := &Config{
		ServerPort:     port,
		JWTSecret:      jwtSecret,
		AllowedOrigins: parseList(envOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		Postgres: PostgresConfig{
			DSN:               os.Getenv("POSTGRES_DSN"),
			Host:              envOrDefault("POSTGRES_HOST", "localhost"),
			Port:              pgPort,
			User:              envOrDefault("POSTGRES_USER", "postgres"),
			Password:          envOrDefault("POSTGRES_PASSWORD", "postgres"),
			Database:          envOrDefault("POSTGRES_DB", "bharatverse"),
			MaxConns:          maxConns,
			MinConns:          minConns,
			MaxConnLifetime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_LIFETIME", "1h"), time.Hour),
			MaxConnIdleTime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_IDLE", "30m"), 30*time.Minute),
			HealthCheckPeriod: parseDuration(envOrDefault("POSTGRES_HEALTH_CHECK_PERIOD", "1m"), time.Minute),
			ConnectTimeout:    parseDuration(envOrDefault("POSTGRES_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		Mongo: MongoConfig{
			URI:            os.Getenv("MONGO_URI"),
			Database:       envOrDefault("MONGO_DATABASE", "bharatverse"),
			ConnectTimeout: parseDuration(envOrDefault("MONGO_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       int(parseInt32(envOrDefault("REDIS_DB", "0"), 0)),
			Channel:  envOrDefault("REDIS_CHANGE_CHANNEL", "bharatverse:changes"),
		},
		Logging: logging,
		Guide: GuideConfig{
			CompletionURL:   completionURL(),
			APIKey:          envOrDefault("GUIDE_API_KEY", os.Getenv("SUPABASE_PUBLISHABLE_KEY")),
			Greeting:        envOrDefault("GUIDE_GREETING", defaultGreeting),
			FallbackMessage: envOrDefault("GUIDE_FALLBACK_MESSAGE", defaultApology),
			MaxSessions:     int(parseInt32(envOrDefault("GUIDE_MAX_SESSIONS", "1000"), 1000)),
			SessionIdleTTL:  parseDuration(envOrDefault("GUIDE_SESSION_IDLE_TTL", "30m"), 30*time.Minute),
		},
		Speech: SpeechConfig{
			Enabled:   parseBool(envOrDefault("SPEECH_ENABLED", "false"), false),
			BaseURL:   strings.TrimRight(envOrDefault("SPEECH_API_BASE", "https://openai.qiniu.com/v1"), "/"),
			APIKey:    speechKey,
			VoiceType: envOrDefault("SPEECH_VOICE_TYPE", "qiniu_en_female_hwxy"),
			Format:    envOrDefault("SPEECH_FORMAT", "mp3"),
			Timeout:   parseDuration(envOrDefault("SPEECH_TIMEOUT", "60s"), 60*time.Second),
		},
		Archive: ArchiveConfig{
			BoltPath: envOrDefault("ARCHIVE_BOLT_PATH", "data/transcripts.db"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	missing := make([]string, 0, 2)

	if strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Guide.CompletionURL == "" {
		missing = append(missing, "GUIDE_COMPLETION_URL (or SUPABASE_URL)")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Guide.MaxSessions <= 0 {
		return errors.New("GUIDE_MAX_SESSIONS must be positive")
	}

	return nil
}

// completionURL prefers an explicit endpoint and otherwise derives the hosted
// ai-guide function from the project URL.
func completionURL() string {
	if explicit := strings.TrimSpace(os.Getenv("GUIDE_COMPLETION_URL")); explicit != "" {
		return explicit
	}
	base := strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/")
	if base == "" {
		return ""
	}
	return base + "/functions/v1/ai-guide"
}

func (c PostgresConfig) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt32(value string, fallback int32) int32 {
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return int32(i)
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
