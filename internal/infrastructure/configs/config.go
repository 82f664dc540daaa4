package configs

import (
	"fmt"
	"time"

	"github.com/hilthontt/huddle/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Rooms       RoomsConfig       `koanf:"rooms"`
	WebSocket   WebSocketConfig   `koanf:"ws"`
	Logger      LoggerConfig      `koanf:"logger"`
	Tracing     TracingConfig     `koanf:"tracing"`
	RabbitMQ    RabbitMQConfig    `koanf:"rabbitmq"`
}

type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            uint16        `koanf:"port"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	AllowedHeaders  []string      `koanf:"allowed_headers"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type RateLimiterConfig struct {
	MaxRatePerSecond int           `koanf:"maxRatePerSecond"`
	MaxBurst         int           `koanf:"maxBurst"`
	CacheTTL         time.Duration `koanf:"cacheTTL"`
	SourceHeaderKey  string        `koanf:"sourceHeaderKey"`
	// RedisAddr switches bucket storage to redis so several instances share
	// one budget per client. Empty keeps buckets in memory.
	RedisAddr     string `koanf:"redisAddr"`
	RedisPassword string `koanf:"redisPassword"`
	RedisDB       int    `koanf:"redisDB"`
}

type RoomsConfig struct {
	CodeLength           int           `koanf:"code_length"`
	MaxMembers           int           `koanf:"max_members"`
	MaxBodyLength        int           `koanf:"max_body_length"`
	MaxNameLength        int           `koanf:"max_name_length"`
	HistoryLimit         int           `koanf:"history_limit"`
	CaseInsensitiveNames bool          `koanf:"case_insensitive_names"`
	EchoToSender         bool          `koanf:"echo_to_sender"`
	MaxCodeAttempts      int           `koanf:"max_code_attempts"`
	MaxRooms             int           `koanf:"max_rooms"`
	AbandonedAfter       time.Duration `koanf:"abandoned_after"`
	SweepInterval        time.Duration `koanf:"sweep_interval"`
}

type WebSocketConfig struct {
	SendBuffer        int           `koanf:"send_buffer"`
	ReadLimit         int64         `koanf:"read_limit"`
	WriteWait         time.Duration `koanf:"write_wait"`
	PongWait          time.Duration `koanf:"pong_wait"`
	PingPeriod        time.Duration `koanf:"ping_period"`
	MessagesPerSecond int           `koanf:"messages_per_second"`
	Burst             int           `koanf:"burst"`
}

type LoggerConfig struct {
	FilePath string `koanf:"file_path"`
	Encoding string `koanf:"encoding"`
	Level    string `koanf:"level"`
	Logger   string `koanf:"logger"`
	AppName  string `koanf:"app_name"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
}

type RabbitMQConfig struct {
	Enabled bool   `koanf:"enabled"`
	URI     string `koanf:"uri"`
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.WebSocket.ReadLimit == 0 {
		cfg.WebSocket.ReadLimit = MinReadLimit(cfg.Rooms)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

const (
	// Worst case bytes per rune on the wire: an astral rune escaped as a
	// \uXXXX\uXXXX surrogate pair.
	maxEscapedRuneBytes = 12
	frameOverhead       = 512
)

// MinReadLimit is the smallest websocket read limit that still admits every
// frame the room limits allow, so oversized bodies are rejected with an
// error frame rather than by dropping the connection.
func MinReadLimit(rooms RoomsConfig) int64 {
	runes := max(rooms.MaxBodyLength, rooms.MaxNameLength)
	return int64(runes)*maxEscapedRuneBytes + frameOverhead
}

func (c *Config) Validate() error {
	if c.Rooms.CodeLength < 4 {
		return fmt.Errorf("rooms.code_length must be at least 4, got %d", c.Rooms.CodeLength)
	}
	if c.Rooms.MaxBodyLength <= 0 {
		return fmt.Errorf("rooms.max_body_length must be positive, got %d", c.Rooms.MaxBodyLength)
	}
	if minimum := MinReadLimit(c.Rooms); c.WebSocket.ReadLimit < minimum {
		return fmt.Errorf("ws.read_limit (%d) must be at least %d to fit a rooms.max_body_length message", c.WebSocket.ReadLimit, minimum)
	}
	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("ws.ping_period (%s) must be shorter than ws.pong_wait (%s)", c.WebSocket.PingPeriod, c.WebSocket.PongWait)
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URI == "" {
		return fmt.Errorf("rabbitmq.uri is required when rabbitmq is enabled")
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.shutdown_timeout", 10*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization"})

	// Rate limiter defaults
	setDefault(k, "rateLimiter.maxRatePerSecond", 10)
	setDefault(k, "rateLimiter.maxBurst", 20)
	setDefault(k, "rateLimiter.cacheTTL", 5*time.Minute)
	setDefault(k, "rateLimiter.sourceHeaderKey", "X-Forwarded-For")

	// Room defaults
	setDefault(k, "rooms.code_length", 6)
	setDefault(k, "rooms.max_members", 0)
	setDefault(k, "rooms.max_body_length", 2000)
	setDefault(k, "rooms.max_name_length", 32)
	setDefault(k, "rooms.history_limit", 0)
	setDefault(k, "rooms.case_insensitive_names", false)
	setDefault(k, "rooms.echo_to_sender", true)
	setDefault(k, "rooms.max_code_attempts", 32)
	setDefault(k, "rooms.max_rooms", 0)
	setDefault(k, "rooms.abandoned_after", 10*time.Minute)
	setDefault(k, "rooms.sweep_interval", time.Minute)

	// WebSocket defaults
	setDefault(k, "ws.send_buffer", 256)
	setDefault(k, "ws.write_wait", 10*time.Second)
	setDefault(k, "ws.pong_wait", 60*time.Second)
	setDefault(k, "ws.ping_period", 54*time.Second)
	setDefault(k, "ws.messages_per_second", 5)
	setDefault(k, "ws.burst", 10)

	// Logger defaults
	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.logger", "zap")
	setDefault(k, "logger.app_name", "huddle")

	// Tracing defaults
	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.endpoint", "localhost:4318")
	setDefault(k, "tracing.service_name", "huddle")
	setDefault(k, "tracing.environment", "development")

	setDefault(k, "rabbitmq.enabled", false)
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	// Rate limiter config from env
	if maxRate := env.GetInt("RATE_LIMIT_MAX_RATE_PER_SECOND", 0); maxRate > 0 {
		k.Set("rateLimiter.maxRatePerSecond", maxRate)
	}
	if maxBurst := env.GetInt("RATE_LIMIT_MAX_BURST", 0); maxBurst > 0 {
		k.Set("rateLimiter.maxBurst", maxBurst)
	}
	if sourceKey := env.GetString("RATE_LIMIT_SOURCE_HEADER_KEY", ""); sourceKey != "" {
		k.Set("rateLimiter.sourceHeaderKey", sourceKey)
	}
	if addr := env.GetString("REDIS_ADDR", ""); addr != "" {
		k.Set("rateLimiter.redisAddr", addr)
	}
	if password := env.GetString("REDIS_PASSWORD", ""); password != "" {
		k.Set("rateLimiter.redisPassword", password)
	}

	// Rooms config from env
	if maxMembers := env.GetInt("ROOM_MAX_MEMBERS", 0); maxMembers > 0 {
		k.Set("rooms.max_members", maxMembers)
	}
	if historyLimit := env.GetInt("ROOM_HISTORY_LIMIT", 0); historyLimit > 0 {
		k.Set("rooms.history_limit", historyLimit)
	}
	if maxRooms := env.GetInt("ROOM_MAX_ROOMS", 0); maxRooms > 0 {
		k.Set("rooms.max_rooms", maxRooms)
	}
	if env.Has("ROOM_CASE_INSENSITIVE_NAMES") {
		k.Set("rooms.case_insensitive_names", env.GetBool("ROOM_CASE_INSENSITIVE_NAMES", false))
	}
	if env.Has("ROOM_ECHO_TO_SENDER") {
		k.Set("rooms.echo_to_sender", env.GetBool("ROOM_ECHO_TO_SENDER", true))
	}

	// Logger config from env
	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}
	if filePath := env.GetString("LOGGER_FILE_PATH", ""); filePath != "" {
		k.Set("logger.file_path", filePath)
	}

	// Tracing config from env
	if endpoint := env.GetString("OTEL_EXPORTER_OTLP_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.enabled", true)
		k.Set("tracing.endpoint", endpoint)
	}
	if environment := env.GetString("ENVIRONMENT", ""); environment != "" {
		k.Set("tracing.environment", environment)
	}

	// RabbitMQ config from env
	if uri := env.GetString("RABBITMQ_URI", ""); uri != "" {
		k.Set("rabbitmq.enabled", true)
		k.Set("rabbitmq.uri", uri)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
