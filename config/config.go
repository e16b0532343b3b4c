package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	JWT      JWTConfig
	Log      LogConfig
	Kafka    KafkaConfig
}

type ServerConfig struct {
	HTTPPort       int
	GRpcPort       int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

// CacheConfig selects the backend of the shared ephemeral cache. The memory
// driver is only suitable for a single gateway instance.
type CacheConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type GatewayConfig struct {
	InstanceID          string
	HeartbeatInterval   time.Duration
	IdentifyTimeout     time.Duration
	HandlerTimeout      time.Duration
	WriteWait           time.Duration
	SendBufferSize      int
	MaxFrameSize        int64
	MaxTopicsPerConn    int
	PresenceTTL         time.Duration
	VoiceStateTTL       time.Duration
	MusicStateTTL       time.Duration
	MusicHistorySize    int
	MusicConfigCacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers              []string
	ProducerRetryMax     int
	ProducerRequiredAcks int
	Enabled              bool
	ConsumerGroupID      string
}

type JWTConfig struct {
	Secret string
}

type LogConfig struct {
	Level    string
	Mode     string
	Encoding string
}

func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			HTTPPort:       getEnvAsInt("SERVER_HTTP_PORT", 8080),
			GRpcPort:       getEnvAsInt("SERVER_GRPC_PORT", 50057),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getEnvAsSlice("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 20),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Cache: CacheConfig{
			Driver: getEnv("CACHE_DRIVER", CacheDriverRedis),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DATABASE_DRIVER", "postgres"),
			DSN:             getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=chat port=5432 sslmode=disable"),
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Gateway: GatewayConfig{
			InstanceID:          getEnv("GATEWAY_INSTANCE_ID", ""),
			HeartbeatInterval:   getEnvAsDuration("GATEWAY_HEARTBEAT_INTERVAL", 30*time.Second),
			IdentifyTimeout:     getEnvAsDuration("GATEWAY_IDENTIFY_TIMEOUT", 15*time.Second),
			HandlerTimeout:      getEnvAsDuration("GATEWAY_HANDLER_TIMEOUT", 5*time.Second),
			WriteWait:           getEnvAsDuration("GATEWAY_WRITE_WAIT", 10*time.Second),
			SendBufferSize:      getEnvAsInt("GATEWAY_SEND_BUFFER_SIZE", 256),
			MaxFrameSize:        int64(getEnvAsInt("GATEWAY_MAX_FRAME_SIZE", 64*1024)),
			MaxTopicsPerConn:    getEnvAsInt("GATEWAY_MAX_TOPICS_PER_CONN", 1000),
			PresenceTTL:         getEnvAsDuration("GATEWAY_PRESENCE_TTL", 60*time.Second),
			VoiceStateTTL:       getEnvAsDuration("GATEWAY_VOICE_STATE_TTL", 24*time.Hour),
			MusicStateTTL:       getEnvAsDuration("GATEWAY_MUSIC_STATE_TTL", 24*time.Hour),
			MusicHistorySize:    getEnvAsInt("GATEWAY_MUSIC_HISTORY_SIZE", 50),
			MusicConfigCacheTTL: getEnvAsDuration("GATEWAY_MUSIC_CONFIG_CACHE_TTL", 30*time.Second),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "jwt-secret"),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Mode:     getEnv("LOG_MODE", "development"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
		Kafka: KafkaConfig{
			Brokers:              getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			ProducerRetryMax:     getEnvAsInt("KAFKA_PRODUCER_RETRY_MAX", 3),
			ProducerRequiredAcks: getEnvAsInt("KAFKA_PRODUCER_REQUIRED_ACKS", 1),
			Enabled:              getEnvAsBool("KAFKA_ENABLED", true),
			ConsumerGroupID:      getEnv("KAFKA_CONSUMER_GROUP_ID", "chat-gateway"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}

	if c.Server.GRpcPort <= 0 || c.Server.GRpcPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRpcPort)
	}

	switch c.Cache.Driver {
	case CacheDriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
	case CacheDriverMemory:
	default:
		return fmt.Errorf("unknown cache driver: %q", c.Cache.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	if c.Gateway.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}

	if c.Gateway.SendBufferSize <= 0 {
		return fmt.Errorf("send buffer size must be positive")
	}

	if c.Gateway.MusicHistorySize <= 0 {
		return fmt.Errorf("music history size must be positive")
	}

	if c.JWT.Secret == "" || c.JWT.Secret == "jwt-secret" {
		if c.Env == "production" {
			return fmt.Errorf("JWT secret must be set in production")
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
