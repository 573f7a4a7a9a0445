package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (선택: 실행 기록 아카이브)
	Database DatabaseConfig

	// Redis (선택: 결과 캐시 / rate limit)
	Redis RedisConfig

	// Engine
	Engine EngineConfig

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// EngineConfig holds allocation engine settings
type EngineConfig struct {
	RequestTimeout time.Duration // 요청당 wall-clock 예산
	Workers        int           // 시나리오 병렬 처리 수
	RefDataPath    string        // 비어 있으면 내장 테이블
	RefDataReload  string        // cron spec, 비어 있으면 리로드 없음
	CacheTTL       time.Duration // 파이프라인 결과 캐시 TTL
}

// APIConfig holds HTTP API settings
type APIConfig struct {
	RateLimitPerMin int
	MaxBodyBytes    int64

	// X-Forwarded-For는 이 대역에서 온 요청에만 신뢰 (비어 있으면 항상 RemoteAddr)
	TrustedProxies []netip.Prefix
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Engine
		Engine: EngineConfig{
			RequestTimeout: getEnvAsDuration("ENGINE_REQUEST_TIMEOUT", "30s"),
			Workers:        getEnvAsInt("ENGINE_WORKERS", 8),
			RefDataPath:    getEnv("ENGINE_REFDATA_PATH", ""),
			RefDataReload:  getEnv("ENGINE_REFDATA_RELOAD", ""),
			CacheTTL:       getEnvAsDuration("ENGINE_CACHE_TTL", "10m"),
		},

		// API
		API: APIConfig{
			RateLimitPerMin: getEnvAsInt("API_RATE_LIMIT_PER_MIN", 120),
			MaxBodyBytes:    int64(getEnvAsInt("API_MAX_BODY_BYTES", 8<<20)),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	proxies, err := parsePrefixes(getEnv("API_TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: API_TRUSTED_PROXIES: %w", err)
	}
	cfg.API.TrustedProxies = proxies

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are in range
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Engine.RequestTimeout <= 0 {
		return fmt.Errorf("ENGINE_REQUEST_TIMEOUT must be > 0")
	}
	if c.Engine.Workers < 1 || c.Engine.Workers > 256 {
		return fmt.Errorf("ENGINE_WORKERS must be in [1, 256]")
	}
	if c.Engine.RefDataReload != "" && c.Engine.RefDataPath == "" {
		return fmt.Errorf("ENGINE_REFDATA_RELOAD requires ENGINE_REFDATA_PATH")
	}
	if c.API.RateLimitPerMin < 0 {
		return fmt.Errorf("API_RATE_LIMIT_PER_MIN must be >= 0")
	}
	if c.API.MaxBodyBytes <= 0 {
		return fmt.Errorf("API_MAX_BODY_BYTES must be > 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// parsePrefixes reads a comma-separated list of CIDRs or bare IPs
func parsePrefixes(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
