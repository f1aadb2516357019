package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret     string
	JWTTTL        time.Duration
	JWTRefreshTTL time.Duration

	LogMode          string
	Location         *time.Location
	BadgeCatalogPath string

	WorkerConcurrency   int
	TaskResultTTL       time.Duration
	ProfileCacheTTL     time.Duration
	LeaderboardCacheTTL time.Duration

	AnthropicModel  string
	AnthropicAPIKey string
	MockGenerator   bool
	UseCLIGenerator bool
	ClaudeCLIPath   string

	CORSAllowedOrigins []string
}

// NewViper returns a viper instance reading the process environment with
// every default registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "skillforge")
	v.SetDefault("DB_PASSWORD", "skillforge")
	v.SetDefault("DB_NAME", "skillforge")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", 72*time.Hour)
	v.SetDefault("JWT_REFRESH_TTL", 7*24*time.Hour)
	v.SetDefault("LOG_MODE", "dev")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("BADGE_CATALOG_PATH", "")
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("TASK_RESULT_TTL", time.Hour)
	v.SetDefault("PROFILE_CACHE_TTL", time.Hour)
	v.SetDefault("LEADERBOARD_CACHE_TTL", 5*time.Minute)
	v.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("MOCK_GENERATOR", false)
	v.SetDefault("USE_CLI_GENERATOR", false)
	v.SetDefault("CLAUDE_CLI_PATH", "claude")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	return v
}

// Load reads the environment into a Config.
func Load() (*Config, error) {
	return FromViper(NewViper())
}

func FromViper(v *viper.Viper) (*Config, error) {
	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", v.GetString("TIMEZONE"), err)
	}

	cfg := &Config{
		Port:                v.GetString("PORT"),
		DBHost:              v.GetString("DB_HOST"),
		DBPort:              v.GetString("DB_PORT"),
		DBUser:              v.GetString("DB_USER"),
		DBPassword:          v.GetString("DB_PASSWORD"),
		DBName:              v.GetString("DB_NAME"),
		DBSSLMode:           v.GetString("DB_SSLMODE"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTTTL:              v.GetDuration("JWT_TTL"),
		JWTRefreshTTL:       v.GetDuration("JWT_REFRESH_TTL"),
		LogMode:             v.GetString("LOG_MODE"),
		Location:            loc,
		BadgeCatalogPath:    v.GetString("BADGE_CATALOG_PATH"),
		WorkerConcurrency:   v.GetInt("WORKER_CONCURRENCY"),
		TaskResultTTL:       v.GetDuration("TASK_RESULT_TTL"),
		ProfileCacheTTL:     v.GetDuration("PROFILE_CACHE_TTL"),
		LeaderboardCacheTTL: v.GetDuration("LEADERBOARD_CACHE_TTL"),
		AnthropicModel:      v.GetString("ANTHROPIC_MODEL"),
		AnthropicAPIKey:     v.GetString("ANTHROPIC_API_KEY"),
		MockGenerator:       v.GetBool("MOCK_GENERATOR"),
		UseCLIGenerator:     v.GetBool("USE_CLI_GENERATOR"),
		ClaudeCLIPath:       v.GetString("CLAUDE_CLI_PATH"),
		CORSAllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	return cfg, nil
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
