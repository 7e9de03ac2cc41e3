package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/example/coaching-booking/internal/application"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "COACHING"

// Config captures the settings of the coaching booking service.
type Config struct {
	HTTPPort           int
	SQLitePath         string
	AdminTokenHash     string
	Location           *time.Location
	SlotGranularity    int
	BookingHorizonDays int
	SlotCacheTTL       time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	RateLimitBurst     int
	LogLevel           slog.Level
}

var defaults = map[string]any{
	"HTTP_PORT":                8080,
	"SQLITE_PATH":              "coaching.db",
	"ADMIN_TOKEN_HASH":         "",
	"TIMEZONE":                 "UTC",
	"SLOT_GRANULARITY_MINUTES": 30,
	"BOOKING_HORIZON_DAYS":     90,
	"SLOT_CACHE_TTL":           "30s",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"CORS_ALLOWED_ORIGINS":     "*",
	"RATE_LIMIT_PER_MINUTE":    30,
	"RATE_LIMIT_BURST":         5,
	"LOG_LEVEL":                "info",
}

// Load reads configuration from the working directory: an optional .env file,
// an optional coaching.yaml and COACHING_* environment variables, in
// increasing order of precedence.
func Load() (Config, error) {
	return LoadDir(".")
}

// LoadDir is Load with .env and coaching.yaml resolved relative to dir.
//
// Missing required keys are reported before invalid ones, each as a single
// error naming every offending key.
func LoadDir(dir string) (Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("coaching")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read coaching.yaml: %w", err)
		}
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)
	p := parser{v: v, invalid: &invalid}

	cfg := Config{
		HTTPPort:           p.intInRange("HTTP_PORT", 1, 65535),
		SQLitePath:         strings.TrimSpace(v.GetString("SQLITE_PATH")),
		SlotGranularity:    p.intInRange("SLOT_GRANULARITY_MINUTES", 5, 240),
		BookingHorizonDays: p.intInRange("BOOKING_HORIZON_DAYS", 1, 3650),
		SlotCacheTTL:       p.duration("SLOT_CACHE_TTL"),
		RedisAddr:          strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            p.intInRange("REDIS_DB", 0, 1024),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMinute: p.intInRange("RATE_LIMIT_PER_MINUTE", 1, 100000),
		RateLimitBurst:     p.intInRange("RATE_LIMIT_BURST", 1, 100000),
	}

	if cfg.SQLitePath == "" {
		missing = append(missing, envName("SQLITE_PATH"))
	}

	if hash := strings.TrimSpace(v.GetString("ADMIN_TOKEN_HASH")); hash == "" {
		missing = append(missing, envName("ADMIN_TOKEN_HASH"))
	} else if err := application.ValidateAdminTokenHash(hash); err != nil {
		invalid = append(invalid, envName("ADMIN_TOKEN_HASH"))
	} else {
		cfg.AdminTokenHash = hash
	}

	if loc, err := time.LoadLocation(strings.TrimSpace(v.GetString("TIMEZONE"))); err != nil {
		invalid = append(invalid, envName("TIMEZONE"))
	} else {
		cfg.Location = loc
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(v.GetString("LOG_LEVEL")))); err != nil {
		invalid = append(invalid, envName("LOG_LEVEL"))
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// HTTPAddr returns the listen address for the HTTP server.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UsesRedis reports whether slots are cached in Redis instead of in memory.
func (c Config) UsesRedis() bool {
	return c.RedisAddr != ""
}

type parser struct {
	v       *viper.Viper
	invalid *[]string
}

func (p parser) intInRange(key string, lower, upper int) int {
	raw := strings.TrimSpace(p.v.GetString(key))
	value, err := strconv.Atoi(raw)
	if err != nil || value < lower || value > upper {
		*p.invalid = append(*p.invalid, envName(key))
		return 0
	}
	return value
}

func (p parser) duration(key string) time.Duration {
	raw := strings.TrimSpace(p.v.GetString(key))
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		*p.invalid = append(*p.invalid, envName(key))
		return 0
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envName(key string) string {
	return EnvPrefix + "_" + key
}
