// Package config loads client, dev server and logging settings via viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/and161185/flasheng/internal/logger"
)

// Config holds all settings.
type Config struct {
	API       APIConfig
	Token     TokenConfig
	Queue     QueueConfig
	List      ListConfig
	Log       logger.Config
	Metrics   MetricsConfig
	DevServer DevServerConfig
}

// APIConfig describes the remote API and the HTTP client.
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	ClientID  string
	Version   string
	RateLimit float64 // requests per second, 0 disables
	Burst     int
	Tracing   bool
}

// TokenConfig selects where the bearer token lives.
type TokenConfig struct {
	Store      string // file, redis, memory
	Dir        string // file store directory; empty means XDG default
	Passphrase string // seals the file token when set
	RedisAddr  string
	RedisDB    int
	Key        string
}

// QueueConfig selects the cart contract.
type QueueConfig struct {
	Variant string // cart, practice
}

// ListConfig tunes list-query controllers.
type ListConfig struct {
	Debounce          time.Duration
	CatalogPageSize   int
	FlashcardPageSize int
	OrderPageSize     int
}

// MetricsConfig controls the prometheus exporter.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// DevServerConfig configures the in-memory API server.
type DevServerConfig struct {
	Addr           string
	JWTKey         string
	AccessTTL      time.Duration
	SeedArticles   int
	SeedFlashcards int
	AdminEmail     string
	AdminPassword  string
	Limiter        string // memory, redis
	RedisAddr      string // limiter backend when Limiter is redis
}

// Token store kinds.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Queue variants.
const (
	VariantCart     = "cart"
	VariantPractice = "practice"
)

// Dir returns the per-user config directory ($XDG_CONFIG_HOME/flasheng or ~/.config/flasheng).
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "flasheng")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "flasheng")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:5058/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.client_id", "FlashEng-Web")
	v.SetDefault("api.version", "v1")
	v.SetDefault("api.rate_limit", 0.0)
	v.SetDefault("api.burst", 1)
	v.SetDefault("api.tracing", false)

	v.SetDefault("token.store", StoreFile)
	v.SetDefault("token.dir", "")
	v.SetDefault("token.passphrase", "")
	v.SetDefault("token.redis_addr", "localhost:6379")
	v.SetDefault("token.redis_db", 0)
	v.SetDefault("token.key", "flasheng_token")

	v.SetDefault("queue.variant", VariantCart)

	v.SetDefault("list.debounce", 300*time.Millisecond)
	v.SetDefault("list.catalog_page_size", 12)
	v.SetDefault("list.flashcard_page_size", 12)
	v.SetDefault("list.order_page_size", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9091")

	v.SetDefault("devserver.addr", ":5058")
	v.SetDefault("devserver.jwt_key", "")
	v.SetDefault("devserver.access_ttl", 24*time.Hour)
	v.SetDefault("devserver.seed_articles", 40)
	v.SetDefault("devserver.seed_flashcards", 60)
	v.SetDefault("devserver.admin_email", "admin@flasheng.dev")
	v.SetDefault("devserver.admin_password", "admin123")
	v.SetDefault("devserver.limiter", "memory")
	v.SetDefault("devserver.redis_addr", "localhost:6379")
}

// Load reads configuration.
//
// Priority (highest to lowest):
//  1. Environment variables with FLASHENG_ prefix (e.g., FLASHENG_API_BASE_URL)
//  2. the file at path, or flasheng.yaml in "." or Dir()
//  3. built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("flasheng")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("FLASHENG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	if cfg.Token.Dir == "" {
		cfg.Token.Dir = Dir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading files or env.
// It matches what Load yields with no file and no FLASHENG_ variables,
// except that Token.Dir stays empty and resolves to Dir() when used.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

// fromViper decodes every setting from v.
func fromViper(v *viper.Viper) *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   v.GetString("api.base_url"),
			Timeout:   v.GetDuration("api.timeout"),
			ClientID:  v.GetString("api.client_id"),
			Version:   v.GetString("api.version"),
			RateLimit: v.GetFloat64("api.rate_limit"),
			Burst:     v.GetInt("api.burst"),
			Tracing:   v.GetBool("api.tracing"),
		},
		Token: TokenConfig{
			Store:      strings.ToLower(v.GetString("token.store")),
			Dir:        v.GetString("token.dir"),
			Passphrase: v.GetString("token.passphrase"),
			RedisAddr:  v.GetString("token.redis_addr"),
			RedisDB:    v.GetInt("token.redis_db"),
			Key:        v.GetString("token.key"),
		},
		Queue: QueueConfig{Variant: strings.ToLower(v.GetString("queue.variant"))},
		List: ListConfig{
			Debounce:          v.GetDuration("list.debounce"),
			CatalogPageSize:   v.GetInt("list.catalog_page_size"),
			FlashcardPageSize: v.GetInt("list.flashcard_page_size"),
			OrderPageSize:     v.GetInt("list.order_page_size"),
		},
		Log: logger.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
		},
		DevServer: DevServerConfig{
			Addr:           v.GetString("devserver.addr"),
			JWTKey:         v.GetString("devserver.jwt_key"),
			AccessTTL:      v.GetDuration("devserver.access_ttl"),
			SeedArticles:   v.GetInt("devserver.seed_articles"),
			SeedFlashcards: v.GetInt("devserver.seed_flashcards"),
			AdminEmail:     v.GetString("devserver.admin_email"),
			AdminPassword:  v.GetString("devserver.admin_password"),
			Limiter:        strings.ToLower(v.GetString("devserver.limiter")),
			RedisAddr:      v.GetString("devserver.redis_addr"),
		},
	}
}

// Validate checks the settings the client cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid api.base_url %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("config: api.timeout must be positive")
	}
	if c.API.RateLimit < 0 {
		return errors.New("config: api.rate_limit must not be negative")
	}
	switch c.Token.Store {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("config: unknown token.store %q", c.Token.Store)
	}
	switch c.Queue.Variant {
	case VariantCart, VariantPractice:
	default:
		return fmt.Errorf("config: unknown queue.variant %q", c.Queue.Variant)
	}
	if c.List.Debounce < 0 {
		return errors.New("config: list.debounce must not be negative")
	}
	return nil
}
