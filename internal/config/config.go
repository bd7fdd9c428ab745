package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure"`

	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	GoogleRedirectURL  string `yaml:"google_redirect_url"`

	RabbitURL         string `yaml:"rabbit_url"`
	RabbitExchange    string `yaml:"rabbit_exchange"`
	RabbitQueue       string `yaml:"rabbit_queue"`
	RabbitConcurrency int    `yaml:"rabbit_concurrency"`

	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	CORSOrigins     []string `yaml:"cors_origins"`

	// StrictBorrowTransitions rejects returned -> borrowed. Off restores the permissive
	// overwrite older clients relied on.
	StrictBorrowTransitions bool `yaml:"strict_borrow_transitions"`

	LogProd   bool `yaml:"log_prod"`
	DDEnabled bool `yaml:"dd_enabled"`
}

// Load reads .env (if present), then environment variables, then the optional YAML file
// named by CONFIG_FILE, whose non-zero values win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:     getenv("APP_PORT", "8080"),
		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "library"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SessionSecret: getenv("SESSION_SECRET", "dev_session_secret"),
		SessionTTL:    time.Duration(atoi(getenv("SESSION_TTL_HOURS", "24"))) * time.Hour,
		CookieSecure:  getbool("COOKIE_SECURE", false),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getenv("GOOGLE_OAUTH_REDIRECT_URL", "http://localhost:8080/api/session/oauth/google"),

		RabbitURL:         os.Getenv("RABBIT_URL"),
		RabbitExchange:    getenv("RABBIT_EXCHANGE", "library.events"),
		RabbitQueue:       getenv("RABBIT_QUEUE", "library.notify"),
		RabbitConcurrency: atoi(getenv("RABBIT_CONCURRENCY", "4")),

		RateLimitPerMin: atoi(getenv("RATE_LIMIT_PER_MIN", "30")),
		CORSOrigins:     splitCSV(getenv("CORS_ORIGINS", "http://localhost:3000")),

		StrictBorrowTransitions: getbool("BORROW_STRICT_TRANSITIONS", true),

		LogProd:   getbool("LOG_PROD", false),
		DDEnabled: getbool("DD_ENABLED", false),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
