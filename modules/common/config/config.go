package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - all environment-driven settings of the server
type Config struct {
	// Gemini API
	GeminiAPIKey     string
	GeminiTextModel  string
	GeminiImageModel string
	GeminiVideoModel string

	// Video polling
	VideoPollInterval time.Duration
	VideoMaxWait      time.Duration

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL         string
	SupabaseServiceKey  string
	SupabaseVideoBucket string
	ContactTable        string

	// Artifacts
	ArtifactStore string

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Server
	Port string
}

const (
	ArtifactStoreMemory   = "memory"
	ArtifactStoreSupabase = "supabase"
)

// Load - reads .env (if present) and the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup - builds a Config from an arbitrary lookup function
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}

	apiKey := e.get("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = e.get("API_KEY", "")
	}

	pollInterval, err := e.duration("VIDEO_POLL_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	maxWait, err := e.duration("VIDEO_MAX_WAIT", 0)
	if err != nil {
		return nil, err
	}
	useTLS, err := e.bool("REDIS_USE_TLS", false)
	if err != nil {
		return nil, err
	}
	rps, err := e.float("RATE_LIMIT_RPS", 1)
	if err != nil {
		return nil, err
	}
	burst, err := e.int("RATE_LIMIT_BURST", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		GeminiAPIKey:     apiKey,
		GeminiTextModel:  e.get("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: e.get("GEMINI_IMAGE_MODEL", "imagen-4.0-generate-001"),
		GeminiVideoModel: e.get("GEMINI_VIDEO_MODEL", "veo-2.0-generate-001"),

		VideoPollInterval: pollInterval,
		VideoMaxWait:      maxWait,

		RedisHost:     e.get("REDIS_HOST", ""),
		RedisPort:     e.get("REDIS_PORT", "6379"),
		RedisUsername: e.get("REDIS_USERNAME", ""),
		RedisPassword: e.get("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		SupabaseURL:         strings.TrimRight(e.get("SUPABASE_URL", ""), "/"),
		SupabaseServiceKey:  e.get("SUPABASE_SERVICE_KEY", ""),
		SupabaseVideoBucket: e.get("SUPABASE_VIDEO_BUCKET", "portfolio-videos"),
		ContactTable:        e.get("CONTACT_TABLE", "portfolio_contact_messages"),

		ArtifactStore: strings.ToLower(e.get("ARTIFACT_STORE", ArtifactStoreMemory)),

		RateLimitRPS:   rps,
		RateLimitBurst: burst,

		Port: e.get("PORT", "8080"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.GeminiAPIKey == "" {
		log.Println("❌ GEMINI_API_KEY not set, generation endpoints will fail until it is configured")
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Gemini: text=%s image=%s video=%s", cfg.GeminiTextModel, cfg.GeminiImageModel, cfg.GeminiVideoModel)
	log.Printf("   Video poll: every %s (max wait: %s)", cfg.VideoPollInterval, maxWaitLabel(cfg.VideoMaxWait))
	if cfg.RedisEnabled() {
		log.Printf("   Redis: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	} else {
		log.Println("   Redis: disabled, using in-memory job store")
	}
	log.Printf("   Artifacts: %s", cfg.ArtifactStore)
	if cfg.ArtifactsInstanceLocal() {
		log.Println("⚠️  Redis jobs with ARTIFACT_STORE=memory: /blobs URLs only resolve on the instance that polled the job")
	}

	return cfg, nil
}

// validate - checks values that cannot be defaulted
func (c *Config) validate() error {
	if c.VideoPollInterval <= 0 {
		return fmt.Errorf("VIDEO_POLL_INTERVAL must be positive, got %s", c.VideoPollInterval)
	}
	if c.VideoMaxWait < 0 {
		return fmt.Errorf("VIDEO_MAX_WAIT must not be negative, got %s", c.VideoMaxWait)
	}
	switch c.ArtifactStore {
	case ArtifactStoreMemory:
	case ArtifactStoreSupabase:
		if !c.SupabaseEnabled() {
			return fmt.Errorf("ARTIFACT_STORE=supabase requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	default:
		return fmt.Errorf("unknown ARTIFACT_STORE: %s", c.ArtifactStore)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// RedisEnabled - true when a Redis host is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// SupabaseEnabled - true when Supabase credentials are configured
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// ArtifactsInstanceLocal - true when jobs are shared through Redis but videos stay in process memory
func (c *Config) ArtifactsInstanceLocal() bool {
	return c.RedisEnabled() && c.ArtifactStore == ArtifactStoreMemory
}

// GetRedisAddr - host:port for the Redis client
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func maxWaitLabel(d time.Duration) string {
	if d == 0 {
		return "unbounded"
	}
	return d.String()
}

type env struct {
	lookup func(string) (string, bool)
}

// get - environment value with a default
func (e env) get(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func (e env) duration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := e.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func (e env) bool(key string, defaultValue bool) (bool, error) {
	raw := e.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func (e env) int(key string, defaultValue int) (int, error) {
	raw := e.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func (e env) float(key string, defaultValue float64) (float64, error) {
	raw := e.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
