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

const (
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"

	minSecretLen = 32
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Storage
	Backend          string        // "postgres" | "supabase"
	PostgresDSN      string        // required when Backend=postgres
	DBConnectTimeout time.Duration // total time to wait for postgres at startup
	SupabaseURL      string        // required when Backend=supabase
	SupabaseKey      string        // service role key, required when Backend=supabase

	// Redis (change feed + token revocation)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Auth
	JWTSecret          string        // HS256 key, at least 32 bytes
	TokenTTL           time.Duration // session token lifetime
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string // ex: https://keeper.domain.ext/auth/callback

	// Views
	ViewIdleTTL     time.Duration // unmount views untouched for this long
	JanitorInterval time.Duration // how often idle views are swept

	// Scheduled import (optional, empty file = disabled)
	ImportFile     string        // path to a Homepage bookmarks.yaml
	ImportOwner    string        // user id receiving the imported bookmarks
	ImportInterval time.Duration // re-import interval

	// Access
	AllowedOrigins  []string // CORS origins for the dashboard
	AllowedHosts    []string // optional, restrict ops endpoints to these Host headers
	AllowedCIDRS    []string // optional, restrict ops endpoints to these IPs/CIDRs
	TrustProxy      bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	RateLimitBurst  int      // per client burst on write endpoints
	RateLimitPerMin int      // per client refill rate on write endpoints
}

func Load() *Config {
	// A missing .env is fine: production passes real environment variables.
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("KEEPER_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("KEEPER_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("KEEPER_LOG_LEVEL", "info"),
		PrettyLog: mustBool("KEEPER_PRETTY_LOG", true),

		// Storage
		Backend:          strings.ToLower(getenv("KEEPER_BACKEND", BackendPostgres)),
		PostgresDSN:      getenv("KEEPER_POSTGRES_DSN", ""),
		DBConnectTimeout: mustDuration("KEEPER_DB_CONNECT_TIMEOUT", 30*time.Second),
		SupabaseURL:      getenv("KEEPER_SUPABASE_URL", ""),
		SupabaseKey:      getenv("KEEPER_SUPABASE_KEY", ""),

		// Redis settings
		RedisAddr:             requireEnv("KEEPER_REDIS_ADDR"),
		RedisUser:             getenv("KEEPER_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("KEEPER_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("KEEPER_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("KEEPER_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Auth
		JWTSecret:          requireEnv("KEEPER_JWT_SECRET"),
		TokenTTL:           mustDuration("KEEPER_TOKEN_TTL", 12*time.Hour),
		GoogleClientID:     requireEnv("KEEPER_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: requireEnv("KEEPER_GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  requireEnv("KEEPER_GOOGLE_REDIRECT_URL"),

		// Views
		ViewIdleTTL:     mustDuration("KEEPER_VIEW_IDLE_TTL", 30*time.Minute),
		JanitorInterval: mustDuration("KEEPER_JANITOR_INTERVAL", time.Minute),

		// Scheduled import
		ImportFile:     getenv("KEEPER_IMPORT_FILE", ""),
		ImportOwner:    getenv("KEEPER_IMPORT_OWNER", ""),
		ImportInterval: mustDuration("KEEPER_IMPORT_INTERVAL", 24*time.Hour),

		// Access restrictions
		AllowedOrigins:  splitAndTrim(getenv("KEEPER_ALLOWED_ORIGINS", "")),
		AllowedHosts:    splitAndTrim(getenv("KEEPER_ALLOWED_HOSTS", "")),
		AllowedCIDRS:    parseAllowedIPs(getenv("KEEPER_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("KEEPER_TRUST_PROXY", true),
		RateLimitBurst:  getenvInt("KEEPER_RATE_LIMIT_BURST", 20),
		RateLimitPerMin: getenvInt("KEEPER_RATE_LIMIT_PER_MIN", 60),
	}

	cfg.validate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// validate panics on inconsistent settings, like a missing required variable.
func (c *Config) validate() {
	switch c.Backend {
	case BackendPostgres:
		if c.PostgresDSN == "" {
			panic("❌ FATAL: KEEPER_POSTGRES_DSN is required when KEEPER_BACKEND=postgres")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			panic("❌ FATAL: KEEPER_SUPABASE_URL and KEEPER_SUPABASE_KEY are required when KEEPER_BACKEND=supabase")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown KEEPER_BACKEND %q (want postgres or supabase)", c.Backend))
	}

	if c.RedisPasswordRequired && c.RedisPassword == "" {
		panic("❌ FATAL: KEEPER_REDIS_PASSWORD is required when KEEPER_REDIS_PASSWORD_REQUIRED=true")
	}

	if len(c.JWTSecret) < minSecretLen {
		panic(fmt.Sprintf("❌ FATAL: KEEPER_JWT_SECRET must be at least %d bytes", minSecretLen))
	}

	if c.ImportFile != "" && c.ImportOwner == "" {
		panic("❌ FATAL: KEEPER_IMPORT_OWNER is required when KEEPER_IMPORT_FILE is set")
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	const hidden = "***REDACTED***"
	for _, s := range []*string{&cp.RedisPassword, &cp.JWTSecret, &cp.GoogleClientSecret, &cp.SupabaseKey, &cp.PostgresDSN} {
		if *s != "" {
			*s = hidden
		}
	}
	if cp.RedisUser != "" {
		cp.RedisUser = hidden
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
