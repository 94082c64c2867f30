package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cookie modes understood by the route gate.
const (
	CookieModeShared = "shared"
	CookieModeSplit  = "split"
)

// Config aggregates runtime configuration for the gateway.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Gate     GateConfig
	Backend  BackendConfig
	Realtime RealtimeConfig
	Session  SessionConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	FrontendOrigin        string
}

// PostgresConfig holds DB connection values for the session journal.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Disabled bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// GateConfig describes the route classification table and redirect targets.
type GateConfig struct {
	CookieMode          string
	SharedCookie        string
	UserCookie          string
	AstrologerCookie    string
	UserProtected       []string
	AstrologerProtected []string
	UserAuth            []string
	AstrologerAuth      []string
	Excluded            []string
	UserLoginPath       string
	AstrologerLoginPath string
	UserLandingPath     string
	AstrologerLanding   string
	RedirectQueryKey    string
}

// BackendConfig locates the REST backend.
type BackendConfig struct {
	APIOrigin             string
	APIPathSuffix         string
	TimeoutSeconds        int
	UserProfilePath       string
	AstrologerProfilePath string
	UserLogoutPath        string
	AstrologerLogoutPath  string
	CartItemsPath         string
	CartCountPath         string
	CartAddPath           string
}

// RealtimeConfig controls the chat socket.
type RealtimeConfig struct {
	Path                  string
	ConnectTimeoutSeconds int
}

// SessionConfig controls the browsing-session registry.
type SessionConfig struct {
	IdleTTLMinutes         int
	JanitorIntervalSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "astro-gateway"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			FrontendOrigin:        getEnv("FRONTEND_ORIGIN", ""),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Disabled: getEnvAsBool("REDIS_DISABLED", false),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Gate: GateConfig{
			CookieMode:       strings.ToLower(getEnv("GATE_COOKIE_MODE", CookieModeShared)),
			SharedCookie:     getEnv("GATE_COOKIE_NAME", "token"),
			UserCookie:       getEnv("GATE_USER_COOKIE_NAME", "user_token"),
			AstrologerCookie: getEnv("GATE_ASTROLOGER_COOKIE_NAME", "astrologer_token"),
			UserProtected: getEnvAsList("GATE_USER_PROTECTED", []string{
				"/profile", "/cart", "/checkout", "/orders", "/wallet", "/kundli/my", "/chat",
			}),
			AstrologerProtected: getEnvAsList("GATE_ASTROLOGER_PROTECTED", []string{
				"/astrologer/dashboard", "/astrologer/profile", "/astrologer/live", "/astrologer/chat",
			}),
			UserAuth: getEnvAsList("GATE_USER_AUTH", []string{
				"/auth/login", "/auth/register", "/auth/forgot-password",
			}),
			AstrologerAuth: getEnvAsList("GATE_ASTROLOGER_AUTH", []string{
				"/astrologer/auth/login", "/astrologer/auth/register",
			}),
			Excluded: getEnvAsList("GATE_EXCLUDED", []string{
				"/api", "/health", "/_next/static", "/_next/image", "/images", "/static", "/favicon.ico",
			}),
			UserLoginPath:       getEnv("GATE_USER_LOGIN_PATH", "/auth/login"),
			AstrologerLoginPath: getEnv("GATE_ASTROLOGER_LOGIN_PATH", "/astrologer/auth/login"),
			UserLandingPath:     getEnv("GATE_USER_LANDING_PATH", "/"),
			AstrologerLanding:   getEnv("GATE_ASTROLOGER_LANDING_PATH", "/astrologer/dashboard"),
			RedirectQueryKey:    getEnv("GATE_REDIRECT_QUERY_KEY", "redirect"),
		},
		Backend: BackendConfig{
			APIOrigin:             getEnv("BACKEND_API_ORIGIN", "http://127.0.0.1:5000/api/v1"),
			APIPathSuffix:         getEnv("BACKEND_API_PATH_SUFFIX", "/api/v1"),
			TimeoutSeconds:        getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 10),
			UserProfilePath:       getEnv("BACKEND_USER_PROFILE_PATH", "/user/profile"),
			AstrologerProfilePath: getEnv("BACKEND_ASTROLOGER_PROFILE_PATH", "/astrologer/profile"),
			UserLogoutPath:        getEnv("BACKEND_USER_LOGOUT_PATH", "/user/logout"),
			AstrologerLogoutPath:  getEnv("BACKEND_ASTROLOGER_LOGOUT_PATH", "/astrologer/logout"),
			CartItemsPath:         getEnv("BACKEND_CART_ITEMS_PATH", "/cart"),
			CartCountPath:         getEnv("BACKEND_CART_COUNT_PATH", "/cart/count"),
			CartAddPath:           getEnv("BACKEND_CART_ADD_PATH", "/cart/add"),
		},
		Realtime: RealtimeConfig{
			Path:                  getEnv("REALTIME_PATH", "/socket.io/"),
			ConnectTimeoutSeconds: getEnvAsInt("REALTIME_CONNECT_TIMEOUT_SECONDS", 5),
		},
		Session: SessionConfig{
			IdleTTLMinutes:         getEnvAsInt("SESSION_IDLE_TTL_MINUTES", 60),
			JanitorIntervalSeconds: getEnvAsInt("SESSION_JANITOR_INTERVAL_SECONDS", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the gate cannot act on.
func (c *Config) Validate() error {
	g := c.Gate
	switch g.CookieMode {
	case CookieModeShared:
		if g.SharedCookie == "" {
			return errors.New("GATE_COOKIE_NAME must not be empty")
		}
	case CookieModeSplit:
		if g.UserCookie == "" || g.AstrologerCookie == "" {
			return errors.New("split cookie mode requires both role cookie names")
		}
	default:
		return fmt.Errorf("unknown GATE_COOKIE_MODE %q", g.CookieMode)
	}

	for name, path := range map[string]string{
		"GATE_USER_LOGIN_PATH":         g.UserLoginPath,
		"GATE_ASTROLOGER_LOGIN_PATH":   g.AstrologerLoginPath,
		"GATE_USER_LANDING_PATH":       g.UserLandingPath,
		"GATE_ASTROLOGER_LANDING_PATH": g.AstrologerLanding,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must start with '/': %q", name, path)
		}
	}
	if g.RedirectQueryKey == "" {
		return errors.New("GATE_REDIRECT_QUERY_KEY must not be empty")
	}
	if c.Backend.APIOrigin == "" {
		return errors.New("BACKEND_API_ORIGIN must not be empty")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call backend timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// ConnectTimeout bounds how long a dial waits for the socket to come up.
func (r RealtimeConfig) ConnectTimeout() time.Duration {
	if r.ConnectTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.ConnectTimeoutSeconds) * time.Second
}

// IdleTTL is how long an untouched browsing session is kept.
func (s SessionConfig) IdleTTL() time.Duration {
	if s.IdleTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.IdleTTLMinutes) * time.Minute
}

// JanitorInterval is the sweep period for idle sessions.
func (s SessionConfig) JanitorInterval() time.Duration {
	if s.JanitorIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.JanitorIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
