package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment             string
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration

	RefreshCookieName string
	CSRFSecret        string
	CSRFCookieName    string
	CSRFCookieTTL     time.Duration

	// AuthAutoProvision enables the legacy behavior where a failed login
	// creates the account on the fly (and admin@* emails get the admin
	// role). Off unless explicitly requested; it exists for seeded demo
	// environments only.
	AuthAutoProvision bool

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	PublicDir     string
	UploadDir     string
	MinUploadSize int64
	MaxUploadSize int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:             getEnv("ENVIRONMENT", "development"),
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		JWTAccessSecret:         strings.TrimSpace(os.Getenv("JWT_ACCESS_SECRET")),
		JWTRefreshSecret:        strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")),
		JWTAccessTTL:            getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:           getDuration("JWT_REFRESH_TTL", 168*time.Hour),
		RefreshCookieName:       getEnv("REFRESH_COOKIE_NAME", "refreshToken"),
		CSRFSecret:              strings.TrimSpace(os.Getenv("CSRF_SECRET")),
		CSRFCookieName:          getEnv("CSRF_COOKIE_NAME", "x-csrf-token"),
		CSRFCookieTTL:           getDuration("CSRF_COOKIE_TTL", time.Hour),
		AuthAutoProvision:       getBool("AUTH_AUTO_PROVISION", false),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost,http://localhost:5173")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 240),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 60),
		PublicDir:               getEnv("PUBLIC_DIR", "./public"),
		UploadDir:               getEnv("UPLOAD_DIR", "./public/uploads"),
		MinUploadSize:           getInt64("MIN_UPLOAD_SIZE", 2048),
		MaxUploadSize:           getInt64("MAX_UPLOAD_SIZE", 10485760),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTAccessSecret) == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	if strings.TrimSpace(c.JWTRefreshSecret) == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if strings.TrimSpace(c.CSRFSecret) == "" {
		return fmt.Errorf("CSRF_SECRET is required")
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	if c.JWTAccessTTL >= c.JWTRefreshTTL {
		return fmt.Errorf("JWT_ACCESS_TTL must be shorter than JWT_REFRESH_TTL")
	}

	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS cannot be empty")
	}

	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS cannot contain a wildcard: cookies require an explicit allow-list")
		}
	}

	if c.MaxUploadSize <= 0 || c.MinUploadSize < 0 || c.MinUploadSize >= c.MaxUploadSize {
		return fmt.Errorf("upload size window is invalid")
	}

	return nil
}

// IsProduction controls the Secure attribute on session cookies.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
