package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIBaseURL is returned when the client is started against a real
// backend without a base URL to talk to.
var ErrMissingAPIBaseURL = errors.New("VIDFRIENDS_API_BASE_URL is not set")

// Object storage modes for the dev API.
const (
	ObjectModePresign = "presign"
	ObjectModeRelay   = "relay"
)

// Config captures the runtime configuration for the clips client and the
// local dev API.
type Config struct {
	APIBaseURL  string
	MockAPI     bool
	MockLatency time.Duration
	HTTPTimeout time.Duration
	RemoteAuth  bool
	LogLevel    string

	AppPort         int
	PublicURL       string
	DatabaseURL     string
	MigrationDir    string
	ObjectMode      string
	ObjectStore     ObjectStoreConfig
	UploadURLTTL    time.Duration
	JWTSecret       string
	DemoEmail       string
	DemoPassword    string
	RateLimitPerMin int
}

// ObjectStoreConfig describes the S3-compatible bucket that receives uploads.
type ObjectStoreConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
	AccessKey     string
	SecretKey     string
}

// Enabled reports whether a bucket has been configured.
func (o ObjectStoreConfig) Enabled() bool {
	return strings.TrimSpace(o.Bucket) != ""
}

// Load reads configuration from environment variables, applying defaults
// suited to local development.
func Load() (Config, error) {
	cfg := Config{
		APIBaseURL:  strings.TrimSuffix(getString("VIDFRIENDS_API_BASE_URL", ""), "/"),
		MockAPI:     getBool("VIDFRIENDS_API_MOCK", false),
		MockLatency: getDuration("VIDFRIENDS_MOCK_LATENCY", 300*time.Millisecond),
		HTTPTimeout: getDuration("VIDFRIENDS_HTTP_TIMEOUT", 30*time.Second),
		RemoteAuth:  getBool("VIDFRIENDS_REMOTE_AUTH", false),
		LogLevel:    getString("VIDFRIENDS_LOG_LEVEL", "info"),

		AppPort:      getInt("VIDFRIENDS_PORT", 8080),
		PublicURL:    strings.TrimSuffix(getString("VIDFRIENDS_PUBLIC_URL", "http://localhost:8080"), "/"),
		DatabaseURL:  getString("VIDFRIENDS_DATABASE_URL", ""),
		MigrationDir: getString("VIDFRIENDS_MIGRATIONS", "migrations"),
		ObjectMode:   strings.ToLower(getString("VIDFRIENDS_OBJECT_MODE", ObjectModeRelay)),
		ObjectStore: ObjectStoreConfig{
			Bucket:        getString("VIDFRIENDS_S3_BUCKET", ""),
			Region:        getString("VIDFRIENDS_S3_REGION", "us-east-1"),
			Endpoint:      getString("VIDFRIENDS_S3_ENDPOINT", ""),
			PublicBaseURL: getString("VIDFRIENDS_S3_PUBLIC_URL", ""),
			AccessKey:     getString("VIDFRIENDS_S3_ACCESS_KEY", ""),
			SecretKey:     getString("VIDFRIENDS_S3_SECRET_KEY", ""),
		},
		UploadURLTTL:    getDuration("VIDFRIENDS_UPLOAD_URL_TTL", 15*time.Minute),
		JWTSecret:       getString("VIDFRIENDS_JWT_SECRET", "vidfriends-dev-secret"),
		DemoEmail:       getString("VIDFRIENDS_DEMO_EMAIL", "alex@example.com"),
		DemoPassword:    getString("VIDFRIENDS_DEMO_PASSWORD", "demo-password"),
		RateLimitPerMin: getInt("VIDFRIENDS_RATE_LIMIT", 30),
	}

	switch cfg.ObjectMode {
	case ObjectModePresign, ObjectModeRelay:
	default:
		return Config{}, fmt.Errorf("unknown object mode %q", cfg.ObjectMode)
	}
	if cfg.ObjectMode == ObjectModePresign && !cfg.ObjectStore.Enabled() {
		return Config{}, errors.New("presign object mode requires VIDFRIENDS_S3_BUCKET")
	}

	return cfg, nil
}

// ValidateClient checks the settings required before any client command
// talks to the backend.
func (c Config) ValidateClient() error {
	if c.MockAPI {
		return nil
	}
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid VIDFRIENDS_API_BASE_URL %q", c.APIBaseURL)
	}
	return nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
