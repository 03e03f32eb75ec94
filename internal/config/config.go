package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Runtime modes. Anything other than production enables the plaintext
// passcode echo and direct code comparison.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	JWTSecret string
	JWTIssuer string
	JWTExpiry time.Duration

	FederationProvider string // "google" | "jwks"
	FederationAudience string // identity-provider client id
	FederationJWKSURL  string
	FederationIssuers  []string
	FederationTimeout  time.Duration

	StoreBackend  string // "memory" | "redis" | "dynamo"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SMSProvider string // "log" | "sns"
	SNSRegion   string
	SMSSenderID string

	OTPIssueLimit  int
	OTPIssueWindow time.Duration

	AllowedOrigins    []string // CORS allowed origins
	TrustProxyHeaders bool
	MetricsEnabled    bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Passcodes string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", getEnv("PORT", "8080")),
		AppEnv:  strings.ToLower(getEnv("APP_ENV", getEnv("NODE_ENV", EnvDevelopment))),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "medplusmart-auth"),
		JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_MINUTES", 60)) * time.Minute,

		FederationProvider: strings.ToLower(getEnv("FEDERATION_PROVIDER", "google")),
		FederationAudience: getEnv("GOOGLE_CLIENT_ID", ""),
		FederationJWKSURL:  getEnv("FEDERATION_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		FederationIssuers:  splitList(getEnv("FEDERATION_ISSUERS", "accounts.google.com,https://accounts.google.com")),
		FederationTimeout:  time.Duration(getEnvInt("FEDERATION_TIMEOUT_SECONDS", 5)) * time.Second,

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "otp"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Passcodes: getEnv("DYNAMO_TABLE_PASSCODES", "passcodes"),
		},

		SMSProvider: strings.ToLower(getEnv("SMS_PROVIDER", "log")),
		SNSRegion:   getEnv("SNS_REGION", "us-east-1"),
		SMSSenderID: getEnv("SMS_SENDER_ID", ""),

		OTPIssueLimit:  getEnvInt("OTP_ISSUE_LIMIT", 5),
		OTPIssueWindow: time.Duration(getEnvInt("OTP_ISSUE_WINDOW_MINUTES", 15)) * time.Minute,

		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", getEnv("FRONTEND_URL", "http://localhost:5173"))),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
	}
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Validate checks required settings and enum values.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.FederationAudience == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID is required"))
	}
	if !oneOf(c.AppEnv, EnvDevelopment, EnvTest, EnvProduction) {
		errs = append(errs, fmt.Errorf("APP_ENV %q is not one of development, test, production", c.AppEnv))
	}
	if !oneOf(c.StoreBackend, "memory", "redis", "dynamo") {
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of memory, redis, dynamo", c.StoreBackend))
	}
	if !oneOf(c.FederationProvider, "google", "jwks") {
		errs = append(errs, fmt.Errorf("FEDERATION_PROVIDER %q is not one of google, jwks", c.FederationProvider))
	}
	if !oneOf(c.SMSProvider, "log", "sns") {
		errs = append(errs, fmt.Errorf("SMS_PROVIDER %q is not one of log, sns", c.SMSProvider))
	}
	if c.OTPIssueLimit <= 0 || c.OTPIssueWindow <= 0 {
		errs = append(errs, errors.New("OTP_ISSUE_LIMIT and OTP_ISSUE_WINDOW_MINUTES must be positive"))
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY_MINUTES must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
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

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
