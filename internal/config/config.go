package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config application configuration
type Config struct {
	// service
	ServiceName    string
	ServiceVersion string
	Host           string
	Port           string
	GinMode        string
	Debug          bool

	// logging
	LogLevel  string
	LogFormat string // text or json

	// AeroPerk backend
	APIURL       string
	APITimeout   time.Duration
	AppURL       string // public web app, used in links shown to users
	SupportEmail string

	// tool policy
	SearchRequiresAuth bool

	// stdio mode has no HTTP headers, so the token comes from the environment
	AccessToken string

	ShutdownTimeout time.Duration
}

// envPaths are tried in order; the first readable file wins
var envPaths = []string{
	"config/.env",
	".env",
}

// Load reads an optional .env file and then the process environment
func Load() *Config {
	loaded := false
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				logrus.WithField("path", path).Info("Loaded .env file")
				loaded = true
				break
			}
		}
	}
	if !loaded {
		logrus.Debug("No .env file found, using process environment")
	}

	return &Config{
		ServiceName:    getEnv("SERVICE_NAME", "aeroperk-mcp"),
		ServiceVersion: getEnv("SERVICE_VERSION", "1.0.0"),
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("HTTP_SERVER_PORT", getEnv("PORT", "3000")),
		GinMode:        getEnv("GIN_MODE", "release"),
		Debug:          getEnvAsBool("DEBUG", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		APIURL:       getEnv("AEROPERK_API_URL", "https://api.aeroperk.com/api"),
		APITimeout:   getEnvAsDuration("AEROPERK_API_TIMEOUT", 15*time.Second),
		AppURL:       getEnv("AEROPERK_APP_URL", "https://aeroperk.com"),
		SupportEmail: getEnv("SUPPORT_EMAIL", "support@aeroperk.com"),

		SearchRequiresAuth: getEnvAsBool("SEARCH_REQUIRES_AUTH", false),

		AccessToken: getEnv("AEROPERK_ACCESS_TOKEN", ""),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// String renders the config for logs. Secrets are masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"service: %s %s, listen: %s, gin: %s, api: %s, api timeout: %v, app: %s, "+
			"search requires auth: %v, access token: %s",
		c.ServiceName, c.ServiceVersion, c.Addr(), c.GinMode, c.APIURL, c.APITimeout, c.AppURL,
		c.SearchRequiresAuth, maskString(c.AccessToken),
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

// maskString hides all but the edges of a secret
func maskString(input string) string {
	if input == "" {
		return ""
	}
	if len(input) <= 8 {
		return "***"
	}
	return input[:4] + "..." + input[len(input)-4:]
}
