package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port            string
	StoreDriver     string
	PostgresDSN     string
	MigrateOnStart  bool
	MongoURI        string
	MongoDB         string
	AllowedOrigins  []string
	CSRFProtection  bool
	CookieSecure    bool
	PasswordHash    string
	BcryptCost      int
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port:            getenv("PORT", "3000"),
		StoreDriver:     getenv("STORE_DRIVER", "postgres"),
		PostgresDSN:     getenv("POSTGRES_DSN", ""),
		MigrateOnStart:  getbool("MIGRATE_ON_START", true),
		MongoURI:        getenv("MONGO_URI", ""),
		MongoDB:         getenv("MONGO_DB", "exam_bank"),
		AllowedOrigins:  getlist("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		CSRFProtection:  getbool("CSRF_PROTECTION", false),
		CookieSecure:    getbool("COOKIE_SECURE", false),
		PasswordHash:    getenv("PASSWORD_HASH", "argon2id"),
		BcryptCost:      getint("BCRYPT_COST", 10),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		ShutdownTimeout: getduration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q: want postgres or memory", c.StoreDriver))
	}
	switch c.PasswordHash {
	case "argon2id", "bcrypt":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASH %q: want argon2id or bcrypt", c.PasswordHash))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getint(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getduration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

func getlist(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
