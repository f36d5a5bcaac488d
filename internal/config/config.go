package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

// Role selects which parts of the service a process runs
type Role string

const (
	RoleAPI    Role = "api"
	RoleWorker Role = "worker"
	RoleAll    Role = "all"
)

const (
	defaultPort              = "8080"
	defaultWorkerConcurrency = 4
	defaultWorkerMaxAttempts = 10
	defaultStatsLockTimeout  = 5 * time.Second
)

type Config struct {
	databaseURL       string
	sentryDSN         string
	port              string
	workerConcurrency int
	workerMaxAttempts int
	statsLockTimeout  time.Duration
	allowedOrigins    []string
	role              Role
	env               environment
}

// DatabaseURL is the postgres connection string. Empty in development means the local default.
func (c *Config) DatabaseURL() string {
	return c.databaseURL
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) WorkerConcurrency() int {
	return c.workerConcurrency
}

func (c *Config) WorkerMaxAttempts() int {
	return c.workerMaxAttempts
}

// StatsLockTimeout bounds the wait for a player row lock while aggregating stats
func (c *Config) StatsLockTimeout() time.Duration {
	return c.statsLockTimeout
}

// AllowedOrigins are the domain suffixes browsers may call the API from
func (c *Config) AllowedOrigins() []string {
	return c.allowedOrigins
}

func (c *Config) Role() Role {
	return c.role
}

func (c *Config) RunsAPI() bool {
	return c.role == RoleAPI || c.role == RoleAll
}

func (c *Config) RunsWorker() bool {
	return c.role == RoleWorker || c.role == RoleAll
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, role: %s, port: %s, workerConcurrency: %d, workerMaxAttempts: %d, statsLockTimeout: %s, ...}",
		string(c.env), string(c.role), c.port, c.workerConcurrency, c.workerMaxAttempts, c.statsLockTimeout,
	)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}
	invalidValue := func(key, value string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, value)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("LILYPAD_ENVIRONMENT")
	if !ok {
		return missingKey("LILYPAD_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return invalidValue("LILYPAD_ENVIRONMENT", rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	role := RoleAll
	if rawRole := os.Getenv("LILYPAD_ROLE"); rawRole != "" {
		switch Role(rawRole) {
		case RoleAPI, RoleWorker, RoleAll:
			role = Role(rawRole)
		default:
			return invalidValue("LILYPAD_ROLE", rawRole)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	workerConcurrency := defaultWorkerConcurrency
	if raw := os.Getenv("WORKER_CONCURRENCY"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return invalidValue("WORKER_CONCURRENCY", raw)
		}
		workerConcurrency = value
	}

	workerMaxAttempts := defaultWorkerMaxAttempts
	if raw := os.Getenv("WORKER_MAX_ATTEMPTS"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return invalidValue("WORKER_MAX_ATTEMPTS", raw)
		}
		workerMaxAttempts = value
	}

	statsLockTimeout := defaultStatsLockTimeout
	if raw := os.Getenv("STATS_LOCK_TIMEOUT"); raw != "" {
		value, err := time.ParseDuration(raw)
		if err != nil || value < time.Millisecond {
			return invalidValue("STATS_LOCK_TIMEOUT", raw)
		}
		statsLockTimeout = value
	}

	allowedOrigins := []string{}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if strings.HasPrefix(origin, ".") || strings.Contains(origin, "://") {
			return invalidValue("ALLOWED_ORIGINS", origin)
		}
		allowedOrigins = append(allowedOrigins, origin)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	sentryDSN := os.Getenv("SENTRY_DSN")

	if env == production || env == staging {
		if databaseURL == "" {
			return missingKey("DATABASE_URL")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	return Config{
		databaseURL:       databaseURL,
		sentryDSN:         sentryDSN,
		port:              port,
		workerConcurrency: workerConcurrency,
		workerMaxAttempts: workerMaxAttempts,
		statsLockTimeout:  statsLockTimeout,
		allowedOrigins:    allowedOrigins,
		role:              role,
		env:               env,
	}, nil
}
