// pkg/config/env_config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvironmentConfig holds process-level settings read from the environment.
type EnvironmentConfig struct {
	HTTPAddr       string
	TickRate       int // simulation ticks per second
	TelemetryEvery int // ticks between telemetry pushes
	MaxSessions    int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// OTP collaborator
	OTPTTL            time.Duration
	OTPRequestsPerMin int
	TokenTTL          time.Duration

	// Circuit Breaker Configuration
	CircuitBreakerMaxRequests         int
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails int

	// Resource Management Configuration
	MaxMemoryMB           int64
	MaxGoroutines         int
	ShutdownTimeout       time.Duration
	ResourceCheckInterval time.Duration
}

// LoadConfigFromEnv loads configuration from environment variables. An
// optional .env file (ORBITSIM_ENV_FILE, default ".env") is read first;
// variables already set in the process take precedence over the file.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	envFile := os.Getenv("ORBITSIM_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &EnvironmentConfig{}
	var err error
	p := envParser{}

	cfg.HTTPAddr = p.getString("ORBITSIM_HTTP_ADDR", ":8090")
	cfg.TickRate = p.getInt("ORBITSIM_TICK_RATE", 60)
	cfg.TelemetryEvery = p.getInt("ORBITSIM_TELEMETRY_EVERY", 3)
	cfg.MaxSessions = p.getInt("ORBITSIM_MAX_SESSIONS", 64)
	cfg.ReadTimeout = p.getDuration("ORBITSIM_READ_TIMEOUT", 10*time.Second)
	cfg.WriteTimeout = p.getDuration("ORBITSIM_WRITE_TIMEOUT", 10*time.Second)

	cfg.OTPTTL = p.getDuration("ORBITSIM_OTP_TTL", 5*time.Minute)
	cfg.OTPRequestsPerMin = p.getInt("ORBITSIM_OTP_REQUESTS_PER_MIN", 5)
	cfg.TokenTTL = p.getDuration("ORBITSIM_TOKEN_TTL", 12*time.Hour)

	cfg.CircuitBreakerMaxRequests = p.getInt("ORBITSIM_CB_MAX_REQUESTS", 3)
	cfg.CircuitBreakerInterval = p.getDuration("ORBITSIM_CB_INTERVAL", 60*time.Second)
	cfg.CircuitBreakerTimeout = p.getDuration("ORBITSIM_CB_TIMEOUT", 30*time.Second)
	cfg.CircuitBreakerMaxConsecutiveFails = p.getInt("ORBITSIM_CB_MAX_FAILURES", 5)

	cfg.MaxMemoryMB = int64(p.getInt("ORBITSIM_MAX_MEMORY_MB", 500))
	cfg.MaxGoroutines = p.getInt("ORBITSIM_MAX_GOROUTINES", 1000)
	cfg.ShutdownTimeout = p.getDuration("ORBITSIM_SHUTDOWN_TIMEOUT", 30*time.Second)
	cfg.ResourceCheckInterval = p.getDuration("ORBITSIM_RESOURCE_CHECK_INTERVAL", 10*time.Second)

	if err = p.err; err != nil {
		return nil, err
	}
	if err = validateEnvironmentConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TickInterval is the wall-clock period between simulation ticks.
func (c *EnvironmentConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// envParser collects the first parse failure so callers can read every
// variable and report once.
type envParser struct {
	err error
}

func (p *envParser) getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (p *envParser) getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *envParser) getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *envParser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
}

// validateEnvironmentConfig validates the loaded environment configuration.
func validateEnvironmentConfig(cfg *EnvironmentConfig) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTPAddr cannot be empty")
	}
	if cfg.TickRate <= 0 || cfg.TickRate > 240 {
		return fmt.Errorf("TickRate must be between 1 and 240, got %d", cfg.TickRate)
	}
	if cfg.TelemetryEvery <= 0 {
		return fmt.Errorf("TelemetryEvery must be positive, got %d", cfg.TelemetryEvery)
	}
	if cfg.MaxSessions <= 0 || cfg.MaxSessions > 10000 {
		return fmt.Errorf("MaxSessions must be between 1 and 10000, got %d", cfg.MaxSessions)
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 {
		return fmt.Errorf("ReadTimeout and WriteTimeout must be positive")
	}
	if cfg.OTPTTL <= 0 {
		return fmt.Errorf("OTPTTL must be positive, got %v", cfg.OTPTTL)
	}
	if cfg.TokenTTL <= 0 {
		return fmt.Errorf("TokenTTL must be positive, got %v", cfg.TokenTTL)
	}
	if cfg.OTPRequestsPerMin <= 0 {
		return fmt.Errorf("OTPRequestsPerMin must be positive, got %d", cfg.OTPRequestsPerMin)
	}
	if cfg.CircuitBreakerMaxRequests <= 0 {
		return fmt.Errorf("CircuitBreakerMaxRequests must be positive, got %d", cfg.CircuitBreakerMaxRequests)
	}
	if cfg.CircuitBreakerInterval <= 0 || cfg.CircuitBreakerTimeout <= 0 {
		return fmt.Errorf("CircuitBreakerInterval and CircuitBreakerTimeout must be positive")
	}
	if cfg.CircuitBreakerMaxConsecutiveFails <= 0 {
		return fmt.Errorf("CircuitBreakerMaxConsecutiveFails must be positive, got %d", cfg.CircuitBreakerMaxConsecutiveFails)
	}
	if cfg.MaxMemoryMB <= 0 || cfg.MaxGoroutines <= 0 {
		return fmt.Errorf("MaxMemoryMB and MaxGoroutines must be positive")
	}
	if cfg.ShutdownTimeout <= 0 || cfg.ResourceCheckInterval <= 0 {
		return fmt.Errorf("ShutdownTimeout and ResourceCheckInterval must be positive")
	}
	return nil
}
