package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults mirror the public x402 devnet setup.
const (
	DefaultAddr           = ":8080"
	DefaultNetwork        = "solana-devnet"
	DefaultFacilitatorURL = "https://x402.org/facilitator"
	DefaultPrice          = "$0.001"
	DefaultRoute          = "/api/animals"
	DefaultDescription    = "Get a random animal based on character repetition"
	DefaultReceiptTTL     = 5 * time.Minute
)

var (
	// ErrMissingReceiver is returned when the gate is enabled without a receiver wallet.
	ErrMissingReceiver = errors.New("missing receiver address: set NEXT_PUBLIC_RECEIVER_ADDRESS or NEXT_PUBLIC_WALLET_ADDRESS")
	// ErrMissingReceiptKey is returned when the gate is enabled without a receipt signing key.
	ErrMissingReceiptKey = errors.New("missing receipt signing key: set RECEIPT_SIGNING_KEY")
)

// Config is the full process configuration.
type Config struct {
	Server    Server
	Gate      Gate
	Redis     RedisConfig
	RateLimit RateLimit
	Log       Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string `validate:"required"`
	CatalogPath       string
	ReadHeaderTimeout time.Duration `validate:"gt=0"`
	ReadTimeout       time.Duration `validate:"gt=0"`
	WriteTimeout      time.Duration `validate:"gt=0"`
	IdleTimeout       time.Duration `validate:"gt=0"`
	ShutdownTimeout   time.Duration `validate:"gt=0"`
}

// Gate configures the payment gate. Price, network and facilitator are passed
// through to the gate unchanged.
type Gate struct {
	Disabled          bool
	ReceiverAddress   string `validate:"required_if=Disabled false"`
	Network           string `validate:"required"`
	FacilitatorURL    string `validate:"required,url"`
	Price             string `validate:"required,startswith=$"`
	Asset             string
	Route             string `validate:"required,startswith=/"`
	Description       string
	CDPClientKey      string
	ReceiptSigningKey string        `validate:"omitempty,min=16"`
	ReceiptTTL        time.Duration `validate:"gt=0"`
	MaxTimeout        time.Duration `validate:"gt=0"`
}

// RedisConfig configures the optional Redis connection. An empty URL keeps
// receipt state in memory.
type RedisConfig struct {
	URL          string `validate:"omitempty,url"`
	PoolSize     int    `validate:"gte=0"`
	MinIdleConns int    `validate:"gte=0"`
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimit configures the per-IP limiter in front of the paid route.
type RateLimit struct {
	Disabled          bool
	RequestsPerSecond float64 `validate:"gte=0"`
	Burst             int     `validate:"gte=0"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	receiver := os.Getenv("NEXT_PUBLIC_RECEIVER_ADDRESS")
	if receiver == "" {
		receiver = os.Getenv("NEXT_PUBLIC_WALLET_ADDRESS")
	}

	cfg := Config{
		Server: Server{
			Addr:              envOr("ANIMAL_ADDR", DefaultAddr),
			CatalogPath:       os.Getenv("ANIMAL_CATALOG_PATH"),
			ReadHeaderTimeout: envDuration("SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       envDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      envDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       envDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:   envDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Gate: Gate{
			Disabled:          envBool("GATE_DISABLED"),
			ReceiverAddress:   strings.TrimSpace(receiver),
			Network:           envOr("NEXT_PUBLIC_NETWORK", DefaultNetwork),
			FacilitatorURL:    envOr("NEXT_PUBLIC_FACILITATOR_URL", DefaultFacilitatorURL),
			Price:             envOr("X402_PRICE", DefaultPrice),
			Asset:             os.Getenv("X402_ASSET"),
			Route:             envOr("X402_ROUTE", DefaultRoute),
			Description:       envOr("X402_DESCRIPTION", DefaultDescription),
			CDPClientKey:      os.Getenv("NEXT_PUBLIC_CDP_CLIENT_KEY"),
			ReceiptSigningKey: strings.TrimSpace(os.Getenv("RECEIPT_SIGNING_KEY")),
			ReceiptTTL:        envDuration("RECEIPT_TTL", DefaultReceiptTTL),
			MaxTimeout:        envDuration("X402_MAX_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimit{
			Disabled:          envBool("RATE_LIMIT_DISABLED"),
			RequestsPerSecond: envFloat("RATE_LIMIT_RPS", 5),
			Burst:             envInt("RATE_LIMIT_BURST", 10),
		},
		Log: Log{
			Level:  strings.ToLower(envOr("LOG_LEVEL", "info")),
			Format: strings.ToLower(envOr("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration. Missing gate credentials with the gate
// enabled are reported as ErrMissingReceiver or ErrMissingReceiptKey so callers
// can print setup guidance.
func (c Config) Validate() error {
	if !c.Gate.Disabled {
		if c.Gate.ReceiverAddress == "" {
			return ErrMissingReceiver
		}
		if c.Gate.ReceiptSigningKey == "" {
			return ErrMissingReceiptKey
		}
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ReceiverLengthUnusual reports whether the receiver address falls outside the
// 32..44 character range of base58 Solana wallet addresses.
func (g Gate) ReceiverLengthUnusual() bool {
	n := len(g.ReceiverAddress)
	return n > 0 && (n < 32 || n > 44)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}
