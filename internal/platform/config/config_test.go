package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testReceiver   = "CmGgLQL36Y9ubtTsy2zmE46TAxwCBm66onZmPNPhUWNqv"
	testReceiptKey = "receipt-signing-key-for-tests"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANIMAL_ADDR", "ANIMAL_CATALOG_PATH", "GATE_DISABLED",
		"NEXT_PUBLIC_RECEIVER_ADDRESS", "NEXT_PUBLIC_WALLET_ADDRESS",
		"NEXT_PUBLIC_NETWORK", "NEXT_PUBLIC_FACILITATOR_URL", "NEXT_PUBLIC_CDP_CLIENT_KEY",
		"X402_PRICE", "X402_ROUTE", "RECEIPT_SIGNING_KEY", "RECEIPT_TTL",
		"REDIS_URL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_RECEIVER_ADDRESS", testReceiver)
	t.Setenv("RECEIPT_SIGNING_KEY", testReceiptKey)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, DefaultNetwork, cfg.Gate.Network)
	assert.Equal(t, DefaultFacilitatorURL, cfg.Gate.FacilitatorURL)
	assert.Equal(t, DefaultPrice, cfg.Gate.Price)
	assert.Equal(t, DefaultRoute, cfg.Gate.Route)
	assert.Equal(t, DefaultReceiptTTL, cfg.Gate.ReceiptTTL)
	assert.Equal(t, testReceiptKey, cfg.Gate.ReceiptSigningKey)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFromEnv_WalletAddressFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_WALLET_ADDRESS", testReceiver)
	t.Setenv("RECEIPT_SIGNING_KEY", testReceiptKey)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, testReceiver, cfg.Gate.ReceiverAddress)
}

func TestFromEnv_MissingReceiverIsFatal(t *testing.T) {
	clearEnv(t)

	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrMissingReceiver)
}

func TestFromEnv_MissingReceiptKeyIsFatal(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_RECEIVER_ADDRESS", testReceiver)

	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrMissingReceiptKey)

	t.Setenv("RECEIPT_SIGNING_KEY", "   ")
	_, err = FromEnv()
	assert.ErrorIs(t, err, ErrMissingReceiptKey)
}

func TestFromEnv_GateDisabledNeedsNoReceiver(t *testing.T) {
	clearEnv(t)
	t.Setenv("GATE_DISABLED", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Gate.Disabled)
	assert.Empty(t, cfg.Gate.ReceiptSigningKey)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_RECEIVER_ADDRESS", testReceiver)
	t.Setenv("RECEIPT_SIGNING_KEY", testReceiptKey)
	t.Setenv("ANIMAL_ADDR", ":9090")
	t.Setenv("NEXT_PUBLIC_NETWORK", "solana")
	t.Setenv("X402_PRICE", "$0.01")
	t.Setenv("RECEIPT_TTL", "90s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "solana", cfg.Gate.Network)
	assert.Equal(t, "$0.01", cfg.Gate.Price)
	assert.Equal(t, 90*time.Second, cfg.Gate.ReceiptTTL)
	assert.InDelta(t, 2.5, cfg.RateLimit.RequestsPerSecond, 0.0001)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "price without currency", key: "X402_PRICE", val: "0.001"},
		{name: "facilitator not a url", key: "NEXT_PUBLIC_FACILITATOR_URL", val: "not a url"},
		{name: "short signing key", key: "RECEIPT_SIGNING_KEY", val: "short"},
		{name: "unknown log level", key: "LOG_LEVEL", val: "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("NEXT_PUBLIC_RECEIVER_ADDRESS", testReceiver)
	t.Setenv("RECEIPT_SIGNING_KEY", testReceiptKey)
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestGate_ReceiverLengthUnusual(t *testing.T) {
	assert.False(t, Gate{ReceiverAddress: testReceiver}.ReceiverLengthUnusual())
	assert.True(t, Gate{ReceiverAddress: "tooshort"}.ReceiverLengthUnusual())
	assert.False(t, Gate{}.ReceiverLengthUnusual())
}
