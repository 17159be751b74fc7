package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/platform/config"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/platform/logger"
)

const testReceiver = "CmGgLQL36Y9ubtTsy2zmE46TAxwCBm66onZmPPhUWNqv"

func testConfig() config.Config {
	return config.Config{
		Server: config.Server{Addr: ":0"},
		Gate: config.Gate{
			ReceiverAddress:   testReceiver,
			Network:           config.DefaultNetwork,
			FacilitatorURL:    "http://127.0.0.1:1",
			Price:             config.DefaultPrice,
			Route:             config.DefaultRoute,
			Description:       config.DefaultDescription,
			ReceiptSigningKey: "receipt-signing-key-for-tests",
			ReceiptTTL:        time.Minute,
			MaxTimeout:        time.Minute,
		},
		RateLimit: config.RateLimit{RequestsPerSecond: 100, Burst: 100},
		Log:       config.Log{Level: "info", Format: "json"},
	}
}

func TestNewApp_GateDisabledServesMatches(t *testing.T) {
	cfg := testConfig()
	cfg.Gate.Disabled = true

	a, err := newApp(context.Background(), cfg, logger.Discard(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/animals?name=Anna", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(62), body["totalAnimals"])
	assert.Equal(t, "Anna", body["originalName"])
}

func TestNewApp_GateEnabledChallenges(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(), logger.Discard(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/animals?name=Anna", nil))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var body struct {
		X402Version int `json:"x402Version"`
		Accepts     []struct {
			PayTo             string `json:"payTo"`
			MaxAmountRequired string `json:"maxAmountRequired"`
			Network           string `json:"network"`
		} `json:"accepts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.X402Version)
	require.Len(t, body.Accepts, 1)
	assert.Equal(t, testReceiver, body.Accepts[0].PayTo)
	assert.Equal(t, "1000", body.Accepts[0].MaxAmountRequired)
	assert.Equal(t, "solana-devnet", body.Accepts[0].Network)

	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/animals", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "results view is free")
}

func TestNewApp_EmptyCatalogFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animals.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	cfg := testConfig()
	cfg.Server.CatalogPath = path
	_, err := newApp(context.Background(), cfg, logger.Discard(), prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestLogStartupConfig_HidesReceiver(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	logStartupConfig(logger.NewWithWriter(&buf, "info", "json"), cfg)

	out := buf.String()
	assert.Contains(t, out, "CmGgLQL3...PPhUWNqv")
	assert.NotContains(t, out, testReceiver)
	assert.Contains(t, out, "NEXT_PUBLIC_CDP_CLIENT_KEY is not set")
	assert.Contains(t, out, `"cdp_key":"missing"`)
}

func TestLogStartupConfig_WarnsOnUnusualReceiverLength(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.Gate.ReceiverAddress = "tooShort"
	cfg.Gate.CDPClientKey = "key"
	logStartupConfig(logger.NewWithWriter(&buf, "info", "json"), cfg)

	assert.Contains(t, buf.String(), "receiver address length looks unusual")
	assert.Contains(t, buf.String(), `"cdp_key":"set"`)
}

func TestMatchCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"match", "tab", "--seed", "7", "--scores", "3"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), `"totalAnimals": 62`)
	assert.Contains(t, out.String(), `"originalName": "tab"`)
}

func TestFetchCommand(t *testing.T) {
	free := testConfig()
	free.Gate.Disabled = true
	freeApp, err := newApp(context.Background(), free, logger.Discard(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer freeApp.Close()
	freeSrv := httptest.NewServer(freeApp.router)
	defer freeSrv.Close()

	paidApp, err := newApp(context.Background(), testConfig(), logger.Discard(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer paidApp.Close()
	paidSrv := httptest.NewServer(paidApp.router)
	defer paidSrv.Close()

	t.Run("free server prints the match", func(t *testing.T) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"fetch", "Anna", "--base-url", freeSrv.URL, "--resume=false"})
		require.NoError(t, rootCmd.Execute())
		assert.Contains(t, out.String(), `"originalName": "Anna"`)
	})

	t.Run("first 402 prints the payment URL", func(t *testing.T) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"fetch", "Anna", "--base-url", paidSrv.URL, "--resume=false"})
		require.NoError(t, rootCmd.Execute())
		assert.Contains(t, out.String(), "Payment required.")
		assert.Contains(t, out.String(), paidSrv.URL+"/api/animals?name=Anna")
	})

	t.Run("402 after resume fails", func(t *testing.T) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs([]string{"fetch", "Anna", "--base-url", paidSrv.URL, "--resume", "--grace", "0s"})
		err := rootCmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Payment required again")
	})
}

func TestServeCommand_RefusesWithoutReceiptKey(t *testing.T) {
	t.Setenv("GATE_DISABLED", "")
	t.Setenv("NEXT_PUBLIC_RECEIVER_ADDRESS", testReceiver)
	t.Setenv("RECEIPT_SIGNING_KEY", "")

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"serve"})
	err := rootCmd.Execute()

	require.ErrorIs(t, err, config.ErrMissingReceiptKey)
	assert.Contains(t, stderr.String(), "RECEIPT_SIGNING_KEY must be set")
}
