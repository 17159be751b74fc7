package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/platform/config"
)

func TestOpen_EmptyURLMeansNoRedis(t *testing.T) {
	client, err := Open(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), config.RedisConfig{URL: "mysql://nope"})
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestOptions_OverlaysSetFields(t *testing.T) {
	opts, err := Options(config.RedisConfig{
		URL:          "redis://cache:6380/2",
		PoolSize:     7,
		MinIdleConns: 1,
		ReadTimeout:  250 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 1, opts.MinIdleConns)
	assert.Equal(t, 250*time.Millisecond, opts.ReadTimeout)
}
