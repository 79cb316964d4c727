package config_test

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-push-dispatch/pushdispatch/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpdateConfigWithEnvOverrides(t *testing.T) {
	logger := newTestLogger()

	baseConfig := func() *config.Config {
		return &config.Config{
			ProjectID:             "base-project",
			ListenAddr:            ":8080",
			SubscriptionID:        "base-sub",
			NumPipelineWorkers:    2,
			MaxInFlightDeliveries: 16,
			Vapid: config.VapidConfig{
				PublicKey:  "base-pub",
				PrivateKey: "base-priv",
			},
		}
	}

	t.Run("Success - All overrides applied", func(t *testing.T) {
		cfg := baseConfig()

		t.Setenv("PROJECT_ID", "env-project")
		t.Setenv("PORT", "9090")
		t.Setenv("SUBSCRIPTION_ID", "env-sub")
		t.Setenv("NUM_PIPELINE_WORKERS", "8")
		t.Setenv("MAX_INFLIGHT_DELIVERIES", "64")

		t.Setenv("VAPID_PUBLIC_KEY", "env-pub")
		t.Setenv("VAPID_PRIVATE_KEY", "env-priv")
		t.Setenv("VAPID_SUB_EMAIL", "env@test.com")

		t.Setenv("APNS_KEY_ID", "env-key-id")
		t.Setenv("APNS_TEAM_ID", "env-team-id")
		t.Setenv("APNS_BUNDLE_ID", "com.env.app")

		t.Setenv("REDIS_ADDR", "localhost:6379")

		finalCfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		require.NoError(t, err)

		assert.Equal(t, "env-project", finalCfg.ProjectID)
		assert.Equal(t, ":9090", finalCfg.ListenAddr)
		assert.Equal(t, "env-sub", finalCfg.SubscriptionID)
		assert.Equal(t, 8, finalCfg.NumPipelineWorkers)
		assert.Equal(t, 64, finalCfg.MaxInFlightDeliveries)

		assert.Equal(t, "env-pub", finalCfg.Vapid.PublicKey)
		assert.Equal(t, "env-priv", finalCfg.Vapid.PrivateKey)
		assert.Equal(t, "env@test.com", finalCfg.Vapid.SubscriberEmail)

		assert.Equal(t, "env-key-id", finalCfg.APNS.KeyID)
		assert.Equal(t, "env-team-id", finalCfg.APNS.TeamID)
		assert.Equal(t, "com.env.app", finalCfg.APNS.BundleID)

		// Setting an address implies the cache should be used.
		assert.True(t, finalCfg.Redis.Enabled)
		assert.Equal(t, "localhost:6379", finalCfg.Redis.Addr)
	})

	t.Run("Success - Defaults preserved", func(t *testing.T) {
		cfg := baseConfig()
		finalCfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		require.NoError(t, err)

		assert.Equal(t, "base-project", finalCfg.ProjectID)
		assert.Equal(t, "base-pub", finalCfg.Vapid.PublicKey)
		assert.Equal(t, 16, finalCfg.MaxInFlightDeliveries)
		assert.False(t, finalCfg.Redis.Enabled)
	})

	t.Run("Success - Zero values fall back to sane defaults", func(t *testing.T) {
		cfg := &config.Config{ProjectID: "p", SubscriptionID: "s"}
		finalCfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		require.NoError(t, err)

		assert.Equal(t, ":8080", finalCfg.ListenAddr)
		assert.Equal(t, 1, finalCfg.NumPipelineWorkers)
		assert.Equal(t, 32, finalCfg.MaxInFlightDeliveries)
		assert.NotNil(t, finalCfg.PubsubConsumerConfig)
	})

	t.Run("Validation Failure - Missing ProjectID", func(t *testing.T) {
		cfg := &config.Config{SubscriptionID: "sub"}
		os.Unsetenv("PROJECT_ID")
		_, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		assert.Error(t, err)
	})

	t.Run("Validation Failure - Missing SubscriptionID", func(t *testing.T) {
		cfg := &config.Config{ProjectID: "p"}
		os.Unsetenv("SUBSCRIPTION_ID")
		_, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		assert.Error(t, err)
	})
}
