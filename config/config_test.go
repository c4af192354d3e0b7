package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestEnv points the data directory at a temp dir and runs the test from it so a
// stray .env in the repository cannot leak into the result.
func setupTestEnv(t *testing.T) string {
	t.Helper()

	dataDir := t.TempDir()
	t.Setenv("COINVEST_DATA_DIR", dataDir)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(originalWD) })

	return dataDir
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dataDir := setupTestEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
		assert.Equal(t, dataDir, cfg.DataDir)
		assert.Equal(t, 10*time.Second, cfg.Polling.Balance)
		assert.Equal(t, 60*time.Second, cfg.Polling.Prices)
		assert.Equal(t, 60*time.Second, cfg.Polling.Trends)
		assert.Equal(t, 300*time.Second, cfg.Polling.Investments)
		assert.Equal(t, 50.0, cfg.MinDeposit)
		assert.NotEmpty(t, cfg.Networks)
		assert.Equal(t, filepath.Join(dataDir, "session.db"), cfg.SessionDBPath())
	})

	t.Run("yaml file then env overrides", func(t *testing.T) {
		dataDir := setupTestEnv(t)

		content := `
api_base_url: https://invest.example.com/api
min_deposit: 100
polling:
  balance: 5s
  prices: 30s
  trends: 45s
  investments: 2m
networks:
  - name: Litecoin
    symbol: LTC
    address: ltc1qexample
`
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(content), 0600))
		t.Setenv("COINVEST_API_URL", "https://override.example.com/api/")
		t.Setenv("COINVEST_PRICES_INTERVAL", "15s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://override.example.com/api", cfg.APIBaseURL)
		assert.Equal(t, 100.0, cfg.MinDeposit)
		assert.Equal(t, 5*time.Second, cfg.Polling.Balance)
		assert.Equal(t, 15*time.Second, cfg.Polling.Prices)
		assert.Equal(t, 2*time.Minute, cfg.Polling.Investments)
		require.Len(t, cfg.Networks, 1)
		assert.Equal(t, "Litecoin", cfg.Networks[0].Name)
	})

	t.Run("invalid env duration falls back to default", func(t *testing.T) {
		setupTestEnv(t)
		t.Setenv("COINVEST_BALANCE_INTERVAL", "soon")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultBalanceInterval, cfg.Polling.Balance)
	})

	t.Run("rejects non-positive minimum deposit", func(t *testing.T) {
		setupTestEnv(t)
		t.Setenv("COINVEST_MIN_DEPOSIT", "0")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("reads .env from the working directory", func(t *testing.T) {
		setupTestEnv(t)
		require.NoError(t, os.WriteFile(".env", []byte("COINVEST_CURRENCY=EUR\n"), 0600))
		t.Cleanup(func() { os.Unsetenv("COINVEST_CURRENCY") })

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "EUR", cfg.Currency)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.Polling.Balance = 7 * time.Second

	require.NoError(t, cfg.Save(cfg.Path()))

	loaded := Default(dir)
	require.NoError(t, loaded.loadFile(cfg.Path()))
	assert.Equal(t, 7*time.Second, loaded.Polling.Balance)
	assert.Equal(t, cfg.Networks, loaded.Networks)
}

func TestNetworkLookup(t *testing.T) {
	cfg := Default(t.TempDir())

	n, ok := cfg.Network("usdt")
	require.True(t, ok)
	assert.Equal(t, "Tether (TRC20)", n.Name)

	_, ok = cfg.Network("DOGE")
	assert.False(t, ok)
	assert.Len(t, cfg.NetworkNames(), len(cfg.Networks))
}
