package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/orbitintent/core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := config.New()
	assert.Equal(t, 5*time.Minute, cfg.Executor.GlobalTimeout)
	assert.Equal(t, 10, cfg.Executor.MaxConcurrent)
	assert.Equal(t, 100, cfg.Pool.MaxFeeBp)
	assert.Equal(t, 9000, cfg.Matcher.MinSuccessRate)
	assert.Equal(t, uint64(2), cfg.Protector.CommitMinDelayBlocks)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EXECUTOR_MAX_CONCURRENT", "42")
	t.Setenv("POOL_BASE_FEE_BP", "15")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Executor.MaxConcurrent)
	assert.Equal(t, 15, cfg.Pool.BaseFeeBp)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	content := "pool:\n  tolerance_bp: 25\n  base_fee_bp: 40\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Pool.ToleranceBp)
	assert.Equal(t, 40, cfg.Pool.BaseFeeBp)
}
