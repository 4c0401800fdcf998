package runtimecfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerEnv_Defaults(t *testing.T) {
	cfg, err := LoadServerEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "./configs", cfg.ConfigDir)
	assert.Equal(t, "default", cfg.CampaignID)
	assert.True(t, cfg.LoadLatest)
	assert.False(t, cfg.AllowRemote)
	assert.Zero(t, cfg.Seed)
}

func TestLoadServerEnv_Overrides(t *testing.T) {
	t.Setenv("FIELDOPS_ADDR", "127.0.0.1:9000")
	t.Setenv("FIELDOPS_CAMPAIGN_ID", "north")
	t.Setenv("FIELDOPS_SEED", "42")
	t.Setenv("FIELDOPS_DISABLE_DB", "true")
	t.Setenv("FIELDOPS_LOAD_LATEST_SNAPSHOT", "false")
	t.Setenv("FIELDOPS_TURNS", "30")

	cfg, err := LoadServerEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "north", cfg.CampaignID)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.True(t, cfg.DisableDB)
	assert.False(t, cfg.LoadLatest)
	assert.Equal(t, 30, cfg.Turns)
}

func TestLoadServerEnv_BadValue(t *testing.T) {
	t.Setenv("FIELDOPS_SEED", "not-a-number")
	_, err := LoadServerEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}
