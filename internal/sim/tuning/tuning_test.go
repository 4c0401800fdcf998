package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ConfigFile(t *testing.T) {
	tune, err := Load("../../../configs/tuning.yaml")
	require.NoError(t, err)
	assert.Equal(t, 5, tune.DeployDuration)
	assert.Equal(t, 3, tune.MaxTeamsPerNode)
	assert.Equal(t, 3, tune.PickerMax)
	assert.True(t, tune.StrictInvariants)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte("deploy_duration: 2\n"), 0o644))

	tune, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 2, tune.DeployDuration)
	assert.Equal(t, Defaults().PickerMax, tune.PickerMax)
	assert.Equal(t, Defaults().Policy, tune.Policy)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte("max_teams_per_node: 0\n"), 0o644))

	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_teams_per_node")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestValidate_PolicyPercent(t *testing.T) {
	tune := Defaults()
	tune.Policy.NeutraliseChancePercent = 140
	require.Error(t, tune.Validate())
}
