package preset

import (
	"os"
	"path/filepath"
	"testing"

	"ga4cli/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestCreateAndLoad(t *testing.T) {
	home := setupHome(t)

	created, err := Create("work", "  1//token  ", "me@example.com", "properties/123")
	require.NoError(t, err)
	assert.Equal(t, "1//token", created.RefreshToken)

	info, err := os.Stat(filepath.Join(home, config.ConfigDirName, PresetsDirName, "work.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load("work")
	require.NoError(t, err)
	assert.Equal(t, "1//token", loaded.RefreshToken)
	assert.Equal(t, "me@example.com", loaded.UserEmail)
	assert.Equal(t, "properties/123", loaded.DefaultProperty)
}

func TestCreateValidation(t *testing.T) {
	setupHome(t)

	_, err := Create("bad name", "1//token", "", "")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = Create("work", "   ", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh token is required")

	_, err = Create("work", "1//token", "", "")
	require.NoError(t, err)
	_, err = Create("work", "1//other", "", "")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestIsValidPresetName(t *testing.T) {
	assert.True(t, IsValidPresetName("client_a-prod"))
	assert.False(t, IsValidPresetName(""))
	assert.False(t, IsValidPresetName("../escape"))
	assert.False(t, IsValidPresetName(string(make([]byte, MaxNameLength+1))))
}

func TestListSortedAndSkipsBrokenFiles(t *testing.T) {
	home := setupHome(t)

	for _, name := range []string{"zeta", "alpha"} {
		_, err := Create(name, "1//token", "", "")
		require.NoError(t, err)
	}
	broken := filepath.Join(home, config.ConfigDirName, PresetsDirName, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [unclosed"), 0o600))

	presets, err := List()
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "alpha", presets[0].Name)
	assert.Equal(t, "zeta", presets[1].Name)
}

func TestListWithoutDirectory(t *testing.T) {
	setupHome(t)

	presets, err := List()
	require.NoError(t, err)
	assert.Empty(t, presets)
}

func TestUseAndDelete(t *testing.T) {
	setupHome(t)

	_, err := Create("work", "1//token", "", "")
	require.NoError(t, err)

	require.NoError(t, Use("work"))
	active, err := Active("")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "work", active.Name)

	require.NoError(t, Delete("work"))
	name, err := config.GetActivePreset()
	require.NoError(t, err)
	assert.Empty(t, name)

	active, err = Active("")
	require.NoError(t, err)
	assert.Nil(t, active)

	assert.ErrorIs(t, Delete("work"), ErrNotFound)
	assert.ErrorIs(t, Use("missing"), ErrNotFound)
}
