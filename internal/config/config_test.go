package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"GA4CLI_CLIENT_ID",
		"GA4CLI_CLIENT_SECRET",
		"GA4CLI_PROPERTY",
		"GA4CLI_PRESET",
		"GA4CLI_REQUESTS_PER_SECOND",
		"GA4CLI_ACCESS_TOKEN",
		"GA4CLI_DATA_API_URL",
		"GA4CLI_DATA_API_ALPHA_URL",
		"GA4CLI_ADMIN_API_URL",
		"GA4CLI_ADMIN_API_ALPHA_URL",
	} {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestLoadConfigMissingFile(t *testing.T) {
	setupHome(t)

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, config.ClientID)
	assert.False(t, config.CreatedAt.IsZero())
}

func TestSaveConfigPermissions(t *testing.T) {
	home := setupHome(t)

	require.NoError(t, SetClientCredentials(" id ", "secret"))

	dirInfo, err := os.Stat(filepath.Join(home, ConfigDirName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(filepath.Join(home, ConfigDirName, ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fileInfo.Mode().Perm())

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "id", config.ClientID)
	assert.Equal(t, "secret", config.ClientSecret)
}

func TestSet(t *testing.T) {
	setupHome(t)

	require.NoError(t, Set("default_property", "properties/123"))
	require.NoError(t, Set("output_format", " CSV "))
	require.NoError(t, Set("requests_per_second", "2.5"))
	require.NoError(t, Set("client_secret", "hidden"))

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "properties/123", config.Get("default_property"))
	assert.Equal(t, "csv", config.Get("output_format"))
	assert.Equal(t, "2.5", config.Get("requests_per_second"))
	assert.Equal(t, "********", config.Get("client_secret"))
}

func TestSetRejectsBadInput(t *testing.T) {
	setupHome(t)

	err := Set("colour", "blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key 'colour'")

	err = Set("requests_per_second", "fast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid requests_per_second")
}

func TestResolveEnvironmentOverrides(t *testing.T) {
	setupHome(t)

	require.NoError(t, Update(func(config *AppConfig) error {
		config.ClientID = "file-id"
		config.ClientSecret = "file-secret"
		config.DefaultProperty = "properties/1"
		config.RequestsPerSecond = 5
		return nil
	}))

	t.Setenv("GA4CLI_PROPERTY", "properties/2")
	t.Setenv("GA4CLI_REQUESTS_PER_SECOND", "1.5")
	t.Setenv("GA4CLI_ACCESS_TOKEN", "ya29.token")

	settings, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "file-id", settings.ClientID)
	assert.Equal(t, "file-secret", settings.ClientSecret)
	assert.Equal(t, "properties/2", settings.DefaultProperty)
	assert.InDelta(t, 1.5, settings.RequestsPerSecond, 0.0001)
	assert.Equal(t, "ya29.token", settings.AccessToken)
}

func TestResolveInvalidEnvironment(t *testing.T) {
	setupHome(t)
	t.Setenv("GA4CLI_REQUESTS_PER_SECOND", "lots")

	_, err := Resolve()
	require.Error(t, err)
}

func TestResolveLoadsDotEnv(t *testing.T) {
	setupHome(t)
	os.Unsetenv("GA4CLI_CLIENT_ID")

	require.NoError(t, os.WriteFile(DotEnvFileName, []byte("GA4CLI_CLIENT_ID=from-dotenv\n"), 0o600))

	settings, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", settings.ClientID)
}

func TestActivePresetAndDefaultProperty(t *testing.T) {
	setupHome(t)

	require.NoError(t, SetActivePreset("work"))
	require.NoError(t, SetDefaultProperty("properties/42"))

	active, err := GetActivePreset()
	require.NoError(t, err)
	assert.Equal(t, "work", active)

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "properties/42", config.DefaultProperty)
}
