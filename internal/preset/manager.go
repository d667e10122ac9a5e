package preset

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"ga4cli/internal/config"

	"gopkg.in/yaml.v3"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

const (
	PresetsDirName = "presets"
	PresetFileExt  = ".yaml"
	MaxNameLength  = 50
)

var (
	ErrNotFound      = errors.New("preset does not exist")
	ErrAlreadyExists = errors.New("preset already exists")
	ErrInvalidName   = errors.New("invalid preset name: must contain only letters, numbers, underscores and hyphens (max 50 chars)")
)

var validPresetName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// GetPresetsDir returns the path to the presets directory (~/.ga4cli/presets).
func GetPresetsDir() (string, error) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, PresetsDirName), nil
}

func GetPresetPath(name string) (string, error) {
	if !IsValidPresetName(name) {
		return "", ErrInvalidName
	}
	presetsDir, err := GetPresetsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(presetsDir, name+PresetFileExt), nil
}

func IsValidPresetName(name string) bool {
	return name != "" && len(name) <= MaxNameLength && validPresetName.MatchString(name)
}

func Exists(name string) (bool, error) {
	presetPath, err := GetPresetPath(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(presetPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Load reads a preset. Unlike 'preset use', loading does not touch LastUsed.
func Load(name string) (*config.Preset, error) {
	presetPath, err := GetPresetPath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(presetPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read preset '%s'", name)
	}

	var preset config.Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, wrap.Errorf(err, "failed to parse preset file '%s'", presetPath)
	}
	return &preset, nil
}

// Save writes a preset with owner-only permissions, since it holds a refresh token.
func Save(preset *config.Preset) error {
	presetPath, err := GetPresetPath(preset.Name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(presetPath), 0o700); err != nil {
		return wrap.Error(err, "failed to create presets directory")
	}

	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = time.Now()
	}

	data, err := yaml.Marshal(preset)
	if err != nil {
		return wrap.Error(err, "failed to marshal preset to YAML")
	}
	if err := os.WriteFile(presetPath, data, 0o600); err != nil {
		return wrap.Errorf(err, "failed to write preset '%s'", preset.Name)
	}
	return nil
}

// Create validates and stores a new preset. The refresh token must not be empty.
func Create(name, refreshToken, userEmail, defaultProperty string) (*config.Preset, error) {
	if !IsValidPresetName(name) {
		return nil, ErrInvalidName
	}

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}

	exists, err := Exists(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: '%s'", ErrAlreadyExists, name)
	}

	now := time.Now()
	preset := &config.Preset{
		Name:            name,
		RefreshToken:    refreshToken,
		UserEmail:       strings.TrimSpace(userEmail),
		DefaultProperty: strings.TrimSpace(defaultProperty),
		CreatedAt:       now,
		LastUsed:        now,
	}
	if err := Save(preset); err != nil {
		return nil, wrap.Error(err, "failed to create preset")
	}
	return preset, nil
}

// Delete removes a preset, and clears it from the config if it was active.
func Delete(name string) error {
	presetPath, err := GetPresetPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(presetPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: '%s'", ErrNotFound, name)
		}
		return wrap.Errorf(err, "failed to delete preset '%s'", name)
	}

	active, err := config.GetActivePreset()
	if err != nil {
		return err
	}
	if active == name {
		return config.SetActivePreset("")
	}
	return nil
}

// List returns all readable presets sorted by name. Unparseable files are
// skipped and logged.
func List() ([]config.Preset, error) {
	presetsDir, err := GetPresetsDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(presetsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []config.Preset{}, nil
	}
	if err != nil {
		return nil, wrap.Error(err, "failed to read presets directory")
	}

	presets := []config.Preset{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), PresetFileExt) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), PresetFileExt)
		preset, err := Load(name)
		if err != nil {
			log.ErrorCause(err, "Skipping unreadable preset", slog.String("preset", name))
			continue
		}
		presets = append(presets, *preset)
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}

// Use makes a preset the active one and stamps its LastUsed time.
func Use(name string) error {
	preset, err := Load(name)
	if err != nil {
		return err
	}

	preset.LastUsed = time.Now()
	if err := Save(preset); err != nil {
		return err
	}
	return config.SetActivePreset(name)
}

// Active returns the preset selected by name, or the config's active preset
// when name is empty. It returns nil without error when neither is set.
func Active(name string) (*config.Preset, error) {
	if name == "" {
		var err error
		if name, err = config.GetActivePreset(); err != nil {
			return nil, err
		}
	}
	if name == "" {
		return nil, nil
	}
	return Load(name)
}
