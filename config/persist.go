package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/katje/colorizer/errors"
	"github.com/katje/colorizer/gemini"
	"github.com/katje/colorizer/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before
// modifying a config file.
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	// Rotate: drop .back3, .back2 -> .back3, .back1 -> .back2, current -> .back1
	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old backup",
			logger.FieldFile, back3,
			logger.FieldError, err)
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// SettingsPath returns the file generation settings are saved to. Kept apart
// from the main config so runtime saves never clobber hand-edited files.
func SettingsPath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "settings.toml")
}

// settingsFile is the on-disk shape of the saved settings.
type settingsFile struct {
	Generation gemini.Settings `toml:"generation"`
}

// SaveGenerationSettings persists the generation settings with backup
// rotation, marking the write so the config watcher does not reload our own
// change.
func SaveGenerationSettings(s gemini.Settings) error {
	return saveGenerationSettingsTo(SettingsPath(), s)
}

func saveGenerationSettingsTo(path string, s gemini.Settings) error {
	if path == "" {
		return errors.New("could not determine settings path")
	}

	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(settingsFile{Generation: s})
	if err != nil {
		return errors.Wrap(err, "failed to marshal settings")
	}

	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write settings")
	}

	return nil
}

// LoadGenerationSettings reads the saved settings file directly. Missing
// file yields the defaults.
func LoadGenerationSettings() (gemini.Settings, error) {
	return loadGenerationSettingsFrom(SettingsPath())
}

func loadGenerationSettingsFrom(path string) (gemini.Settings, error) {
	if path == "" {
		return gemini.DefaultSettings(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return gemini.DefaultSettings(), nil
	}
	if err != nil {
		return gemini.DefaultSettings(), errors.Wrap(err, "failed to read settings")
	}

	var file settingsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return gemini.DefaultSettings(), errors.Wrap(err, "failed to parse settings")
	}
	return file.Generation.Normalize(), nil
}
