package config

import (
	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// GlobalConfigPath is the default path to the per-user preferences file.
// It lives outside the tracking directory and is never committed.
const GlobalConfigPath = "~/.install-sync.yaml"

// Global contains per-user preferences that apply to every tracking
// repository on this machine.
type Global struct {
	// Tri-state: nil means "use the tracking document's policy".
	GitAutoCommit *bool `json:"git_auto_commit,omitempty"`
	GitAutoPush   *bool `json:"git_auto_push,omitempty"`

	GitPrompt         bool `json:"git_prompt"`
	PreferSSHRemotes  bool `json:"prefer_ssh_remotes"`
	GitAutoSyncOnList bool `json:"git_auto_sync_on_list"`

	DefaultTrackingDirectory string `json:"default_tracking_directory,omitempty"`

	// Per-OS package manager override, e.g. {"linux": "apt"}.
	PackageManagers map[string]string `json:"package_managers,omitempty"`
}

// homedirExpand will be overridden in mock tests.
var homedirExpand = homedir.Expand

// DefaultGlobal returns the preferences used when no file exists.
func DefaultGlobal() Global {
	return Global{
		GitPrompt:         true,
		PreferSSHRemotes:  true,
		GitAutoSyncOnList: true,
	}
}

// ParseGlobal loads the user's global preferences. Missing or malformed
// files fall back to defaults; preferences must never block a command.
func ParseGlobal() Global {
	path, err := GetGlobalConfigPath()
	if err != nil {
		log.WithError(err).Debug("Failed to expand global config path")
		return DefaultGlobal()
	}

	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return DefaultGlobal()
	}

	cfg := DefaultGlobal()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		log.WithError(errors.ConfigCorrupt{Path: path, Err: err}).
			Warn("Falling back to default global configuration")
		return DefaultGlobal()
	}
	return cfg
}

// WriteGlobal writes the given preferences to disk.
func WriteGlobal(cfg Global) error {
	path, err := GetGlobalConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// RemoveGlobal deletes the preferences file, restoring defaults. Removing
// a file that does not exist is not an error.
func RemoveGlobal() error {
	path, err := GetGlobalConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return errors.WithContext(err, "stat")
	}
	if !exists {
		return nil
	}
	return fs.Remove(path)
}

// GlobalExists reports whether a preferences file is present on disk.
func GlobalExists() bool {
	path, err := GetGlobalConfigPath()
	if err != nil {
		return false
	}
	exists, err := afero.Exists(fs, path)
	return err == nil && exists
}

// GetGlobalConfigPath returns the expanded path to the global preferences
// file, suitable for direct file operations.
func GetGlobalConfigPath() (string, error) {
	return homedirExpand(GlobalConfigPath)
}
