package config

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// TrackingDirEnvVar points at the tracking directory and takes precedence
// over every config-derived location.
const TrackingDirEnvVar = "INSTALL_SYNC_DIR"

// DefaultTrackingDir is the fallback tracking directory in the user's home.
const DefaultTrackingDir = "~/package-tracking"

// Mocked for unit testing.
var (
	getenv              = os.Getenv
	getWorkingDirectory = os.Getwd
)

// TrackingDir resolves the directory holding the tracking document.
//
// Resolution order: the environment variable override, the repository link
// in the working directory, the user's configured default, and finally
// ~/package-tracking. Missing candidates are skipped silently — on a first
// run none of them exist yet.
func TrackingDir() (string, error) {
	if env := getenv(TrackingDirEnvVar); env != "" {
		return homedirExpand(env)
	}

	if wd, err := getWorkingDirectory(); err == nil {
		link, err := ParseRepoLink(wd)
		switch err.(type) {
		case nil:
			if link.TrackingDirectory != "" {
				return link.TrackingDirectory, nil
			}
		case errors.FileNotFound:
		default:
			log.WithError(err).Debug("Failed to read repository link")
		}
	}

	if global := ParseGlobal(); global.DefaultTrackingDirectory != "" {
		return homedirExpand(global.DefaultTrackingDirectory)
	}

	return homedirExpand(DefaultTrackingDir)
}
