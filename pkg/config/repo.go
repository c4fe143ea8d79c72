package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// RepoLinkFileName is the local-only file describing where the tracking
// repository lives. It is excluded from version control by the generated
// .gitignore.
const RepoLinkFileName = "repo-config.json"

// RepoLink describes the remote repository that backs a tracking directory.
// Written once during setup, read thereafter.
type RepoLink struct {
	Platform          string    `json:"platform"`
	RepoName          string    `json:"repo_name"`
	CloneURL          string    `json:"clone_url"`
	TrackingDirectory string    `json:"tracking_directory,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ParseRepoLink loads the repository link from the given directory.
func ParseRepoLink(dir string) (RepoLink, error) {
	path := filepath.Join(dir, RepoLinkFileName)
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return RepoLink{}, errors.FileNotFound{Path: path}
		}
		return RepoLink{}, errors.WithContext(err, "read file")
	}

	var link RepoLink
	if err := json.Unmarshal(contents, &link); err != nil {
		return RepoLink{}, errors.ConfigCorrupt{Path: path, Err: err}
	}
	return link, nil
}

// WriteRepoLink persists the repository link into the given directory.
func WriteRepoLink(dir string, link RepoLink) error {
	contents, err := json.MarshalIndent(link, "", "  ")
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return errors.WithContext(err, "create directory")
	}

	path := filepath.Join(dir, RepoLinkFileName)
	if err := afero.WriteFile(fs, path, contents, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// RemoveRepoLink deletes the repository link, e.g. after the remote
// repository itself has been deleted.
func RemoveRepoLink(dir string) error {
	err := fs.Remove(filepath.Join(dir, RepoLinkFileName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
