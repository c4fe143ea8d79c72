package repo

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/pkg/config"
	"github.com/jorisdejosselin/install-sync/pkg/errors"
	"github.com/jorisdejosselin/install-sync/pkg/provider"
	"github.com/jorisdejosselin/install-sync/pkg/sync"
	"github.com/jorisdejosselin/install-sync/pkg/vcs"
)

func newSetup() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create a remote repository and initialize the tracking directory.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runSetup(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func runSetup() error {
	global := config.ParseGlobal()

	fmt.Println("install-sync Repository Setup")
	fmt.Println("This will create a remote repository to track your packages " +
		"across all your machines.")

	platform := util.Prompt("Git platform (github/gitlab)", "github")
	if _, ok := tokenEnvVars[platform]; !ok {
		return errors.NewFriendlyError(
			"Unknown platform %q. Supported platforms: github, gitlab.", platform)
	}

	repoName := util.Prompt("Repository name", "my-software-packages")
	private := util.Confirm("Make the repository private?", true)
	token := getToken(platform)

	host, err := provider.ForPlatform(platform, token)
	if err != nil {
		return err
	}

	var cloneURL string
	exists, err := host.RepoExists(repoName)
	if err != nil {
		return err
	}
	if exists {
		if !util.Confirm(fmt.Sprintf(
			"Repository %q already exists. Use it?", repoName), true) {
			return errors.NewFriendlyError("Setup cancelled.")
		}
		cloneURL = existingCloneURL(platform, repoName)
	} else {
		cloneURL, err = host.CreateRepo(repoName, private)
		if err != nil {
			return err
		}
	}

	if global.PreferSSHRemotes {
		cloneURL = config.ConvertHTTPSToSSH(cloneURL)
	}

	trackingDir, err := chooseTrackingDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(trackingDir, 0755); err != nil {
		return errors.WithContext(err, "create tracking directory")
	}
	fmt.Printf("Package tracking directory: %s\n", trackingDir)

	adapter, err := vcs.Init(trackingDir, vcs.Options{
		TrackedFile: config.TrackingFileName,
		Merge:       config.MergeTracking,
	})
	if err != nil {
		return err
	}
	if err := adapter.AddRemote(sync.DefaultRemote, cloneURL); err != nil {
		return err
	}

	if err := writeRepoFiles(trackingDir, repoName); err != nil {
		return err
	}

	// Seed the tracking document so a fresh clone on another machine finds
	// a well-formed file.
	if err := config.WriteTracking(trackingDir, config.ParseTracking(trackingDir)); err != nil {
		return err
	}

	fmt.Println("Creating initial commit...")
	engine := sync.New(adapter, sync.Options{})
	if _, err := engine.CommitAndPush("Initial commit: install-sync setup"); err != nil {
		log.WithError(err).Warn("Initial push failed")
		fmt.Println("Repository created, but the initial push failed. " +
			"Run `install-sync repo fix` to complete the sync.")
	}

	err = config.WriteRepoLink(trackingDir, config.RepoLink{
		Platform:          platform,
		RepoName:          repoName,
		CloneURL:          cloneURL,
		TrackingDirectory: trackingDir,
		CreatedAt:         time.Now(),
	})
	if err != nil {
		return err
	}

	fmt.Println("\nPackage tracking setup complete!")
	fmt.Printf("Tracking directory: %s\n", trackingDir)
	fmt.Printf("Remote repository:  %s\n", cloneURL)
	fmt.Println("\nTo use install-sync from anywhere, set this environment variable:")
	fmt.Printf("  export %s=%s\n", config.TrackingDirEnvVar, trackingDir)
	return nil
}

// chooseTrackingDir prompts for the tracking directory, steering around
// existing non-empty directories.
func chooseTrackingDir() (string, error) {
	defaultDir, err := homedir.Expand(config.DefaultTrackingDir)
	if err != nil {
		return "", errors.WithContext(err, "expand home directory")
	}

	chosen, err := homedir.Expand(
		util.Prompt("Where should we create your package tracking directory?", defaultDir))
	if err != nil {
		return "", errors.WithContext(err, "expand path")
	}

	if !dirHasContents(chosen) {
		return chosen, nil
	}

	fmt.Printf("Directory %s already exists and is not empty.\n", chosen)
	if util.Confirm("Use it anyway?", false) {
		return chosen, nil
	}

	// Find a free sibling name instead.
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s-%d", chosen, counter)
		if !dirHasContents(candidate) {
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				fmt.Printf("Using new directory: %s\n", candidate)
				return candidate, nil
			}
		}
	}
}

func dirHasContents(path string) bool {
	entries, err := ioutil.ReadDir(path)
	return err == nil && len(entries) > 0
}

func existingCloneURL(platform, repoName string) string {
	// The create response normally carries the clone URL; for an existing
	// repository we need the owner to reconstruct it.
	owner := util.Prompt("Repository owner (user or organization)", "")
	host := "github.com"
	if platform == "gitlab" {
		host = "gitlab.com"
	}
	return fmt.Sprintf("https://%s/%s/%s.git", host, owner, repoName)
}

const gitignoreContents = `# install-sync local configuration files (not synced)
repo-config.json

# Temporary and cache files
*.tmp
*.temp
*.bak
*.log
.DS_Store
.DS_Store?
._*
Thumbs.db
ehthumbs.db

# Note: config.json IS tracked (contains package data to sync across machines)
`

// writeRepoFiles creates the .gitignore and README for a new tracking
// repository. Existing files are left alone.
func writeRepoFiles(dir, repoName string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := ioutil.WriteFile(gitignorePath, []byte(gitignoreContents), 0644); err != nil {
			return errors.WithContext(err, "write .gitignore")
		}
		fmt.Println("Created .gitignore")
	}

	readmePath := filepath.Join(dir, "README.md")
	if _, err := os.Stat(readmePath); os.IsNotExist(err) {
		readme := fmt.Sprintf(readmeTemplate, repoName)
		if err := ioutil.WriteFile(readmePath, []byte(readme), 0644); err != nil {
			return errors.WithContext(err, "write README.md")
		}
		fmt.Println("Created README.md")
	}
	return nil
}

const readmeTemplate = `# %s

Personal software package tracking across multiple machines using
[install-sync](https://github.com/jorisdejosselin/install-sync).

## Files

- ` + "`config.json`" + ` - Package tracking configuration and data
- ` + "`.gitignore`" + ` - Git ignore rules (excludes local-only config files)

## Usage

` + "```bash" + `
# Install and track a package
install-sync install <package-name>

# List packages on current machine
install-sync list

# List packages on all machines
install-sync list --all

# Show machine information
install-sync info

# Sync with this repository
install-sync sync
` + "```" + `

## Supported Package Managers

| Platform | Package Manager | Command |
|----------|-----------------|---------|
| macOS | Homebrew | ` + "`brew`" + ` |
| Windows | Windows Package Manager | ` + "`winget`" + ` |
| Linux | APT | ` + "`apt`" + ` |
| Any | Poetry | ` + "`poetry`" + ` |

Generated by install-sync
`
