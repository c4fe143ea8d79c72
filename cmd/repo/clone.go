package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/pkg/config"
	"github.com/jorisdejosselin/install-sync/pkg/errors"
	"github.com/jorisdejosselin/install-sync/pkg/machine"
	"github.com/jorisdejosselin/install-sync/pkg/vcs"
)

func newClone() *cobra.Command {
	var directory string

	cmd := &cobra.Command{
		Use:   "clone <git-url>",
		Short: "Clone an existing tracking repository from another machine.",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if err := runClone(args[0], directory); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&directory, "directory", "d", "",
		"Directory to clone into")
	return cmd
}

func runClone(gitURL, directory string) error {
	var trackingDir string
	var err error
	if directory != "" {
		trackingDir, err = homedir.Expand(directory)
		if err != nil {
			return errors.WithContext(err, "expand path")
		}
	} else {
		trackingDir, err = chooseTrackingDir()
		if err != nil {
			return err
		}
	}

	fmt.Printf("Cloning repository from %s...\n", gitURL)
	_, err = vcs.Clone(trackingDir, gitURL, vcs.Options{
		TrackedFile: config.TrackingFileName,
		Merge:       config.MergeTracking,
	})
	if err != nil {
		return errors.WithContext(err,
			"clone repository (check that the URL is correct and accessible)")
	}
	fmt.Println("Repository cloned successfully!")

	configPath := filepath.Join(trackingDir, config.TrackingFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Println("Warning: this doesn't appear to be an install-sync repository; " +
			"expected to find " + config.TrackingFileName)
	}

	err = config.WriteRepoLink(trackingDir, config.RepoLink{
		Platform:          "external",
		RepoName:          filepath.Base(trackingDir),
		CloneURL:          gitURL,
		TrackingDirectory: trackingDir,
		CreatedAt:         time.Now(),
	})
	if err != nil {
		return err
	}

	fmt.Println("\nRepository setup complete!")
	fmt.Printf("Tracking directory: %s\n", trackingDir)
	fmt.Println("\nTo use install-sync from anywhere, set this environment variable:")
	fmt.Printf("  export %s=%s\n", config.TrackingDirEnvVar, trackingDir)

	printCloneSummary(trackingDir)
	return nil
}

// printCloneSummary reports what the cloned repository already tracks and
// whether this machine is known to it.
func printCloneSummary(trackingDir string) {
	doc := config.ParseTracking(trackingDir)

	var total int
	for _, packages := range doc.Packages {
		total += len(packages)
	}
	fmt.Println("\nRepository contents:")
	fmt.Printf("  Machines tracked: %d\n", len(doc.Machines))
	fmt.Printf("  Total packages:   %d\n", total)

	for profileID, profile := range doc.Machines {
		fmt.Printf("  - %s (%s), %d packages\n",
			profile.MachineName, profile.OSType, len(doc.Packages[profileID]))
	}

	profile, err := machine.Current()
	if err != nil {
		return
	}
	if _, known := doc.Machines[profile.ProfileID]; known {
		fmt.Println("\nThis machine is already tracked in the repository")
	} else {
		fmt.Println("\nThis is a new machine; it will be added when you install packages")
	}
}
