package repo

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/pkg/config"
	"github.com/jorisdejosselin/install-sync/pkg/errors"
	"github.com/jorisdejosselin/install-sync/pkg/provider"
)

func newDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the remote repository. This cannot be undone.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runDelete(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func runDelete() error {
	dir, err := config.TrackingDir()
	if err != nil {
		return err
	}

	link, err := config.ParseRepoLink(dir)
	if err != nil {
		return errors.NewFriendlyError(
			"No repository configuration found. Nothing to delete.")
	}

	if link.Platform == "external" {
		return errors.NewFriendlyError(
			"This repository was cloned from an external URL; " +
				"delete it on its hosting platform directly.")
	}

	fmt.Println("WARNING: this will permanently delete the remote repository:")
	fmt.Printf("  Platform:   %s\n", link.Platform)
	fmt.Printf("  Repository: %s\n", link.RepoName)
	fmt.Printf("  URL:        %s\n", link.CloneURL)
	fmt.Println("All data in the remote repository will be lost forever.")

	// Destructive; confirm twice.
	if !util.Confirm(fmt.Sprintf(
		"Are you absolutely sure you want to delete %q?", link.RepoName), false) {
		fmt.Println("Deletion cancelled")
		return nil
	}
	if !util.Confirm("This will permanently destroy all data. Continue?", false) {
		fmt.Println("Deletion cancelled")
		return nil
	}

	host, err := provider.ForPlatform(link.Platform, getToken(link.Platform))
	if err != nil {
		return err
	}

	fmt.Printf("Deleting repository %q...\n", link.RepoName)
	if err := host.DeleteRepo(link.RepoName); err != nil {
		return err
	}

	if err := config.RemoveRepoLink(dir); err != nil {
		return err
	}
	fmt.Println("Repository deleted successfully!")
	fmt.Println("Run `install-sync repo setup` to create a new repository.")
	return nil
}
