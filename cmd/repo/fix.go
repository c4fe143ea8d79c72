package repo

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/pkg/config"
	"github.com/jorisdejosselin/install-sync/pkg/errors"
	"github.com/jorisdejosselin/install-sync/pkg/sync"
	"github.com/jorisdejosselin/install-sync/pkg/vcs"
)

func newFix() *cobra.Command {
	return &cobra.Command{
		Use:   "fix",
		Short: "Repair the git configuration if a previous setup failed.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runFix(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func runFix() error {
	dir, err := config.TrackingDir()
	if err != nil {
		return err
	}

	link, err := config.ParseRepoLink(dir)
	if err != nil {
		return errors.NewFriendlyError(
			"No repository configuration found. Run `install-sync repo setup` first.")
	}

	// Init is a no-op on an existing repository.
	adapter, err := vcs.Init(dir, vcs.Options{
		TrackedFile: config.TrackingFileName,
		Merge:       config.MergeTracking,
	})
	if err != nil {
		return err
	}

	if err := adapter.AddRemote(sync.DefaultRemote, link.CloneURL); err != nil {
		return err
	}
	fmt.Println("Remote 'origin' configured")

	if err := writeRepoFiles(dir, link.RepoName); err != nil {
		return err
	}
	if err := config.WriteTracking(dir, config.ParseTracking(dir)); err != nil {
		return err
	}

	fmt.Println("Committing and pushing pending changes...")
	engine := sync.New(adapter, sync.Options{})
	if _, err := engine.CommitAndPush("Fix: Complete install-sync setup"); err != nil {
		log.WithError(err).Warn("Sync failed")
		return errors.WithContext(err,
			"sync with remote (manual intervention may be required)")
	}

	fmt.Println("Git configuration fixed successfully!")
	return nil
}
