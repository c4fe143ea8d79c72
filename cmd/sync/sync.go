package sync

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
)

// New creates a new `sync` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull the latest tracking data from the remote repository.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	session, err := util.LoadSession()
	if err != nil {
		return err
	}

	// Unlike the automatic pre-operation sync, an explicit sync surfaces
	// its failures.
	engine, err := session.Engine(false)
	if err != nil {
		return err
	}

	if _, err := engine.Pull(); err != nil {
		return err
	}

	fmt.Println("Synced with remote repository")
	return nil
}
