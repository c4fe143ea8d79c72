package info

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
)

// New creates a new `info` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show machine, statistics, and repository information.",
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

	fmt.Println("Machine Information")
	fmt.Printf("  Name:         %s\n", session.Profile.MachineName)
	fmt.Printf("  OS:           %s\n", session.Profile.OSType)
	fmt.Printf("  Architecture: %s\n", session.Profile.Architecture)
	fmt.Printf("  Profile ID:   %s\n", session.Profile.ProfileID)

	var total int
	for _, packages := range session.Tracking.Packages {
		total += len(packages)
	}
	fmt.Println("\nStatistics")
	fmt.Printf("  Total machines:           %d\n", len(session.Tracking.Machines))
	fmt.Printf("  Total packages:           %d\n", total)
	fmt.Printf("  Packages on this machine: %d\n",
		len(session.Tracking.PackagesFor(session.Profile.ProfileID)))

	fmt.Println("\nGit Repository")
	fmt.Printf("  Directory:   %s\n", session.Dir)

	adapter, err := session.Adapter()
	if err != nil {
		fmt.Println("  Status:      not initialized")
		fmt.Println("  Run `install-sync repo setup` to enable git tracking")
		return nil
	}

	fmt.Println("  Status:      initialized")
	fmt.Printf("  Auto-commit: %t\n", session.Tracking.Git.AutoCommit)
	fmt.Printf("  Auto-push:   %t\n", session.Tracking.Git.AutoPush)

	if commits, err := adapter.History(3); err == nil && len(commits) > 0 {
		fmt.Println("  Recent commits:")
		for _, commit := range commits {
			fmt.Printf("    %s %s\n", commit.Hash, commit.Message)
		}
	}
	return nil
}
