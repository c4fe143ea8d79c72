package track

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/pkg/config"
	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// New creates a new `track` command.
func New() *cobra.Command {
	var manager, version string

	cmd := &cobra.Command{
		Use:   "track <package>",
		Short: "Track an already installed package without installing it.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			err := run(args[0], manager, version, util.GetGitFlags(cmd))
			if err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&manager, "manager", "m", "",
		"Package manager that installed the package (apt, brew, poetry, winget)")
	cmd.Flags().StringVarP(&version, "version", "v", "",
		"Package version (auto-detected if not provided)")
	return cmd
}

func run(pkg, managerFlag, version string, gitFlags util.GitFlags) error {
	session, err := util.LoadSession()
	if err != nil {
		return err
	}

	if session.Tracking.IsTracked(session.Profile.ProfileID, pkg) {
		fmt.Printf("Package %s is already tracked\n", pkg)
		return nil
	}

	manager, err := session.ResolveManager(managerFlag, "", "")
	if err != nil {
		return err
	}

	if !manager.IsInstalled(pkg) {
		return errors.NewFriendlyError(
			"Package %s is not installed on this system.\n"+
				"Use `install-sync install %s` to install it first.", pkg, pkg)
	}

	if version == "" {
		version, _ = manager.Version(pkg)
	}

	session.Tracking.AddPackage(session.Profile.ProfileID,
		config.NewPackageRecord(pkg, manager.Name(), version))

	if version == "" {
		version = "unknown"
	}
	fmt.Printf("Tracking %s (version: %s) using %s\n", pkg, version, manager.Name())

	message := fmt.Sprintf("Track existing package: %s on %s",
		pkg, session.Profile.MachineName)
	return session.RecordChange(gitFlags, message)
}
