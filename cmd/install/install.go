package install

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/pkg/config"
)

// New creates a new `install` command.
func New() *cobra.Command {
	var manager, projectPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "install <package>",
		Short: "Install a package and record it in the tracking repository.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			err := run(args[0], manager, projectPath, force, util.GetGitFlags(cmd))
			if err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&manager, "manager", "m", "",
		"Package manager to use (apt, brew, poetry, winget)")
	cmd.Flags().StringVarP(&projectPath, "project", "p", "",
		"Project path for the poetry manager")
	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"Install even if the package is already tracked")
	return cmd
}

func run(pkg, managerFlag, projectPath string, force bool, gitFlags util.GitFlags) error {
	session, err := util.LoadSession()
	if err != nil {
		return err
	}

	if !force && session.Tracking.IsTracked(session.Profile.ProfileID, pkg) {
		fmt.Printf("Package %s is already installed\n", pkg)
		return nil
	}

	manager, err := session.ResolveManager(managerFlag, "", projectPath)
	if err != nil {
		return err
	}

	fmt.Printf("Installing %s using %s...\n", pkg, manager.Name())
	if err := manager.Install(pkg); err != nil {
		return err
	}

	version, _ := manager.Version(pkg)
	session.Tracking.AddPackage(session.Profile.ProfileID,
		config.NewPackageRecord(pkg, manager.Name(), version))

	fmt.Printf("Successfully installed %s\n", pkg)

	message := session.Tracking.CommitMessage(pkg, session.Profile.MachineName)
	return session.RecordChange(gitFlags, message)
}
