package uninstall

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
)

// New creates a new `uninstall` command.
func New() *cobra.Command {
	var manager, projectPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "uninstall <package>",
		Short: "Uninstall a package and remove it from the tracking repository.",
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
		"Uninstall even if the package is not tracked")
	return cmd
}

func run(pkg, managerFlag, projectPath string, force bool, gitFlags util.GitFlags) error {
	session, err := util.LoadSession()
	if err != nil {
		return err
	}

	tracked := session.Tracking.IsTracked(session.Profile.ProfileID, pkg)
	if !force && !tracked {
		fmt.Printf("Package %s is not tracked. Use --force to uninstall anyway.\n", pkg)
		return nil
	}

	manager, err := session.ResolveManager(managerFlag, pkg, projectPath)
	if err != nil {
		return err
	}

	if !manager.IsInstalled(pkg) {
		fmt.Printf("Package %s is not installed via %s\n", pkg, manager.Name())
		if !tracked {
			return nil
		}
		// Stale record; drop it so the document matches reality.
		session.Tracking.RemovePackage(session.Profile.ProfileID, pkg)
		fmt.Printf("Removed %s from tracking\n", pkg)
	} else {
		fmt.Printf("Uninstalling %s using %s...\n", pkg, manager.Name())
		if err := manager.Uninstall(pkg); err != nil {
			return err
		}
		if session.Tracking.RemovePackage(session.Profile.ProfileID, pkg) {
			fmt.Printf("Removed %s from tracking\n", pkg)
		}
	}

	message := fmt.Sprintf("Uninstall %s from %s", pkg, session.Profile.MachineName)
	return session.RecordChange(gitFlags, message)
}
