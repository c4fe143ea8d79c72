package upgrade

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/pkg/pkgmgr"
)

// New creates a new `upgrade` command.
func New() *cobra.Command {
	var manager, projectPath string

	cmd := &cobra.Command{
		Use:   "upgrade [package]",
		Short: "Upgrade one tracked package, or all of them.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var err error
			gitFlags := util.GetGitFlags(cmd)
			if len(args) == 1 {
				err = runOne(args[0], manager, projectPath, gitFlags)
			} else {
				err = runAll(projectPath, gitFlags)
			}
			if err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&manager, "manager", "m", "",
		"Package manager to use (apt, brew, poetry, winget)")
	cmd.Flags().StringVarP(&projectPath, "project", "p", "",
		"Project path for the poetry manager")
	return cmd
}

func runOne(pkg, managerFlag, projectPath string, gitFlags util.GitFlags) error {
	session, err := util.LoadSession()
	if err != nil {
		return err
	}

	record, tracked := session.Tracking.FindPackage(session.Profile.ProfileID, pkg)
	if !tracked {
		fmt.Printf("Package %s is not tracked. "+
			"Use `install-sync install %s` to add it first.\n", pkg, pkg)
		return nil
	}

	manager, err := session.ResolveManager(managerFlag, pkg, projectPath)
	if err != nil {
		return err
	}

	if !manager.IsInstalled(pkg) {
		fmt.Printf("Package %s is not installed via %s\n", pkg, manager.Name())
		return nil
	}

	fmt.Printf("Upgrading %s using %s...\n", pkg, manager.Name())
	status, err := manager.Upgrade(pkg)
	if err != nil {
		return err
	}

	switch status {
	case pkgmgr.AlreadyCurrent:
		fmt.Printf("%s is already up to date\n", pkg)
		return nil
	case pkgmgr.NotUpgradable:
		fmt.Printf("%s cannot be upgraded via %s; it may require a manual update\n",
			pkg, manager.Name())
		return nil
	}

	newVersion, _ := manager.Version(pkg)
	session.Tracking.SetPackageVersion(session.Profile.ProfileID, pkg, newVersion)
	fmt.Printf("Updated %s: %s -> %s\n", pkg, orUnknown(record.Version), orUnknown(newVersion))

	message := fmt.Sprintf("Upgrade %s from %s to %s on %s",
		pkg, orUnknown(record.Version), orUnknown(newVersion), session.Profile.MachineName)
	return session.RecordChange(gitFlags, message)
}

func runAll(projectPath string, gitFlags util.GitFlags) error {
	session, err := util.LoadSession()
	if err != nil {
		return err
	}

	records := session.Tracking.PackagesFor(session.Profile.ProfileID)
	if len(records) == 0 {
		fmt.Println("No packages tracked for this machine")
		return nil
	}

	// Group the tracked packages by their manager so each UpgradeAll runs
	// once.
	byManager := map[string][]string{}
	for _, record := range records {
		byManager[record.PackageManager] =
			append(byManager[record.PackageManager], record.Name)
	}

	var upgraded int
	for name, pkgs := range byManager {
		manager, err := session.ResolveManager(name, "", projectPath)
		if err != nil {
			fmt.Printf("Skipped %s: %s\n", name, err)
			continue
		}

		fmt.Printf("Upgrading %s packages...\n", name)
		if err := manager.UpgradeAll(); err != nil {
			fmt.Printf("Skipped %s: %s\n", name, err)
			continue
		}

		// Refresh the recorded versions of anything that changed.
		for _, pkg := range pkgs {
			record, _ := session.Tracking.FindPackage(session.Profile.ProfileID, pkg)
			newVersion, ok := manager.Version(pkg)
			if !ok || newVersion == record.Version {
				continue
			}
			session.Tracking.SetPackageVersion(session.Profile.ProfileID, pkg, newVersion)
			fmt.Printf("Updated %s: %s -> %s\n",
				pkg, orUnknown(record.Version), newVersion)
			upgraded++
		}
	}

	if upgraded == 0 {
		fmt.Println("All packages are already up to date")
		return nil
	}

	message := fmt.Sprintf("Upgrade %d packages on %s",
		upgraded, session.Profile.MachineName)
	return session.RecordChange(gitFlags, message)
}

func orUnknown(version string) string {
	if version == "" {
		return "unknown"
	}
	return version
}
