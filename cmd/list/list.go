package list

import (
	"fmt"
	"sort"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/pkg/config"
	"github.com/jorisdejosselin/install-sync/pkg/machine"
)

// New creates a new `list` command.
func New() *cobra.Command {
	var allMachines bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked packages.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(allMachines); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVarP(&allMachines, "all", "a", false,
		"Show packages for all machines")
	return cmd
}

func run(allMachines bool) error {
	session, err := util.LoadSession()
	if err != nil {
		return err
	}
	session.SyncBeforeRead("listing packages")

	if !allMachines {
		packages := session.Tracking.PackagesFor(session.Profile.ProfileID)
		if len(packages) == 0 {
			fmt.Println("No packages recorded for this machine")
			return nil
		}
		printMachine(session.Profile, packages)
		return nil
	}

	// Stable output ordering across invocations.
	var profileIDs []string
	for profileID := range session.Tracking.Machines {
		profileIDs = append(profileIDs, profileID)
	}
	sort.Strings(profileIDs)

	for _, profileID := range profileIDs {
		packages := session.Tracking.PackagesFor(profileID)
		if len(packages) == 0 {
			continue
		}
		printMachine(session.Tracking.Machines[profileID], packages)
		fmt.Println()
	}
	return nil
}

func printMachine(profile machine.Profile, packages []config.PackageRecord) {
	fmt.Printf("Packages on %s (%s)\n", profile.MachineName, profile.OSType)

	table := goterm.NewTable(0, 10, 3, ' ', 0)
	fmt.Fprintf(table, "Package\tManager\tVersion\tInstalled\n")
	for _, pkg := range packages {
		version := pkg.Version
		if version == "" {
			version = "unknown"
		}
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\n",
			pkg.Name, pkg.PackageManager, version,
			pkg.InstalledAt.Format("2006-01-02 15:04"))
	}
	goterm.Println(table)
	goterm.Flush()
}
