package config

import (
	"fmt"
	"sort"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/pkg/config"
	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// New creates the `config` command group for managing global preferences.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage global configuration.",
	}
	cmd.AddCommand(newShow())
	cmd.AddCommand(newSet())
	cmd.AddCommand(newReset())
	return cmd
}

func newShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current global configuration.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runShow(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func runShow() error {
	global := config.ParseGlobal()

	path, err := config.GetGlobalConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	fmt.Println("Global Configuration")
	fmt.Printf("  Config file: %s\n", path)
	fmt.Printf("  File exists: %s\n", yesNo(config.GlobalExists()))

	fmt.Println("\nGit Settings")
	fmt.Printf("  Auto-commit:       %s\n", triStateString(global.GitAutoCommit))
	fmt.Printf("  Auto-push:         %s\n", triStateString(global.GitAutoPush))
	fmt.Printf("  Show prompts:      %s\n", yesNo(global.GitPrompt))
	fmt.Printf("  Remote preference: %s\n", remotePreference(global.PreferSSHRemotes))
	fmt.Printf("  Auto-sync on list: %s\n", yesNo(global.GitAutoSyncOnList))

	trackingDir := global.DefaultTrackingDirectory
	if trackingDir == "" {
		trackingDir = fmt.Sprintf("Default (%s)", config.DefaultTrackingDir)
	}
	fmt.Println("\nDirectories")
	fmt.Printf("  Default tracking directory: %s\n", trackingDir)

	fmt.Println("\nPackage Managers")
	if len(global.PackageManagers) == 0 {
		fmt.Println("  No custom package manager preferences set")
		return nil
	}
	var osTypes []string
	for osType := range global.PackageManagers {
		osTypes = append(osTypes, osType)
	}
	sort.Strings(osTypes)
	for _, osType := range osTypes {
		fmt.Printf("  %s: %s\n", osType, global.PackageManagers[osType])
	}
	return nil
}

func newSet() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set global configuration options.",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runSet(cmd); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	flags := cmd.Flags()
	flags.Bool("git-auto-commit", false, "Enable auto-commit")
	flags.Bool("no-git-auto-commit", false, "Disable auto-commit")
	flags.Bool("git-auto-push", false, "Enable auto-push")
	flags.Bool("no-git-auto-push", false, "Disable auto-push")
	flags.Bool("git-prompt", false, "Prompt before git operations")
	flags.Bool("no-git-prompt", false, "Never prompt before git operations")
	flags.Bool("prefer-ssh", false, "Prefer SSH git remotes")
	flags.Bool("prefer-https", false, "Prefer HTTPS git remotes")
	flags.Bool("git-auto-sync-on-list", false, "Pull before listing packages")
	flags.Bool("no-git-auto-sync-on-list", false, "Do not pull before listing packages")
	flags.String("tracking-directory", "", "Default tracking directory")
	return cmd
}

func runSet(cmd *cobra.Command) error {
	global := config.ParseGlobal()
	updated := false

	if value, ok := triStateFlag(cmd, "git-auto-commit", "no-git-auto-commit"); ok {
		global.GitAutoCommit = &value
		updated = true
		fmt.Printf("Set git auto-commit: %t\n", value)
	}
	if value, ok := triStateFlag(cmd, "git-auto-push", "no-git-auto-push"); ok {
		global.GitAutoPush = &value
		updated = true
		fmt.Printf("Set git auto-push: %t\n", value)
	}
	if value, ok := triStateFlag(cmd, "git-prompt", "no-git-prompt"); ok {
		global.GitPrompt = value
		updated = true
		fmt.Printf("Set git prompts: %t\n", value)
	}
	if value, ok := triStateFlag(cmd, "prefer-ssh", "prefer-https"); ok {
		global.PreferSSHRemotes = value
		updated = true
		fmt.Printf("Set git remote preference: %s\n", remotePreference(value))
	}
	if value, ok := triStateFlag(cmd, "git-auto-sync-on-list", "no-git-auto-sync-on-list"); ok {
		global.GitAutoSyncOnList = value
		updated = true
		fmt.Printf("Set git auto-sync on list: %t\n", value)
	}

	if cmd.Flags().Changed("tracking-directory") {
		raw, _ := cmd.Flags().GetString("tracking-directory")
		expanded, err := homedir.Expand(raw)
		if err != nil {
			return errors.WithContext(err, "expand path")
		}
		global.DefaultTrackingDirectory = expanded
		updated = true
		fmt.Printf("Set default tracking directory: %s\n", expanded)
	}

	if !updated {
		fmt.Println("No changes made")
		return nil
	}

	if err := config.WriteGlobal(global); err != nil {
		return err
	}
	fmt.Println("Global configuration saved")
	return nil
}

// triStateFlag resolves a pair of enable/disable flags into a single value.
// The second return is false when neither flag was given.
func triStateFlag(cmd *cobra.Command, enable, disable string) (bool, bool) {
	if cmd.Flags().Changed(enable) {
		return true, true
	}
	if cmd.Flags().Changed(disable) {
		return false, true
	}
	return false, false
}

func newReset() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the global configuration to defaults.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runReset(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func runReset() error {
	if !config.GlobalExists() {
		fmt.Println("No global configuration file exists")
		return nil
	}

	if !util.Confirm("This will delete your global configuration. Continue?", false) {
		fmt.Println("Reset cancelled")
		return nil
	}

	if err := config.RemoveGlobal(); err != nil {
		return err
	}
	fmt.Println("Global configuration reset to defaults")
	return nil
}

func triStateString(value *bool) string {
	if value == nil {
		return "Default (enabled)"
	}
	return fmt.Sprintf("%t", *value)
}

func remotePreference(preferSSH bool) string {
	if preferSSH {
		return "SSH"
	}
	return "HTTPS"
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
