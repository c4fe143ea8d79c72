package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/jorisdejosselin/install-sync/cmd/config"
	"github.com/jorisdejosselin/install-sync/cmd/info"
	"github.com/jorisdejosselin/install-sync/cmd/install"
	"github.com/jorisdejosselin/install-sync/cmd/list"
	"github.com/jorisdejosselin/install-sync/cmd/repo"
	syncCmd "github.com/jorisdejosselin/install-sync/cmd/sync"
	"github.com/jorisdejosselin/install-sync/cmd/track"
	"github.com/jorisdejosselin/install-sync/cmd/uninstall"
	"github.com/jorisdejosselin/install-sync/cmd/upgrade"
	"github.com/jorisdejosselin/install-sync/cmd/util"
	"github.com/jorisdejosselin/install-sync/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "INSTALL_SYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	var debug bool
	rootCmd := &cobra.Command{
		Use:   "install-sync",
		Short: "Track installed packages across machines through a git repository.",

		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.BoolVar(&debug, "debug", false, "Enable debug logging")
	persistent.Bool("no-git", false, "Skip git operations for this invocation")
	persistent.Bool("auto-git", false, "Commit and push without prompting")

	rootCmd.AddCommand(
		configCmd.New(),
		info.New(),
		install.New(),
		list.New(),
		repo.New(),
		syncCmd.New(),
		track.New(),
		uninstall.New(),
		upgrade.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
