package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/pkg/version"
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of install-sync.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("install-sync %s\n", version.Version)
		},
	}
}
