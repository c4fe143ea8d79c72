// Package repo implements the repository management subcommands: creating,
// cloning, inspecting, repairing, and deleting the remote tracking
// repository.
package repo

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
)

// New creates the `repo` command tree.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage the remote tracking repository.",
	}
	cmd.AddCommand(
		newSetup(),
		newClone(),
		newStatus(),
		newHistory(),
		newFix(),
		newDelete(),
	)
	return cmd
}

// tokenEnvVars name the environment variables consulted before prompting for
// an access token.
var tokenEnvVars = map[string]string{
	"github": "GITHUB_TOKEN",
	"gitlab": "GITLAB_TOKEN",
}

func getToken(platform string) string {
	if envVar, ok := tokenEnvVars[platform]; ok {
		if token := os.Getenv(envVar); token != "" {
			return token
		}
	}
	return util.Prompt(
		fmt.Sprintf("Enter your %s personal access token", strings.Title(platform)), "")
}
