package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/chunkforge/chunkforge/cli.Version=v1.2.3"
var (
	Version   = "dev"
	CommitSHA = "unknown"
)

// VersionCmd prints build information.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chunkforge %s (commit %s, %s)\n",
				Version, CommitSHA, runtime.Version())
		},
	}
}
