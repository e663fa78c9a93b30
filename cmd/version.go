package cmd

import (
	"fmt"

	"github.com/rnwolfe/tasky/internal/version"
	"github.com/spf13/cobra"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print tasky version",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, _ []string) {
	info := version.Get()
	if versionShort {
		fmt.Fprintln(cmd.OutOrStdout(), info.Short())
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "tasky %s\n", info)
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}
