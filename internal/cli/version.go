package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.GetFullVersionInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
