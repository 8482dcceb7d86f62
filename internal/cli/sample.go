package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/sample"
)

var sampleCmd = &cobra.Command{
	Use:   "sample <dir>",
	Short: "Generate a sample Python project for trying out the resolver",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		dir, err := sample.Generate(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("sample project written to %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)
}
