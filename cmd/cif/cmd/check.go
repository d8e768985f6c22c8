package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cif/internal/version"
)

// checkCmd is a minimal liveness probe for deployment tooling: print the
// running build's version and exit 0 without touching the database or any
// configured source.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Print build version and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
