package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rill/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "rill",
	Short: "Rill lifetime checker",
	Long:  `Rill checks typed-tree dumps produced by the rill front end for temporary values that get dropped while still borrowed`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "maximum number of diagnostics to show (0=manifest default)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
