package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render(err.Error()))
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flicks",
		Short: "Browse movie listings from the terminal",
		Long: "Flicks browses TMDb movie listings (now playing, top rated) with\n" +
			"infinite scrolling, title filtering, and posters drawn in the terminal.",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/flicks.yaml", "path to configuration file")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(
		newVersionCmd(),
		newBrowseCmd(),
		newListCmd(),
		newPosterCmd(),
		newConfigCmd(),
		newMCPServeCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Flicks v%s\n", version)
		},
	}
}
