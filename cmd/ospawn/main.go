package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot assembles the command tree.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	runFlags := &RunFlags{}
	serveFlags := &ServeFlags{}
	signalFlags := &SignalFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createRunCommand(globalFlags, runFlags),
		createServeCommand(globalFlags, serveFlags),
		createSignalCommand(signalFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags.
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "ospawn",
		Short: "Spawn and track child processes",
		Long: `Ospawn spawns child processes with file actions and spawn
attributes (redirections, signal setup, sessions, scheduling), waits for
them, and reports typed spawn errors.

Examples:
  ospawn run -- /usr/bin/env
  ospawn run --stdout=/tmp/out.log --new-session -- /usr/bin/myapp --flag
  ospawn serve config.toml          # Start HTTP job server`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}
