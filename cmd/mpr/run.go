package main

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:     "run [flags] script...",
	GroupID: "run",
	Short:   "Run the given local programs on device",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, script := range args {
			check(client.Run(cmd.Context(), followArgs(cmd, "run", script)...))
		}
	},
}

var execCmd = &cobra.Command{
	Use:     "exec [flags] string...",
	GroupID: "run",
	Short:   "Execute the given strings on device",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, code := range args {
			check(client.Run(cmd.Context(), followArgs(cmd, "exec", code)...))
		}
	},
}

var evalCmd = &cobra.Command{
	Use:     "eval string...",
	GroupID: "run",
	Short:   "Evaluate and print the given strings on device",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, expr := range args {
			check(client.Run(cmd.Context(), "eval", expr))
		}
	},
}

// followArgs returns the subcommand argv, adding --no-follow when asked.
func followArgs(cmd *cobra.Command, name, arg string) []string {
	if noFollow, _ := cmd.Flags().GetBool("no-follow"); noFollow {
		return []string{name, "--no-follow", arg}
	}
	return []string{name, arg}
}

func init() {
	runCmd.Flags().BoolP("no-follow", "f", false, "do not keep following output, return immediately")
	execCmd.Flags().BoolP("no-follow", "f", false, "do not keep following output, return immediately")

	rootCmd.AddCommand(runCmd, execCmd, evalCmd)
}
