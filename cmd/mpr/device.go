package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:     "reset",
	Aliases: []string{"x"},
	GroupID: "device",
	Short:   "Soft reset the device",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		resetAfter = ""
		check(client.Run(cmd.Context(), "soft-reset"))
	},
}

var rebootCmd = &cobra.Command{
	Use:     "reboot [delay_ms]",
	Aliases: []string{"b"},
	GroupID: "device",
	Short:   "Hard reboot the device",
	Long: `Hard reboot the device.

An optional delay in milliseconds is waited before the reboot.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resetAfter = ""
		argv := []string{"reset"}
		if len(args) > 0 {
			delay, err := strconv.Atoi(args[0])
			if err != nil {
				fatal("invalid delay %q: must be milliseconds", args[0])
			}
			if delay != 0 {
				argv = append(argv, strconv.Itoa(delay))
			}
		}
		check(client.Run(cmd.Context(), argv...))
	},
}

var replCmd = &cobra.Command{
	Use:     "repl",
	Aliases: []string{"r"},
	GroupID: "device",
	Short:   "Enter REPL on device",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		argv := []string{"repl"}
		if escape, _ := cmd.Flags().GetBool("escape-non-printable"); escape {
			argv = append(argv, "--escape-non-printable")
		}
		for _, name := range []string{"capture", "inject-code", "inject-file"} {
			if v, _ := cmd.Flags().GetString(name); v != "" {
				argv = append(argv, "--"+name, v)
			}
		}
		check(client.Run(cmd.Context(), argv...))
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l", "devs"},
	GroupID: "device",
	Short:   "List currently connected devices",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		devs, err := client.Devices(cmd.Context())
		check(err)
		for _, d := range devs {
			fmt.Println(d)
		}
	},
}

var rtcCmd = &cobra.Command{
	Use:     "rtc",
	GroupID: "device",
	Short:   "Get/set the Real Time Clock (RTC) time from/to device",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		argv := []string{"rtc"}
		if set, _ := cmd.Flags().GetBool("set"); set {
			argv = append(argv, "--set")
		}
		check(client.Run(cmd.Context(), argv...))
	},
}

// passthrough returns a command that runs the mpremote subcommand of the
// same name without arguments.
func passthrough(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:     name,
		GroupID: "device",
		Short:   short,
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			check(client.Run(cmd.Context(), name))
		},
	}
}

func init() {
	replCmd.Flags().BoolP("escape-non-printable", "e", false, "print non-printable bytes/chars as hex codes")
	replCmd.Flags().StringP("capture", "c", "", "capture output of the REPL session to given file")
	replCmd.Flags().String("inject-code", "", "characters to inject at the REPL when Ctrl-J is pressed")
	replCmd.Flags().StringP("inject-file", "i", "", "file to inject at the REPL when Ctrl-K is pressed")

	rtcCmd.Flags().BoolP("set", "s", false, "set the RTC to the current PC time, default is to get the time")

	rootCmd.AddCommand(resetCmd, rebootCmd, replCmd, listCmd, rtcCmd,
		passthrough("bootloader", "Enter bootloader on device"),
		passthrough("df", "Show flash usage on device"),
		passthrough("version", "Show mpremote version"),
	)
}
