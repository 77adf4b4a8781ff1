package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/mprtool/mpr/internal/config"
	"github.com/mprtool/mpr/internal/device"
	"github.com/mprtool/mpr/internal/logging"
	"github.com/mprtool/mpr/internal/pathinfer"
	"github.com/mprtool/mpr/internal/toolpath"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = ""

var (
	settings config.Global
	client   *device.Client
	infer    *pathinfer.Inferrer
	locator  *toolpath.Locator
	logSink  *logging.Sink
	logger   = log.New(os.Stderr, "[mpr] ", 0)

	// resetAfter is the mpremote command run before exiting, if any.
	resetAfter string
)

var rootCmd = &cobra.Command{
	Use:   "mpr",
	Short: "Conventional command line wrapper for MicroPython's mpremote",
	Long: `mpr wraps the MicroPython mpremote tool with a more conventional
command line interface. Multiple arguments can be given to most commands
and every command has its own usage help.

Default global options can be set in mpr.toml in your user config
directory, or through MPR_* environment variables (e.g. MPR_DEVICE).
Use "mpr config" to edit the file.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentPreRunE = setup

	rootCmd.AddGroup(
		&cobra.Group{ID: "files", Title: "File Commands:"},
		&cobra.Group{ID: "device", Title: "Device Commands:"},
		&cobra.Group{ID: "run", Title: "Run Commands:"},
		&cobra.Group{ID: "tools", Title: "Tool Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringP(config.KeyDevice, "d", "", `serial port/device to connect to, default is "auto". Specify "-d list" to print out device mnemonics that can be used`)
	flags.StringP(config.KeyMount, "m", "", "mount local directory on device before command")
	flags.StringP(config.KeyMountUnsafeLinks, "M", "", "mount local directory and allow external links")
	flags.BoolP("reset", "x", false, "do soft reset after command")
	flags.BoolP("reboot", "b", false, "do hard reboot after command")
	flags.StringP(config.KeyPathToMpremote, "p", "", `path to mpremote program. Assumes same directory as this program, or then just "mpremote"`)
	flags.StringP(config.KeyPathToMpyCross, "X", "", `path to mpy-cross program (for xrun command). Assumes same directory as this program, or then just "mpy-cross"`)
	flags.String(config.KeyMipListURL, config.DefaultMipListURL, "mip list url for packages")
	flags.BoolP(config.KeyVerbose, "v", false, "print mpremote execution command line (for debug)")
	flags.BoolP("version", "V", false, "print mpr version")
	flags.Bool("debug", false, "write diagnostics to stderr")
	flags.String("log-file", "", "append diagnostics to a rotated log file")
	rootCmd.MarkFlagsMutuallyExclusive("reset", "reboot")
}

// setup loads configuration and builds the device client shared by every
// command.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(config.DotEnvFile); err != nil {
		return err
	}

	v, err := config.NewGlobal(config.Dir(), rootCmd.PersistentFlags())
	if err != nil {
		return err
	}
	settings = config.GlobalFrom(v)

	opts := logging.DefaultOptions()
	opts.Debug, _ = cmd.Flags().GetBool("debug")
	opts.File, _ = cmd.Flags().GetString("log-file")
	logSink = logging.NewSink(opts)
	logger = logSink.Logger("[mpr] ")
	if used := v.ConfigFileUsed(); used != "" {
		logger.Printf("config: %s", used)
	}

	if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
		fmt.Println(version())
	}

	if device.IsListRequest(settings.Device) {
		fmt.Println(device.Names)
		closeLogs()
		os.Exit(0)
	}

	if reboot, _ := cmd.Flags().GetBool("reboot"); reboot {
		resetAfter = "reset"
	} else if reset, _ := cmd.Flags().GetBool("reset"); reset {
		resetAfter = "soft-reset"
	}

	locator = toolpath.NewLocator()
	tool, err := locator.Locate(settings.PathToMpremote, device.DefaultTool)
	if err != nil {
		return err
	}

	client = device.NewClient(tool)
	client.Device = device.ResolveDevice(settings.Device)
	client.Mount = settings.Mount
	client.MountUnsafeLinks = settings.MountUnsafeLinks
	client.Verbose = settings.Verbose
	logger.Printf("mpremote: %s %v", tool, client.Base()[1:])

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	infer = pathinfer.New(cwd)
	return nil
}

func version() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "unknown"
}

// exit runs the pending post-command reset, if any, and exits. A failed
// reset replaces code with the reset's exit code.
func exit(code int) {
	if resetAfter != "" && client != nil {
		cmd := resetAfter
		resetAfter = ""
		if err := client.Run(context.Background(), cmd); err != nil {
			code = exitCode(err)
		}
	}
	closeLogs()
	os.Exit(code)
}

// check exits with the device tool's status when err is non-nil.
func check(err error) {
	if err == nil {
		return
	}
	logger.Printf("command failed: %v", err)
	if !device.IsExitError(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	exit(exitCode(err))
}

// fatal prints msg and exits 1, still honouring a pending reset.
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	exit(1)
}

func exitCode(err error) int {
	if code := device.GetExitCode(err); code > 0 {
		return code
	}
	return 1
}

func closeLogs() {
	if logSink != nil {
		_ = logSink.Close()
	}
}
