package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mprtool/mpr/internal/config"
	"github.com/mprtool/mpr/internal/watcher"
	"github.com/mprtool/mpr/internal/xrun"
)

var xrunCmd = &cobra.Command{
	Use:     "xrun [flags] [prog] [-- args...]",
	Aliases: []string{"xr"},
	GroupID: "run",
	Short:   "Compile and run a local application/program on device",
	Long: `Compile and run a local application/program on device.

Displays program output in your local terminal using mpremote while
watching the Python source files of the working directory tree for
changes. Changed files are compiled to .mpy bytecode with mpy-cross in a
hidden cache directory on your host and copied to the device, then the
program is restarted. Arguments after prog are passed in sys.argv on the
device; separate them with -- if they look like options.

Only .mpy bytecode files are copied to the device, never .py sources,
and prog[.py] is imported to run as a .mpy file. Without prog new .mpy
files are merely compiled and copied to the device.

Default options can be set in mpr-xrun.toml in the working directory, or
globally in your user config directory. Exclude and map entries from the
file are added to those given on the command line; other settings apply
unless the option is given on the command line.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := xrunOptions(cmd)
		if err != nil {
			fatal("%v", err)
		}

		var prog string
		var progArgs []string
		if len(args) > 0 {
			prog, progArgs = args[0], args[1:]
		}

		compiler, err := locator.Locate(opts.PathToMpyCross, xrun.DefaultCompiler)
		if err != nil {
			fatal("%v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runXrun(ctx, opts, compiler, prog, progArgs); err != nil {
			stop()
			fatal("%v", err)
		}
	},
}

// xrunOptions merges the command line with mpr-xrun.toml.
func xrunOptions(cmd *cobra.Command) (*config.XrunOptions, error) {
	flags := cmd.Flags()
	opts := &config.XrunOptions{}
	opts.Exclude, _ = flags.GetStringArray("exclude")
	opts.Map, _ = flags.GetStringArray("map")
	opts.Depth, _ = flags.GetInt("depth")
	opts.Only, _ = flags.GetBool("only")
	opts.CompileOnly, _ = flags.GetBool("compile-only")
	opts.Once, _ = flags.GetBool("once")
	opts.Flush, _ = flags.GetBool("flush")
	opts.Watcher, _ = flags.GetString("watcher")
	opts.PollInterval, _ = flags.GetDuration("poll-interval")
	opts.PathToMpyCross = settings.PathToMpyCross

	file, path, err := config.LoadXrun(config.XrunDirs())
	if err != nil {
		return nil, err
	}
	if file != nil {
		logger.Printf("xrun config: %s", path)
		file.Apply(opts, func(name string) bool {
			// path-to-mpy-cross may also come from mpr.toml or MPR_*.
			if name == config.KeyPathToMpyCross {
				return settings.PathToMpyCross != ""
			}
			return flags.Changed(name)
		})
	}
	return opts, nil
}

func runXrun(ctx context.Context, opts *config.XrunOptions, compiler, prog string, args []string) error {
	kind, err := watcher.ParseKind(opts.Watcher)
	if err != nil {
		return fmt.Errorf("watcher %q: %w", opts.Watcher, err)
	}

	cfg := xrun.DefaultConfig()
	cfg.Program = prog
	cfg.Args = args
	cfg.Excludes = opts.Exclude
	cfg.Maps = opts.Map
	cfg.Depth = opts.Depth
	cfg.Only = opts.Only
	cfg.CompileOnly = opts.CompileOnly
	cfg.Once = opts.Once
	cfg.Flush = opts.Flush
	cfg.Compiler = compiler
	cfg.Device = client
	cfg.Logger = logSink.Logger("[xrun] ")

	if prog != "" && !opts.CompileOnly && !opts.Once {
		w, err := watcher.New(
			watcher.WithKind(kind),
			watcher.WithPollInterval(opts.PollInterval),
			watcher.WithLogger(logSink.Logger("[watch] ")),
		)
		if err != nil {
			return err
		}
		defer w.Close()
		cfg.Watcher = w
		cfg.Logger.Printf("watcher: %s", w.Kind())
	}

	loop, err := xrun.New(cfg)
	if err != nil {
		return err
	}

	if err := loop.Run(ctx); err != nil {
		return err
	}
	cfg.Logger.Printf("finished: %s", loop.State())
	return nil
}

func addXrunFlags(flags *pflag.FlagSet) {
	flags.BoolP("flush", "f", false, "flush cache and force update of all .mpy files at start")
	flags.IntP("depth", "D", 0, "directory depth limit, 1 = current directory only")
	flags.BoolP("only", "o", false, "only monitor the specified program file, not the whole directory/tree")
	flags.BoolP("compile-only", "C", false, "just compile new .mpy files, don't copy to device or run any program")
	flags.StringArrayP("exclude", "e", nil, `exclude specified directory, file or glob from monitoring. Can be given multiple times. Excluding a directory excludes everything below it. "main.py" and "boot.py" are always excluded unless given as prog`)
	flags.StringArray("map", nil, `map source name to a different target name when run as prog, e.g. "main:main1" maps main.py -> main1.mpy and runs "main1". Can be given multiple times`)
	flags.BoolP("once", "1", false, "run once only")
	flags.String("watcher", "", `file watcher: "notify", "poll" or "" for automatic`)
	flags.Duration("poll-interval", watcher.DefaultPollInterval, "interval between checks of the poll watcher")
}

func init() {
	addXrunFlags(xrunCmd.Flags())
	rootCmd.AddCommand(xrunCmd)
}
