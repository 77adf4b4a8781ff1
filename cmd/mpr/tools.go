package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mprtool/mpr/internal/config"
	"github.com/mprtool/mpr/internal/editor"
	"github.com/mprtool/mpr/internal/mip"
)

var mipCmd = &cobra.Command{
	Use:     "mip [flags] install|list [package...]",
	Aliases: []string{"m"},
	GroupID: "tools",
	Short:   "Install packages from micropython-lib or third-party sources",
	Long: `Install packages from micropython-lib or third-party sources.

Packages are given as "name", "name@version", "github:org/repo" or
"github:org/repo@branch". "mip list" prints the packages available from
the index at --mip-list-url.`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: []string{"install", "list"},
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "list":
			pkgs, err := mip.FetchIndex(cmd.Context(), nil, settings.MipListURL)
			if err != nil {
				fatal("%v", err)
			}
			if err := mip.WriteTable(os.Stdout, pkgs); err != nil {
				fatal("%v", err)
			}
		case "install":
			if len(args) < 2 {
				fatal("must specify package")
			}
			check(client.Run(cmd.Context(), mipInstallArgs(cmd, args[1:])...))
		default:
			fatal("invalid mip command %q (choose from install, list)", args[0])
		}
	},
}

func mipInstallArgs(cmd *cobra.Command, pkgs []string) []string {
	argv := []string{"mip"}
	if noMpy, _ := cmd.Flags().GetBool("no-mpy"); noMpy {
		argv = append(argv, "--no-mpy")
	}
	if target, _ := cmd.Flags().GetString("target"); target != "" {
		argv = append(argv, "--target", target)
	}
	if index, _ := cmd.Flags().GetString("index"); index != "" {
		argv = append(argv, "--index", index)
	}
	argv = append(argv, "install")
	return append(argv, pkgs...)
}

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cf"},
	GroupID: "tools",
	Short:   "Open the mpr configuration file with your editor",
	Long: `Open the mpr configuration file with your editor.

$EDITOR is used when set. With --show the effective settings, including
any mpr-xrun.toml in effect, are printed as YAML instead.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := config.GlobalPath(config.Dir())

		if show, _ := cmd.Flags().GetBool("show"); show {
			xf, xpath, err := config.LoadXrun(config.XrunDirs())
			if err != nil {
				fatal("%v", err)
			}
			err = config.WriteYAML(os.Stdout, config.Effective{
				GlobalFile: path,
				XrunFile:   xpath,
				Global:     settings,
				Xrun:       xf,
			})
			if err != nil {
				fatal("%v", err)
			}
			return
		}

		if err := editor.Open(cmd.Context(), path); err != nil {
			fatal("%v", err)
		}
	},
}

func init() {
	mipCmd.Flags().BoolP("no-mpy", "n", false, "download .py files, not compiled .mpy files")
	mipCmd.Flags().StringP("target", "t", "", `destination directory on device, default="/lib"`)
	mipCmd.Flags().StringP("index", "i", "", `package index to use, default="micropython-lib"`)

	configCmd.Flags().Bool("show", false, "print the effective settings as YAML")

	rootCmd.AddCommand(mipCmd, configCmd)
}
