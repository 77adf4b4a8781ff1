package main

import (
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:     "get [flags] src... dst",
	Aliases: []string{"g"},
	GroupID: "files",
	Short:   "Copy one or more files from device to local directory",
	Long: `Copy one or more files from device to local directory.

Use "-" as the destination to print the files to stdout.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		asFile, _ := cmd.Flags().GetBool("file")
		recursive, _ := cmd.Flags().GetBool("recursive")
		force, _ := cmd.Flags().GetBool("force")
		srcs, dst := args[:len(args)-1], args[len(args)-1]

		if dst != "-" {
			parent := dst
			if asFile {
				parent = filepath.Dir(dst)
			}
			if err := os.MkdirAll(parent, 0755); err != nil {
				fatal("failed to create %s: %v", parent, err)
			}
		}

		for _, src := range srcs {
			src = infer.Infer(src, false)
			if src == "" {
				continue
			}

			if dst == "-" {
				check(client.FS(cmd.Context(), false, "cat", src))
				continue
			}

			target := dst
			if !asFile && !recursive {
				target = filepath.Join(dst, path.Base(src))
			}
			check(client.FS(cmd.Context(), false, "cp", cpArgs(recursive, force, ":"+src, target)...))
		}
	},
}

var putCmd = &cobra.Command{
	Use:     "put [flags] src... dst",
	Aliases: []string{"p"},
	GroupID: "files",
	Short:   "Copy one or more local files to directory on device",
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		asFile, _ := cmd.Flags().GetBool("file")
		recursive, _ := cmd.Flags().GetBool("recursive")
		force, _ := cmd.Flags().GetBool("force")
		srcs := args[:len(args)-1]
		dst := infer.Infer(args[len(args)-1], true)

		for _, src := range srcs {
			info, err := os.Stat(src)
			if err != nil {
				fatal("%q does not exist", src)
			}

			target := dst
			switch {
			case recursive:
			case info.IsDir():
				fatal("can not copy directory %q", src)
			case !asFile:
				target = path.Join(dst, filepath.Base(src))
			}
			check(client.FS(cmd.Context(), false, "cp", cpArgs(recursive, force, src, ":"+target)...))
		}
	},
}

var copyCmd = &cobra.Command{
	Use:     "copy [flags] src... dst",
	Aliases: []string{"c"},
	GroupID: "files",
	Short:   "Copy one or more remote files to a directory on device",
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		asFile, _ := cmd.Flags().GetBool("file")
		recursive, _ := cmd.Flags().GetBool("recursive")
		force, _ := cmd.Flags().GetBool("force")
		srcs := args[:len(args)-1]
		dst := infer.Infer(args[len(args)-1], true)

		for _, src := range srcs {
			src = infer.Infer(src, false)
			if src == "" {
				continue
			}

			target := dst
			if !asFile {
				target = path.Join(dst, path.Base(src))
			}
			check(client.FS(cmd.Context(), false, "cp", cpArgs(recursive, force, ":"+src, ":"+target)...))
		}
	},
}

var lsCmd = &cobra.Command{
	Use:     "ls [dir]",
	GroupID: "files",
	Short:   "List directory on device",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "/"
		if len(args) > 0 {
			dir = args[0]
		}
		if p := infer.Infer(dir, true); p != "" {
			check(client.FS(cmd.Context(), false, "ls", p))
		}
	},
}

var mkdirCmd = &cobra.Command{
	Use:     "mkdir [flags] dir...",
	Aliases: []string{"mkd"},
	GroupID: "files",
	Short:   "Create the given directories on device",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		quiet, _ := cmd.Flags().GetBool("quiet")
		for _, dir := range args {
			if p := infer.Infer(dir, true); p != "" {
				check(client.FS(cmd.Context(), quiet, "mkdir", p))
			}
		}
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm [flags] file...",
	GroupID: "files",
	Short:   "Remove the given files on device",
	Args:    cobra.MinimumNArgs(1),
	Run:     runRemove("rm"),
}

var rmdirCmd = &cobra.Command{
	Use:     "rmdir [flags] dir...",
	Aliases: []string{"rmd"},
	GroupID: "files",
	Short:   "Remove the given directories on device",
	Args:    cobra.MinimumNArgs(1),
	Run:     runRemove("rmdir"),
}

func runRemove(name string) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		quiet, _ := cmd.Flags().GetBool("quiet")
		rf, _ := cmd.Flags().GetBool("rf")
		depth, _ := cmd.Flags().GetInt("depth")

		for _, p := range args {
			p = infer.Infer(p, false)
			switch {
			case rf:
				if p == "" {
					p = "/"
				}
				client.RemoveAll(cmd.Context(), p, depth)
			case p != "":
				check(client.FS(cmd.Context(), quiet, name, p))
			}
		}
	}
}

var touchCmd = &cobra.Command{
	Use:     "touch file...",
	GroupID: "files",
	Short:   "Touch the given files on device",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range args {
			if p = infer.Infer(p, false); p != "" {
				check(client.FS(cmd.Context(), false, "touch", p))
			}
		}
	},
}

var editCmd = &cobra.Command{
	Use:     "edit file...",
	Aliases: []string{"e"},
	GroupID: "files",
	Short:   "Edit the given files on device",
	Long: `Edit the given files on device.

Copies the file from device, opens your editor on that local file, then
copies it back.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range args {
			if p = infer.Infer(p, false); p != "" {
				check(client.Run(cmd.Context(), "edit", p))
			}
		}
	},
}

// cpArgs builds the cp arguments. force maps to mpremote's -f.
func cpArgs(recursive, force bool, src, dst string) []string {
	var args []string
	if recursive {
		args = append(args, "-r")
	}
	if force {
		args = append(args, "-f")
	}
	return append(args, src, dst)
}

func addCopyFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("file", "f", false, "destination is file, not directory")
	cmd.Flags().BoolP("recursive", "r", false, "copy directory recursively")
	cmd.Flags().BoolP("force", "F", false, "force recursive copy to overwrite identical files")
}

func addRemoveFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("quiet", "q", false, "suppress normal and error output")
	cmd.Flags().Bool("rf", false, "force remove given directories and files recursively and quietly")
	cmd.Flags().Int("depth", -1, `use with --rf to remove paths recursively to given depth only, 1="/*", 2="/*/*", etc. Default is no limit`)
}

func init() {
	for _, c := range []*cobra.Command{getCmd, putCmd, copyCmd} {
		addCopyFlags(c)
	}
	for _, c := range []*cobra.Command{rmCmd, rmdirCmd} {
		addRemoveFlags(c)
	}
	mkdirCmd.Flags().BoolP("quiet", "q", false, "suppress normal and error output")

	rootCmd.AddCommand(getCmd, putCmd, copyCmd, lsCmd, mkdirCmd, rmCmd, rmdirCmd, touchCmd, editCmd)
}
