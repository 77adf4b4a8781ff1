// Package editor opens files in the user's editor.
package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// defaults are used when $EDITOR is not set.
var defaults = map[string]string{
	"windows": "notepad",
	"darwin":  "open -e",
}

// fallback is the editor for every other system.
const fallback = "vim"

// Command returns the argv that edits path. $EDITOR may carry arguments.
func Command(path string) []string {
	return command(os.Getenv("EDITOR"), runtime.GOOS, path)
}

func command(env, goos, path string) []string {
	editor := strings.TrimSpace(env)
	if editor == "" {
		editor = defaults[goos]
	}
	if editor == "" {
		editor = fallback
	}
	return append(strings.Fields(editor), path)
}

// Open runs the editor on path attached to the terminal and waits for it.
func Open(ctx context.Context, path string) error {
	argv := Command(path)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s failed: %w", argv[0], err)
	}
	return nil
}
