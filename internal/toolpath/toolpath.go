// Package toolpath locates the external programs mpr drives.
package toolpath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when an explicitly configured tool path does
// not name an existing file.
var ErrNotFound = errors.New("tool not found")

// Locator resolves tool paths relative to a base directory, normally the
// directory of the running executable.
type Locator struct {
	// BaseDir is where explicit relative paths and sibling tools are
	// looked up.
	BaseDir string

	// Home replaces a leading "~". Empty uses os.UserHomeDir.
	Home string
}

// NewLocator returns a Locator based on the directory of the running
// executable.
func NewLocator() *Locator {
	base := "."
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		base = filepath.Dir(exe)
	}
	return &Locator{BaseDir: base}
}

// Locate works out which program to run for name.
//
// Precedence:
//  1. An explicit option, with "~" expanded and relative paths taken from
//     BaseDir. It must exist.
//  2. A file called name next to the executable.
//  3. The bare name, left to PATH.
func (l *Locator) Locate(option, name string) (string, error) {
	if option != "" {
		p := l.expand(option)
		if !filepath.IsAbs(p) {
			p = filepath.Join(l.BaseDir, p)
		}
		if !isFile(p) {
			return "", fmt.Errorf("%w: %s %s does not exist", ErrNotFound, name, p)
		}
		return p, nil
	}

	if sibling := filepath.Join(l.BaseDir, name); isFile(sibling) {
		return sibling, nil
	}

	return name, nil
}

// expand replaces a leading "~" with the home directory.
func (l *Locator) expand(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}

	home := l.Home
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		home = h
	}
	return filepath.Join(home, p[1:])
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
