// Package pathinfer expands short device paths using the host's current
// directory as a hint.
//
// Leading slashes count host directories to borrow: with a cwd of
// /home/me/proj, "/x" is "/x", "//x" is "/proj/x" and "///x" is
// "/me/proj/x". An argument made only of slashes sets the lead directory
// that bare names are placed under for the rest of the invocation.
//
// An Inferrer carries that lead, so use one per command invocation.
package pathinfer

import (
	"path/filepath"
	"strings"
)

// Inferrer resolves device paths for one invocation.
type Inferrer struct {
	dirs []string
	lead int
}

// New returns an Inferrer for the host directory cwd.
func New(cwd string) *Inferrer {
	cwd = filepath.ToSlash(strings.TrimPrefix(cwd, filepath.VolumeName(cwd)))

	var dirs []string
	for _, part := range strings.Split(cwd, "/") {
		if part != "" {
			dirs = append(dirs, part)
		}
	}
	return &Inferrer{dirs: dirs}
}

// Lead returns how many trailing cwd components prefix bare names.
func (i *Inferrer) Lead() int {
	return i.lead
}

// dirList returns "/" joined with the last count cwd components, or ""
// for zero.
func (i *Inferrer) dirList(count int) string {
	if count <= 0 {
		return ""
	}
	return "/" + strings.Join(i.dirs[len(i.dirs)-count:], "/")
}

// Infer expands p. Destination paths are used as given when bare, and an
// all slash destination names a directory instead of setting the lead.
// An empty result means p only set the lead and names nothing.
func (i *Inferrer) Infer(p string, dest bool) string {
	slashes := len(p) - len(strings.TrimLeft(p, "/"))

	if slashes == 0 {
		if dest {
			return p
		}
		if parent := i.dirList(i.lead); parent != "" {
			return parent + "/" + p
		}
		return p
	}

	// No more directories can be borrowed than the cwd has.
	if extra := slashes - len(i.dirs) - 1; extra > 0 {
		p = p[extra:]
		slashes -= extra
	}

	count := slashes - 1
	if slashes != len(p) {
		return i.dirList(count) + p[count:]
	}

	if dest {
		if d := i.dirList(count); d != "" {
			return d
		}
		return "/"
	}

	i.lead = count
	return ""
}
