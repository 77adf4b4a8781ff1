package xrun

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// sourcePattern selects the files xrun compiles.
const sourcePattern = "**/*.py"

// Candidate is a watched source file and the artifact built from it.
type Candidate struct {
	// Source is the slash path of the source file relative to the root.
	Source string

	// Artifact is the slash path of the compiled file relative to the
	// cache root. It is also the name shown in progress lines.
	Artifact string
}

// Dir returns the source directory relative to the root, or "" for a
// top level file.
func (c Candidate) Dir() string {
	if d := path.Dir(c.Source); d != "." {
		return d
	}
	return ""
}

// Plan is the outcome of one resolution pass.
type Plan struct {
	// WatchSet holds every accepted source, sorted.
	WatchSet []string

	// Stale holds the accepted sources whose artifact is missing or
	// not newer than the source, sorted by source.
	Stale []Candidate
}

// Resolver walks the source tree, filters it and compares every accepted
// file against its cached artifact.
type Resolver struct {
	// Root is the working directory that holds the sources.
	Root string

	// Cache locates artifacts.
	Cache *Cache

	// Excludes are clean slash paths or doublestar patterns, as
	// returned by MergeExcludes.
	Excludes []string

	// Depth limits how many path components an accepted file may have.
	// Zero or less means unlimited.
	Depth int

	// Entry is the designated program file, "" when there is none.
	Entry string

	// EntryModule is the module name the entry point is deployed as.
	// Empty means the entry point keeps its own name.
	EntryModule string

	// Only restricts watching and compiling to the entry point.
	Only bool
}

// Resolve builds the WatchSet and stale list from the filesystem.
// Every call starts from scratch.
func (r *Resolver) Resolve() (*Plan, error) {
	sources, err := doublestar.Glob(os.DirFS(r.Root), sourcePattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list sources under %s: %w", r.Root, err)
	}
	sort.Strings(sources)

	plan := &Plan{}
	entrySeen := false
	for _, src := range sources {
		if !r.Accept(src) {
			continue
		}

		plan.WatchSet = append(plan.WatchSet, src)
		if src == r.Entry {
			entrySeen = true
		}

		c := r.candidate(src)
		stale, err := r.isStale(c)
		if err != nil {
			return nil, err
		}
		if stale {
			plan.Stale = append(plan.Stale, c)
		}
	}

	if r.Entry != "" && !entrySeen {
		return nil, fmt.Errorf("%w: %s", ErrEntryPointNotFound, r.Entry)
	}

	return plan, nil
}

// Accept reports whether the relative slash path src passes the cache,
// exclusion, depth and only-mode filters.
func (r *Resolver) Accept(src string) bool {
	if src == CacheDirName || strings.HasPrefix(src, CacheDirName+"/") {
		return false
	}

	if Excluded(src, r.Excludes) {
		return false
	}

	if r.Depth > 0 && Depth(src) > r.Depth {
		return false
	}

	if r.Only && r.Entry != "" && src != r.Entry {
		return false
	}

	return true
}

// candidate maps a source to its artifact, applying the entry point remap.
func (r *Resolver) candidate(src string) Candidate {
	artifact := strings.TrimSuffix(src, path.Ext(src)) + ".mpy"
	if src == r.Entry && r.EntryModule != "" {
		artifact = path.Join(path.Dir(src), r.EntryModule+".mpy")
	}
	return Candidate{Source: src, Artifact: artifact}
}

// isStale reports whether the artifact is missing or not strictly newer
// than its source.
func (r *Resolver) isStale(c Candidate) (bool, error) {
	srcInfo, err := os.Stat(sourcePath(r.Root, c.Source))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Deleted since the walk; the watcher will pick it up.
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", c.Source, err)
	}

	artInfo, err := os.Stat(r.Cache.Path(c.Artifact))
	if err != nil {
		return true, nil
	}

	return !artInfo.ModTime().After(srcInfo.ModTime()), nil
}

// sourcePath joins a relative slash path onto root.
func sourcePath(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Excluded reports whether src equals an exclude entry or lies below one.
// Plain entries match whole leading path components; entries holding
// glob metacharacters are doublestar patterns matched against src and
// its parent directories.
func Excluded(src string, excludes []string) bool {
	for _, e := range excludes {
		if hasMeta(e) {
			if matched, err := doublestar.Match(e, src); err == nil && matched {
				return true
			}
			if matched, err := doublestar.Match(e+"/**", src); err == nil && matched {
				return true
			}
			continue
		}

		if src == e || strings.HasPrefix(src, e+"/") {
			return true
		}
	}
	return false
}

// Depth returns the number of path components in the slash path p.
func Depth(p string) int {
	return strings.Count(p, "/") + 1
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
