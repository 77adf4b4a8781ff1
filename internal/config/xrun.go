package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// XrunFileName is the per-project xrun defaults file.
const XrunFileName = "mpr-xrun.toml"

// XrunFile mirrors mpr-xrun.toml. Unset scalars are nil so they can be
// told apart from explicit zero values.
type XrunFile struct {
	Exclude        []string `toml:"exclude" yaml:"exclude,omitempty"`
	Map            []string `toml:"map" yaml:"map,omitempty"`
	Depth          *int     `toml:"depth" yaml:"depth,omitempty"`
	Only           *bool    `toml:"only" yaml:"only,omitempty"`
	CompileOnly    *bool    `toml:"compile-only" yaml:"compile-only,omitempty"`
	Once           *bool    `toml:"once" yaml:"once,omitempty"`
	Flush          *bool    `toml:"flush" yaml:"flush,omitempty"`
	PathToMpyCross string   `toml:"path-to-mpy-cross" yaml:"path-to-mpy-cross,omitempty"`
	Watcher        string   `toml:"watcher" yaml:"watcher,omitempty"`
	PollInterval   string   `toml:"poll-interval" yaml:"poll-interval,omitempty"`
}

// XrunDirs returns the directories searched for mpr-xrun.toml, in order.
func XrunDirs() []string {
	return []string{".", Dir()}
}

// LoadXrun decodes the first mpr-xrun.toml found in dirs. It returns a
// nil file and empty path when none exists. Unknown keys are an error.
func LoadXrun(dirs []string) (*XrunFile, string, error) {
	for _, dir := range dirs {
		path := filepath.Join(dir, XrunFileName)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		var f XrunFile
		md, err := toml.DecodeFile(path, &f)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, "", fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
		if f.PollInterval != "" {
			if _, err := time.ParseDuration(f.PollInterval); err != nil {
				return nil, "", fmt.Errorf("%s: poll-interval: %w", path, err)
			}
		}
		return &f, path, nil
	}
	return nil, "", nil
}

// XrunOptions are the xrun settings after flags and file are merged.
type XrunOptions struct {
	Exclude        []string
	Map            []string
	Depth          int
	Only           bool
	CompileOnly    bool
	Once           bool
	Flush          bool
	PathToMpyCross string
	Watcher        string
	PollInterval   time.Duration
}

// Apply merges f into o. List settings are unioned with what o already
// holds. A scalar from the file is used only when changed reports that
// the corresponding flag was not given on the command line.
func (f *XrunFile) Apply(o *XrunOptions, changed func(flag string) bool) {
	if f == nil {
		return
	}

	o.Exclude = union(o.Exclude, f.Exclude)
	o.Map = union(o.Map, f.Map)

	if f.Depth != nil && !changed("depth") {
		o.Depth = *f.Depth
	}
	if f.Only != nil && !changed("only") {
		o.Only = *f.Only
	}
	if f.CompileOnly != nil && !changed("compile-only") {
		o.CompileOnly = *f.CompileOnly
	}
	if f.Once != nil && !changed("once") {
		o.Once = *f.Once
	}
	if f.Flush != nil && !changed("flush") {
		o.Flush = *f.Flush
	}
	if f.PathToMpyCross != "" && !changed("path-to-mpy-cross") {
		o.PathToMpyCross = f.PathToMpyCross
	}
	if f.Watcher != "" && !changed("watcher") {
		o.Watcher = f.Watcher
	}
	if f.PollInterval != "" && !changed("poll-interval") {
		// Validated by LoadXrun.
		if d, err := time.ParseDuration(f.PollInterval); err == nil {
			o.PollInterval = d
		}
	}
}

// union appends the entries of b missing from a, keeping first-seen order.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
