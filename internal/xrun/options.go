package xrun

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultExcludes are always excluded unless designated as the entry point.
var DefaultExcludes = []string{"main.py", "boot.py"}

// ParseRemap parses "src:tgt" rules into a map from source stem to
// target stem. Both sides must be single file names; any extension is
// dropped, so "main.py:main1" and "main:main1" are equivalent.
func ParseRemap(rules []string) (map[string]string, error) {
	remap := make(map[string]string, len(rules))
	for _, rule := range rules {
		src, tgt, ok := strings.Cut(rule, ":")
		if !ok || strings.Contains(tgt, ":") {
			return nil, fmt.Errorf("%w %q: must be \"src:tgt\"", ErrBadRemap, rule)
		}

		for _, name := range []string{src, tgt} {
			if name == "" || strings.ContainsAny(name, `/\`) {
				return nil, fmt.Errorf("%w %q: %q must be a single file name", ErrBadRemap, rule, name)
			}
		}

		remap[stem(src)] = stem(tgt)
	}
	return remap, nil
}

// ResolveEntryPoint turns the program name given by the user into the
// relative path of a top level source file under root. The ".py"
// extension is added, replacing any other extension.
func ResolveEntryPoint(root, name string) (string, error) {
	clean := normalizeRel(name)
	if strings.Contains(clean, "/") {
		return "", fmt.Errorf("%w: %s", ErrEntryPointNotTopLevel, name)
	}

	rel := stem(clean) + ".py"
	info, err := os.Stat(filepath.Join(root, rel))
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s does not exist or is not a file", ErrEntryPointNotFound, rel)
	}
	return rel, nil
}

// MergeExcludes combines the defaults with the configured entries,
// normalised to clean slash paths without duplicates. The entry point,
// if any, is removed so it can never be excluded.
func MergeExcludes(configured []string, entry string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range append(append([]string{}, DefaultExcludes...), configured...) {
		e = normalizeRel(e)
		if e == "" || e == "." || seen[e] || e == entry {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// normalizeRel cleans a user supplied relative path into slash form.
func normalizeRel(p string) string {
	p = path.Clean(filepath.ToSlash(strings.TrimSpace(p)))
	p = strings.TrimPrefix(p, "./")
	return strings.TrimSuffix(p, "/")
}

// stem returns the file name without directory or extension.
func stem(name string) string {
	base := path.Base(filepath.ToSlash(name))
	return strings.TrimSuffix(base, path.Ext(base))
}
