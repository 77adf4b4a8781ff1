package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func rootFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("mpr", pflag.ContinueOnError)
	flags.StringP(KeyDevice, "d", "", "")
	flags.StringP(KeyMount, "m", "", "")
	flags.String(KeyPathToMpremote, "", "")
	flags.String(KeyMipListURL, "", "")
	flags.BoolP(KeyVerbose, "v", false, "")
	return flags
}

// TestNewGlobal_Defaults verifies a missing config file is not an error.
func TestNewGlobal_Defaults(t *testing.T) {
	v, err := NewGlobal(t.TempDir(), rootFlags())
	require.NoError(t, err)

	g := GlobalFrom(v)
	assert.Equal(t, DefaultMipListURL, g.MipListURL)
	assert.Empty(t, g.Device)
	assert.False(t, g.Verbose)
}

// TestNewGlobal_Precedence verifies flags beat the environment, which
// beats the config file.
func TestNewGlobal_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, GlobalPath(dir), `
device = "u0"
mount = "/srv/app"
path-to-mpremote = "~/bin/mpremote"
verbose = true
`)
	t.Setenv("MPR_MOUNT", "/from/env")
	t.Setenv("MPR_PATH_TO_MPREMOTE", "/env/mpremote")

	flags := rootFlags()
	require.NoError(t, flags.Parse([]string{"-d", "a1"}))

	v, err := NewGlobal(dir, flags)
	require.NoError(t, err)

	g := GlobalFrom(v)
	assert.Equal(t, "a1", g.Device)
	assert.Equal(t, "/from/env", g.Mount)
	assert.Equal(t, "/env/mpremote", g.PathToMpremote)
	assert.True(t, g.Verbose)
	assert.Equal(t, DefaultMipListURL, g.MipListURL)
}

// TestNewGlobal_Malformed verifies a broken config file is reported.
func TestNewGlobal_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, GlobalPath(dir), "device = \n")

	_, err := NewGlobal(dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mpr.toml")
}

// TestLoadDotEnv verifies .env values land in the environment without
// overriding variables already set.
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DotEnvFile)
	writeFile(t, path, "MPR_TEST_DEVICE=c3\nMPR_TEST_KEEP=file\n")

	t.Setenv("MPR_TEST_KEEP", "shell")
	t.Setenv("MPR_TEST_DEVICE", "")
	require.NoError(t, os.Unsetenv("MPR_TEST_DEVICE"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "c3", os.Getenv("MPR_TEST_DEVICE"))
	assert.Equal(t, "shell", os.Getenv("MPR_TEST_KEEP"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

// TestLoadXrun_SearchOrder verifies the first directory holding the file
// wins.
func TestLoadXrun_SearchOrder(t *testing.T) {
	project := t.TempDir()
	user := t.TempDir()
	writeFile(t, filepath.Join(user, XrunFileName), `exclude = ["user"]`)

	f, path, err := LoadXrun([]string{project, user})
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, filepath.Join(user, XrunFileName), path)
	assert.Equal(t, []string{"user"}, f.Exclude)

	writeFile(t, filepath.Join(project, XrunFileName), `
exclude = ["tests", "lib/vendored"]
map = ["main:main1"]
depth = 2
only = false
watcher = "poll"
poll-interval = "250ms"
`)

	f, path, err = LoadXrun([]string{project, user})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, XrunFileName), path)
	assert.Equal(t, []string{"tests", "lib/vendored"}, f.Exclude)
	assert.Equal(t, []string{"main:main1"}, f.Map)
	require.NotNil(t, f.Depth)
	assert.Equal(t, 2, *f.Depth)
	require.NotNil(t, f.Only)
	assert.False(t, *f.Only)
	assert.Nil(t, f.Once)
	assert.Equal(t, "poll", f.Watcher)
}

// TestLoadXrun_None verifies absence is not an error.
func TestLoadXrun_None(t *testing.T) {
	f, path, err := LoadXrun([]string{t.TempDir()})
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Empty(t, path)
}

// TestLoadXrun_Invalid verifies unknown keys and bad durations are
// rejected.
func TestLoadXrun_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "depht = 1\n", "unknown keys: depht"},
		{"bad duration", `poll-interval = "soon"`, "poll-interval"},
		{"bad toml", "exclude = [\n", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, XrunFileName), tt.content)

			_, _, err := LoadXrun([]string{dir})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestXrunFile_Apply verifies list union and flag precedence for scalars.
func TestXrunFile_Apply(t *testing.T) {
	depth, only, once := 3, true, true
	f := &XrunFile{
		Exclude:        []string{"tests", "main.py"},
		Map:            []string{"main:main1"},
		Depth:          &depth,
		Only:           &only,
		Once:           &once,
		PathToMpyCross: "bin/mpy-cross",
		PollInterval:   "500ms",
	}

	o := &XrunOptions{
		Exclude: []string{"main.py", "build"},
		Depth:   1,
	}
	changed := map[string]bool{"depth": true}
	f.Apply(o, func(name string) bool { return changed[name] })

	assert.Equal(t, []string{"main.py", "build", "tests"}, o.Exclude)
	assert.Equal(t, []string{"main:main1"}, o.Map)
	assert.Equal(t, 1, o.Depth, "flag given on the command line wins")
	assert.True(t, o.Only)
	assert.True(t, o.Once)
	assert.False(t, o.CompileOnly)
	assert.Equal(t, "bin/mpy-cross", o.PathToMpyCross)
	assert.Equal(t, 500*time.Millisecond, o.PollInterval)

	var nilFile *XrunFile
	before := *o
	nilFile.Apply(o, func(string) bool { return false })
	assert.Equal(t, before, *o)
}

// TestWriteYAML verifies the shape of `config --show` output.
func TestWriteYAML(t *testing.T) {
	depth := 2
	var buf bytes.Buffer
	err := WriteYAML(&buf, Effective{
		GlobalFile: "/home/me/.config/mpr.toml",
		XrunFile:   "mpr-xrun.toml",
		Global:     Global{Device: "a0", MipListURL: DefaultMipListURL},
		Xrun:       &XrunFile{Exclude: []string{"tests"}, Depth: &depth},
	})
	require.NoError(t, err)

	want := `global-file: /home/me/.config/mpr.toml
xrun-file: mpr-xrun.toml
global:
  device: a0
  mount: ""
  mount-unsafe-links: ""
  path-to-mpremote: ""
  path-to-mpy-cross: ""
  mip-list-url: https://micropython.org/pi/v2/index.json
  verbose: false
xrun:
  exclude:
    - tests
  depth: 2
`
	assert.Equal(t, want, buf.String())
}
