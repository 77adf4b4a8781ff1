// Package config loads mpr's layered settings.
//
// Global settings come from, lowest precedence first: built-in defaults,
// mpr.toml in the user config directory, MPR_* environment variables
// (a .env file in the working directory is loaded into the environment
// first) and finally command line flags. xrun additionally reads a
// per-project mpr-xrun.toml, see LoadXrun.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// GlobalName is the base name of the global config file.
	GlobalName = "mpr"

	// EnvPrefix prefixes environment overrides, e.g. MPR_DEVICE.
	EnvPrefix = "MPR"

	// DotEnvFile is loaded from the working directory when present.
	DotEnvFile = ".env"

	// DefaultMipListURL is the micropython-lib package index.
	DefaultMipListURL = "https://micropython.org/pi/v2/index.json"
)

// Keys shared by the config file, the environment and the root flags.
const (
	KeyDevice           = "device"
	KeyMount            = "mount"
	KeyMountUnsafeLinks = "mount-unsafe-links"
	KeyPathToMpremote   = "path-to-mpremote"
	KeyPathToMpyCross   = "path-to-mpy-cross"
	KeyMipListURL       = "mip-list-url"
	KeyVerbose          = "verbose"
)

// Global holds the effective global settings.
type Global struct {
	Device           string `yaml:"device"`
	Mount            string `yaml:"mount"`
	MountUnsafeLinks string `yaml:"mount-unsafe-links"`
	PathToMpremote   string `yaml:"path-to-mpremote"`
	PathToMpyCross   string `yaml:"path-to-mpy-cross"`
	MipListURL       string `yaml:"mip-list-url"`
	Verbose          bool   `yaml:"verbose"`
}

// Dir returns the directory holding mpr's config files. It falls back
// to the working directory when the platform has no user config dir.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return dir
}

// GlobalPath returns the global config file path within dir.
func GlobalPath(dir string) string {
	return filepath.Join(dir, GlobalName+".toml")
}

// LoadDotEnv loads path into the process environment. Variables that are
// already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// NewGlobal builds a viper instance over the global config file in dir,
// the MPR_* environment and, if non-nil, flags. A missing config file
// is not an error.
func NewGlobal(dir string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(GlobalName)
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyMipListURL, DefaultMipListURL)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read %s: %w", GlobalPath(dir), err)
		}
	}
	return v, nil
}

// GlobalFrom extracts the effective settings from v.
func GlobalFrom(v *viper.Viper) Global {
	return Global{
		Device:           v.GetString(KeyDevice),
		Mount:            v.GetString(KeyMount),
		MountUnsafeLinks: v.GetString(KeyMountUnsafeLinks),
		PathToMpremote:   v.GetString(KeyPathToMpremote),
		PathToMpyCross:   v.GetString(KeyPathToMpyCross),
		MipListURL:       v.GetString(KeyMipListURL),
		Verbose:          v.GetBool(KeyVerbose),
	}
}

// Effective is what `mpr config --show` prints.
type Effective struct {
	GlobalFile string    `yaml:"global-file"`
	XrunFile   string    `yaml:"xrun-file,omitempty"`
	Global     Global    `yaml:"global"`
	Xrun       *XrunFile `yaml:"xrun,omitempty"`
}

// WriteYAML writes e to w as YAML.
func WriteYAML(w io.Writer, e Effective) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(e)
}
