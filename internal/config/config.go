// Package config loads bevcs settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/thiagokokada/bevcs/internal/vcs"
)

const (
	FileName = ".bevcs.toml"

	DefaultWatchDelay = 350 * time.Millisecond

	EnvBackend = "BEVCS_BACKEND"
	EnvUserID  = "BEVCS_USER_ID"
)

// Duration decodes TOML strings such as "500ms" or "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	// Backend is a backend name, or empty to detect one from the tree.
	Backend       string   `toml:"backend"`
	Encoding      string   `toml:"encoding"`
	Paranoid      bool     `toml:"paranoid"`
	UserID        string   `toml:"user_id"`
	VerboseInvoke bool     `toml:"verbose_invoke"`
	WatchDelay    Duration `toml:"watch_delay"`

	// Path is the file the settings came from, empty for defaults.
	Path string `toml:"-"`
}

// Error marks a problem with the configuration itself.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Default() Config {
	return Config{
		Encoding:   vcs.DefaultEncoding,
		WatchDelay: Duration{DefaultWatchDelay},
	}
}

// Load reads path on top of the defaults. A missing file is only an error
// when required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return Default(), nil
		}
		return Config{}, &Error{Path: path, Err: err}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, &Error{Path: path, Err: fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))}
	}
	cfg.Path = path
	return cfg, nil
}

// Resolve loads the explicit file when given, otherwise FileName in dir, then
// applies environment overrides and validates the result.
func Resolve(explicit, dir string) (Config, error) {
	path, required := explicit, true
	if path == "" {
		path, required = filepath.Join(dir, FileName), false
	}
	cfg, err := Load(path, required)
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBackend); ok && v != "" {
		c.Backend = v
	}
	if v, ok := lookup(EnvUserID); ok && v != "" {
		c.UserID = v
	}
}

func (c Config) Validate() error {
	if c.Encoding == "" {
		c.Encoding = vcs.DefaultEncoding
	}
	if _, err := htmlindex.Get(strings.ToLower(c.Encoding)); err != nil {
		return &Error{Path: c.Path, Err: fmt.Errorf("unknown encoding %q", c.Encoding)}
	}
	if c.UserID != "" {
		if _, _, err := vcs.ParseIdentity(c.UserID); err != nil {
			return &Error{Path: c.Path, Err: err}
		}
	}
	if c.WatchDelay.Duration < 0 {
		return &Error{Path: c.Path, Err: fmt.Errorf("negative watch_delay %s", c.WatchDelay)}
	}
	return nil
}

// AdapterOptions translates the settings into vcs adapter options.
func (c Config) AdapterOptions() []vcs.Option {
	opts := []vcs.Option{
		vcs.WithEncoding(c.Encoding),
		vcs.WithParanoid(c.Paranoid),
	}
	if c.UserID != "" {
		opts = append(opts, vcs.WithUserID(c.UserID))
	}
	return opts
}
