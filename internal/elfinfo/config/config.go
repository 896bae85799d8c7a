// Package config resolves elfinfo settings from, lowest first: defaults, a
// YAML file, the environment and command line flags.
package config

import (
	"debug/elf"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Config holds every user setting.
type Config struct {
	Path     string `json:"path,omitempty" yaml:"path,omitempty" jsonschema:"title=ELF file,description=File inspected when none is given on the command line"`
	Syntax   string `json:"syntax,omitempty" yaml:"syntax,omitempty" jsonschema:"title=Syntax,description=x86 assembly syntax,enum=att,enum=intel,default=att"`
	Color    bool   `json:"color" yaml:"color" jsonschema:"title=Color,description=Colour reports written to a terminal,default=true"`
	Pager    bool   `json:"pager" yaml:"pager" jsonschema:"title=Pager,description=Show reports in a scrollable pager on a terminal"`
	Demangle bool   `json:"demangle" yaml:"demangle" jsonschema:"title=Demangle,description=Demangle C++ and Rust symbol names,default=true"`
	Arch     string `json:"arch,omitempty" yaml:"arch,omitempty" jsonschema:"title=Architecture,description=Register names to use instead of the ones of e_machine,enum=x86_64,enum=aarch64"`
	Debug    bool   `json:"debug" yaml:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
}

// Default returns the built in settings.
func Default() *Config {
	return &Config{
		Syntax:   "att",
		Color:    true,
		Demangle: true,
	}
}

// FilePath returns the configuration file location: $ELFINFO_CONFIG, else
// elfinfo/config.yaml under the user configuration directory.
func FilePath() string {
	if p := os.Getenv("ELFINFO_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "elfinfo", "config.yaml")
}

// Load applies the configuration file and the environment over the
// defaults. A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.merge(FilePath()); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) merge(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ELF"); v != "" {
		c.Path = v
	}
	if v := os.Getenv("ELFINFO_SYNTAX"); v != "" {
		c.Syntax = v
	}
	if v := os.Getenv("ELFINFO_ARCH"); v != "" {
		c.Arch = v
	}
	if os.Getenv("NO_COLOR") != "" {
		c.Color = false
	}
	if v, ok, err := envBool("ELFINFO_NO_COLOR"); err != nil {
		return err
	} else if ok && v {
		c.Color = false
	}
	if v, ok, err := envBool("ELFINFO_PAGER"); err != nil {
		return err
	} else if ok {
		c.Pager = v
	}
	return nil
}

func envBool(name string) (value, set bool, err error) {
	v := os.Getenv(name)
	if v == "" {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false, fmt.Errorf("%s: invalid boolean %q", name, v)
	}
	return b, true, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Syntax) {
	case "", "att", "intel":
	default:
		return fmt.Errorf("invalid syntax %q: want att or intel", c.Syntax)
	}
	if _, ok := c.Machine(); !ok && c.Arch != "" {
		return fmt.Errorf("invalid arch %q: want x86_64 or aarch64", c.Arch)
	}
	return nil
}

// Machine maps Arch to an ELF machine. It reports false when Arch is unset
// or unknown.
func (c *Config) Machine() (elf.Machine, bool) {
	switch strings.ToLower(c.Arch) {
	case "x86_64", "x86-64", "amd64":
		return elf.EM_X86_64, true
	case "aarch64", "arm64":
		return elf.EM_AARCH64, true
	}
	return elf.EM_NONE, false
}

// Schema describes Config for editors.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	return reflector.Reflect(&Config{})
}
