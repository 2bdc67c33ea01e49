// Package runner boots kernel test images under an emulator and turns the
// value the kernel writes to the debug exit device into a test outcome.
package runner

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultExitPort is the I/O port of the emulator's debug exit device.
	DefaultExitPort = 0xf4

	// DefaultSuccessCode is the value the kernel writes on success.
	DefaultSuccessCode = 0x10

	defaultTimeout  = 5 * time.Minute
	defaultParallel = 1
)

// Duration wraps time.Duration so it can be decoded from strings such as
// "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Emulator describes how to launch the emulator.
type Emulator struct {
	// Binary is the emulator executable, looked up in $PATH if it is not
	// an absolute path.
	Binary string `toml:"binary"`

	// Args are passed to every emulator invocation before the arguments
	// that select the image, serial log and exit device.
	Args []string `toml:"args"`

	// ExitPort and ExitIOSize configure the debug exit device.
	ExitPort   uint16 `toml:"exit_port"`
	ExitIOSize uint16 `toml:"exit_iosize"`

	// SuccessCode is the value written by the kernel when all tests pass.
	SuccessCode uint32 `toml:"success_code"`
}

// Target is a single test image.
type Target struct {
	Name string `toml:"-"`

	// Image is the path of the bootable disk image. Relative paths are
	// resolved against the directory holding the config file.
	Image string `toml:"image"`

	// Expect is the outcome the target must produce to pass.
	Expect Outcome `toml:"expect"`

	// Timeout overrides the default wall-clock limit.
	Timeout Duration `toml:"timeout"`

	// Args are appended to the emulator arguments for this target only.
	Args []string `toml:"args"`
}

// Config is the contents of a kerntest.toml file.
type Config struct {
	Emulator Emulator `toml:"emulator"`

	// Timeout is the default wall-clock limit for a single run.
	Timeout Duration `toml:"timeout"`

	// Parallel is the number of emulators that may run at the same time.
	Parallel int `toml:"parallel"`

	// LogDir receives one serial log per target. Relative paths are
	// resolved against the directory holding the config file.
	LogDir string `toml:"log_dir"`

	Targets map[string]*Target `toml:"target"`
}

// LoadConfig decodes the config file at path, fills in defaults and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Emulator.ExitPort == 0 {
		c.Emulator.ExitPort = DefaultExitPort
	}
	if c.Emulator.ExitIOSize == 0 {
		c.Emulator.ExitIOSize = 4
	}
	if c.Emulator.SuccessCode == 0 {
		c.Emulator.SuccessCode = DefaultSuccessCode
	}
	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = defaultTimeout
	}
	if c.Parallel <= 0 {
		c.Parallel = defaultParallel
	}
	if c.LogDir != "" && !filepath.IsAbs(c.LogDir) {
		c.LogDir = filepath.Join(baseDir, c.LogDir)
	}

	for name, t := range c.Targets {
		t.Name = name
		if t.Expect == "" {
			t.Expect = OutcomeSuccess
		}
		if t.Timeout.Duration == 0 {
			t.Timeout = c.Timeout
		}
		if t.Image != "" && !filepath.IsAbs(t.Image) {
			t.Image = filepath.Join(baseDir, t.Image)
		}
	}
}

// Validate checks that the config can be used to run targets.
func (c *Config) Validate() error {
	if c.Emulator.Binary == "" {
		return fmt.Errorf("emulator.binary is not set")
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("no targets defined")
	}

	for _, name := range c.TargetNames() {
		t := c.Targets[name]
		if t.Image == "" {
			return fmt.Errorf("target %q: image is not set", name)
		}
		switch t.Expect {
		case OutcomeSuccess, OutcomeFailed, OutcomeTimeout:
		default:
			return fmt.Errorf("target %q: unsupported expected outcome %q", name, t.Expect)
		}
	}
	return nil
}

// TargetNames returns the names of all targets in lexical order.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Target returns the named target.
func (c *Config) Target(name string) (*Target, error) {
	t, ok := c.Targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target %q", name)
	}
	return t, nil
}
