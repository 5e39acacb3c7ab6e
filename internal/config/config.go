// Package config loads the VM's runtime settings from flags and an
// optional YAML file, in the style of the teacher's own flag-driven
// go/cli.go plus the configdir-located user file go/ui/tui.go resolves
// for its command history.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in the machine's external interface:
// memory size, host-call deadline, pipe queue depth, initial PC, and
// the first descriptor number HostOS hands out.
type Config struct {
	MemSize           uint32        `yaml:"mem_size"`
	HostCallDeadline  time.Duration `yaml:"host_call_deadline"`
	PipeQueueCapacity int           `yaml:"pipe_queue_capacity"`
	InitialPC         uint32        `yaml:"initial_pc"`
	DescriptorStart   int32         `yaml:"descriptor_start"`

	ConfigPath string `yaml:"-"`
}

// Default returns the settings a bare invocation runs with.
func Default() Config {
	return Config{
		MemSize:           1 << 20,
		HostCallDeadline:  5 * time.Second,
		PipeQueueCapacity: 64,
		InitialPC:         0,
		DescriptorStart:   3,
	}
}

// UserConfigPath resolves the platform config directory the way
// go/ui/tui.go resolves its history cache path, but under the query
// config folder instead of the cache folder.
func UserConfigPath() string {
	dirs := configdir.New("rv32vm", "rv32vm")
	folder := dirs.QueryFolderContainsFile("config.yaml")
	if folder == nil {
		folders := dirs.QueryFolders(configdir.Global)
		if len(folders) == 0 {
			return ""
		}
		return filepath.Join(folders[0].Path, "config.yaml")
	}
	return filepath.Join(folder.Path, "config.yaml")
}

// Load reads a YAML config file at path, overlaying it onto the
// defaults. A missing file is not an error — an unconfigured machine
// just runs with defaults.
func Load(path string) (Config, error) {
	c := Default()
	c.ConfigPath = path
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrapf(err, "parsing config %s", path)
	}
	return c, nil
}

// RegisterFlags binds c's fields to fs, so a caller can override the
// loaded/default config from the command line, as go/cli.go does for
// its own Config fields.
func RegisterFlags(fs *flag.FlagSet, c *Config) {
	fs.Func("mem-size", "VM memory size in bytes", func(s string) error {
		n, err := parseSize(s)
		if err != nil {
			return err
		}
		c.MemSize = n
		return nil
	})
	fs.DurationVar(&c.HostCallDeadline, "host-call-deadline", c.HostCallDeadline, "HostOS call timeout")
	fs.IntVar(&c.PipeQueueCapacity, "pipe-queue-capacity", c.PipeQueueCapacity, "inbound datagram queue depth per pipe")
	fs.Func("initial-pc", "initial program counter", func(s string) error {
		n, err := parseSize(s)
		if err != nil {
			return err
		}
		c.InitialPC = n
		return nil
	})
	fs.Func("descriptor-start", "first HostOS file descriptor number", func(s string) error {
		n, err := parseSize(s)
		if err != nil {
			return err
		}
		c.DescriptorStart = int32(n)
		return nil
	})
}

func parseSize(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %q", s)
	}
	return uint32(n), nil
}
