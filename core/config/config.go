package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	DefaultDirName    = ".ledgersh"
)

const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs  afero.Fs
	configDir string

	Prompt         string `json:"prompt"`
	HistoryFile    string `json:"history_file"`
	MaxEntries     int    `json:"max_entries" validate:"gte=0"`
	MaxEntryLength int    `json:"max_entry_length" validate:"gte=0"`
	MaxReplayDepth int    `json:"max_replay_depth" validate:"gte=0"`

	PassthroughShell string `json:"passthrough_shell" validate:"required"`

	Color string `json:"color" validate:"oneof=always auto never"`

	Log Log `json:"log"`
}

type Log struct {
	File       string `json:"file"`
	Level      string `json:"level" validate:"oneof=trace debug info warn error disabled"`
	MaxSizeMB  int    `json:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `json:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `json:"max_age_days" validate:"gte=0"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, err := c.Interpreter(); err != nil {
		return fmt.Errorf("passthrough_shell: %w", err)
	}
	return nil
}

// Interpreter splits the passthrough shell into an argv prefix.
func (c *Configuration) Interpreter() ([]string, error) {
	argv, err := shlex.Split(c.PassthroughShell, true)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("no interpreter in %q", c.PassthroughShell)
	}
	return argv, nil
}

// Dir is the directory the configuration was loaded from.
func (c *Configuration) Dir() string {
	return c.configDir
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewOsFs()
	}
	return c.configFs
}

func (c *Configuration) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.configDir, name)
}

// HistoryPath is the line editor history file, or empty if disabled.
func (c *Configuration) HistoryPath() string {
	return c.resolve(c.HistoryFile)
}

// LogPath is the application log file, or empty if disabled.
func (c *Configuration) LogPath() string {
	return c.resolve(c.Log.File)
}

// EnsureDir creates the configuration directory so files relative to it can
// be written.
func (c *Configuration) EnsureDir() error {
	return c.fs().MkdirAll(c.configDir, 0700)
}

// DefaultDir is the configuration directory used when none is given.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// ReadAppLog opens the application log for reading.
func (c *Configuration) ReadAppLog() (afero.File, error) {
	path := c.LogPath()
	if path == "" {
		return nil, fmt.Errorf("the application log is disabled in %s", filepath.Join(c.configDir, ConfigurationName))
	}
	return c.fs().Open(path)
}
