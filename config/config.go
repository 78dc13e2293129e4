package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config represents the simulator configuration.
type Config struct {
	// Mode settings: the global flags that apply to every context a
	// scheduler creates: delayed branches, delayed loads, bare
	// machine, pseudo-instruction acceptance, endianness.
	Mode struct {
		DelayedBranches   bool `toml:"delayed_branches"`
		DelayedLoads      bool `toml:"delayed_loads"`
		BareMachine       bool `toml:"bare_machine"`
		AcceptPseudoInsts bool `toml:"accept_pseudo_insts"`
		BigEndian         bool `toml:"big_endian"`
	} `toml:"mode"`

	// Segment settings: the growth limits each context's memory image
	// enforces before raising a fatal error.
	Segments struct {
		DataLimit  uint32 `toml:"data_limit"`
		KDataLimit uint32 `toml:"kdata_limit"`
		StackLimit uint32 `toml:"stack_limit"`
	} `toml:"segments"`

	// Scheduler settings: the simulator lock timeout and reader poll
	// interval a multi-context scheduler uses.
	Scheduler struct {
		SimLockTimeoutMS int `toml:"sim_lock_timeout_ms"`
		ReaderPollMS     int `toml:"reader_poll_ms"`
	} `toml:"scheduler"`

	// Debugger settings
	Debugger struct {
		HistorySize    int  `toml:"history_size"`
		AutoSaveBreaks bool `toml:"auto_save_breakpoints"`
		ShowSource     bool `toml:"show_source"`
		ShowRegisters  bool `toml:"show_registers"`
	} `toml:"debugger"`

	// Display settings
	Display struct {
		ColorOutput  bool   `toml:"color_output"`
		NumberFormat string `toml:"number_format"` // hex, dec, both
	} `toml:"display"`
}

// DefaultConfig returns a configuration with default values matching the
// classic SPIM defaults: delayed branches and loads off, bare machine off,
// pseudo-instructions accepted, little-endian.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Mode.DelayedBranches = false
	cfg.Mode.DelayedLoads = false
	cfg.Mode.BareMachine = false
	cfg.Mode.AcceptPseudoInsts = true
	cfg.Mode.BigEndian = false

	cfg.Segments.DataLimit = 64 * 1024 * 1024
	cfg.Segments.KDataLimit = 16 * 1024 * 1024
	cfg.Segments.StackLimit = 64 * 1024 * 1024

	cfg.Scheduler.SimLockTimeoutMS = 5000
	cfg.Scheduler.ReaderPollMS = 100

	cfg.Debugger.HistorySize = 1000
	cfg.Debugger.AutoSaveBreaks = true
	cfg.Debugger.ShowSource = true
	cfg.Debugger.ShowRegisters = true

	cfg.Display.ColorOutput = true
	cfg.Display.NumberFormat = "hex"

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "mips32sim")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "mips32sim")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "mips32sim", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "mips32sim", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file. A missing file is
// not an error: it yields the default configuration.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
