package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode.DelayedBranches {
		t.Error("Expected DelayedBranches=false")
	}
	if cfg.Mode.DelayedLoads {
		t.Error("Expected DelayedLoads=false")
	}
	if !cfg.Mode.AcceptPseudoInsts {
		t.Error("Expected AcceptPseudoInsts=true")
	}
	if cfg.Mode.BigEndian {
		t.Error("Expected BigEndian=false")
	}

	if cfg.Segments.DataLimit != 64*1024*1024 {
		t.Errorf("Expected DataLimit=64MiB, got %d", cfg.Segments.DataLimit)
	}
	if cfg.Segments.KDataLimit != 16*1024*1024 {
		t.Errorf("Expected KDataLimit=16MiB, got %d", cfg.Segments.KDataLimit)
	}
	if cfg.Segments.StackLimit != 64*1024*1024 {
		t.Errorf("Expected StackLimit=64MiB, got %d", cfg.Segments.StackLimit)
	}

	if cfg.Scheduler.SimLockTimeoutMS != 5000 {
		t.Errorf("Expected SimLockTimeoutMS=5000, got %d", cfg.Scheduler.SimLockTimeoutMS)
	}

	if cfg.Debugger.HistorySize != 1000 {
		t.Errorf("Expected HistorySize=1000, got %d", cfg.Debugger.HistorySize)
	}
	if !cfg.Debugger.ShowSource {
		t.Error("Expected ShowSource=true")
	}

	if cfg.Display.NumberFormat != "hex" {
		t.Errorf("Expected NumberFormat=hex, got %s", cfg.Display.NumberFormat)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}
	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "config.toml" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}

	case "darwin", "linux":
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "mips32sim" && path != "config.toml" {
			t.Errorf("Expected path in mips32sim directory or fallback, got %s", path)
		}
	}
}

func TestGetLogPath(t *testing.T) {
	path := GetLogPath()

	if path == "" {
		t.Error("GetLogPath returned empty string")
	}

	switch runtime.GOOS {
	case "darwin", "linux":
		if filepath.Base(path) != "logs" {
			t.Errorf("Expected path to end with logs, got %s", path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Mode.DelayedBranches = true
	cfg.Mode.BigEndian = true
	cfg.Segments.DataLimit = 8 * 1024 * 1024
	cfg.Debugger.HistorySize = 500
	cfg.Display.ColorOutput = false

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if !loaded.Mode.DelayedBranches {
		t.Error("Expected DelayedBranches=true")
	}
	if !loaded.Mode.BigEndian {
		t.Error("Expected BigEndian=true")
	}
	if loaded.Segments.DataLimit != 8*1024*1024 {
		t.Errorf("Expected DataLimit=8MiB, got %d", loaded.Segments.DataLimit)
	}
	if loaded.Debugger.HistorySize != 500 {
		t.Errorf("Expected HistorySize=500, got %d", loaded.Debugger.HistorySize)
	}
	if loaded.Display.ColorOutput {
		t.Error("Expected ColorOutput=false")
	}
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom should not error on non-existent file: %v", err)
	}

	if cfg.Segments.DataLimit != 64*1024*1024 {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[segments]
data_limit = "not a number"
`
	if err := os.WriteFile(configPath, []byte(invalidTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if _, err := LoadFrom(configPath); err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Parent directories were not created")
	}
}
