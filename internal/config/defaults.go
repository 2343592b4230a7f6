package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(Dir(), "cumpli.log"),
		},
		Focus: FocusConfig{
			TickInterval: time.Second,
		},
		Notifications: NotificationsConfig{
			Bell: true,
		},
	}
}

// WriteDefault writes a commented default configuration to path
func WriteDefault(path string) error {
	content := `# cumpli configuration

# SQLite database (default: <config dir>/cumpli/cumpli.db)
# db_path: ~/tasks/cumpli.db

log:
  level: info  # debug, info, warn, off
  # file: ~/.config/cumpli/cumpli.log

focus:
  tick_interval: 1s

notifications:
  # ring the terminal bell when a reminder fires
  bell: true
`
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
