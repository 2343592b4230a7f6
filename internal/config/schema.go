package config

import "time"

// Config is the merged cumpli configuration
type Config struct {
	// SQLite database file. Empty means the default under the config dir.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Focus         FocusConfig         `yaml:"focus" mapstructure:"focus"`
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
}

// LogConfig configures the log file. The terminal belongs to the UI.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

type FocusConfig struct {
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
}

// NotificationsConfig configures how alerts are rendered in the terminal.
// Whether reminders fire at all is a user preference stored in the database.
type NotificationsConfig struct {
	Bell bool `yaml:"bell" mapstructure:"bell"`
}
