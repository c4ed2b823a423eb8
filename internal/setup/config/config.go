// Package config loads the application configuration from TOML, layering an
// optional config file over built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/solvant/claimant/internal/wishlist"
)

// configFile is the file name searched for in each config path.
const configFile = "claimant.toml"

// mudaeBotID is the application ID of the game bot.
const mudaeBotID = 432610292342587392

// Config is the entire application configuration.
type Config struct {
	Discord    Discord    `koanf:"discord"`
	Automation Automation `koanf:"automation"`
	Wishlist   Wishlist   `koanf:"wishlist"`
	Storage    Storage    `koanf:"storage"`
	Debug      Debug      `koanf:"debug"`
}

// Discord contains the account and channel configuration.
type Discord struct {
	// User token for the account running the automation.
	Token string `koanf:"token"`
	// Channel IDs to watch; empty means every visible channel.
	Channels []uint64 `koanf:"channels"`
	// Application ID of the game bot.
	BotID uint64 `koanf:"bot_id"`
}

// Automation contains the outbound command cadence.
type Automation struct {
	// Commands cycled through when rolling.
	RollCommands []string `koanf:"roll_commands"`
	// Per-command cooldown in seconds.
	RollCooldownSeconds int `koanf:"roll_cooldown_seconds"`
	// Roll automatically against the remaining budget.
	AutoRoll bool `koanf:"auto_roll"`
	// Collect kakera drops automatically.
	AutoKakera bool `koanf:"auto_kakera"`
	// Run the daily command pair once per day.
	AutoDaily bool `koanf:"auto_daily"`
	// Local wall-clock time ("15:04") after which the daily pair may run.
	DailyTime string `koanf:"daily_time"`
	// Minutes between status refreshes; zero disables them.
	StatusRefreshMinutes int `koanf:"status_refresh_minutes"`
}

// Wishlist contains claim preference configuration.
type Wishlist struct {
	// Claim characters matching the stored wishlist.
	Enabled bool `koanf:"enabled"`
	// Verify new wishlist entries with a lookup before storing them.
	AutoVerify bool `koanf:"auto_verify"`
	// Match rolled names approximately; exact (normalized) only when off.
	FuzzyEnabled bool `koanf:"fuzzy_enabled"`
	// Minimum similarity for a fuzzy match, between 0 and 1.
	FuzzyThreshold float64 `koanf:"fuzzy_threshold"`
	// Sort verified entries ahead of unverified ones in listings.
	PriorityVerified bool `koanf:"priority_verified"`
}

// StoreOptions maps the wishlist configuration onto store behavior.
func (w Wishlist) StoreOptions() wishlist.Options {
	return wishlist.Options{
		FuzzyEnabled:     w.FuzzyEnabled,
		FuzzyThreshold:   w.FuzzyThreshold,
		PriorityVerified: w.PriorityVerified,
	}
}

// Storage contains persistence configuration.
type Storage struct {
	// Path to the SQLite database file.
	DatabasePath string `koanf:"database_path"`
}

// Debug contains logging configuration.
type Debug struct {
	// Logging level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Directory for session log files.
	LogDir string `koanf:"log_dir"`
	// Maximum number of log sessions to retain.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Discord: Discord{
			BotID: mudaeBotID,
		},
		Automation: Automation{
			RollCommands:         []string{"$wa", "$ha"},
			RollCooldownSeconds:  3600,
			AutoRoll:             true,
			AutoKakera:           true,
			AutoDaily:            true,
			DailyTime:            "00:00",
			StatusRefreshMinutes: 30,
		},
		Wishlist: Wishlist{
			Enabled:          true,
			AutoVerify:       true,
			FuzzyEnabled:     true,
			FuzzyThreshold:   wishlist.MatchThreshold,
			PriorityVerified: true,
		},
		Storage: Storage{
			DatabasePath: "claimant.db",
		},
		Debug: Debug{
			LogLevel:      "info",
			LogDir:        "logs",
			MaxLogsToKeep: 10,
		},
	}
}

// Load reads claimant.toml from the first search path that has one and
// overlays it on the defaults. extraDir, when non-empty, is searched first.
// A missing config file is not an error; the defaults are returned.
// Returns the config along with the used config directory.
func Load(extraDir string) (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".claimant",
		homeDir + "/.claimant",
		"config",
		".",
	}
	if extraDir != "" {
		configPaths = append([]string{extraDir}, configPaths...)
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := path + "/" + configFile
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	config := Default()
	if usedConfigPath != "" {
		if err := k.Unmarshal("", &config); err != nil {
			return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
		}
	}

	return &config, usedConfigPath, nil
}

// RollCooldown returns the per-command cooldown as a duration.
func (a Automation) RollCooldown() time.Duration {
	return time.Duration(a.RollCooldownSeconds) * time.Second
}

// DailySchedule parses DailyTime, falling back to midnight on bad input.
func (a Automation) DailySchedule() time.Time {
	t, err := time.Parse("15:04", a.DailyTime)
	if err != nil {
		return time.Time{}
	}

	return t
}

// StatusRefresh returns the status refresh interval; zero means disabled.
func (a Automation) StatusRefresh() time.Duration {
	return time.Duration(a.StatusRefreshMinutes) * time.Minute
}
