package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds the runtime paths and thresholds read from the viper
// config file. Document-level configuration (types, rules, references)
// lives in the Store, not here.
type Settings struct {
	ConfigRoot          string
	IntakePath          string
	ReviewPath          string
	StagingPath         string
	VaultPath           string
	QueueDBPath         string
	ConfidenceThreshold float64
	FuzzyMatchThreshold float64
}

// LoadSettings reads settings from viper with defaults applied and all
// paths expanded.
func LoadSettings() Settings {
	viper.SetDefault("paths.config", "~/.config/autofiler/documents")
	viper.SetDefault("paths.intake", "~/autofiler/intake")
	viper.SetDefault("paths.review", "~/autofiler/review")
	viper.SetDefault("paths.staging", "~/autofiler/staging")
	viper.SetDefault("paths.vault", "~/autofiler/vault")
	viper.SetDefault("database.path", "~/.local/share/autofiler/queue.db")
	viper.SetDefault("thresholds.confidence", 0.55)
	viper.SetDefault("thresholds.fuzzy_match", 0.80)

	return Settings{
		ConfigRoot:          ExpandPath(viper.GetString("paths.config")),
		IntakePath:          ExpandPath(viper.GetString("paths.intake")),
		ReviewPath:          ExpandPath(viper.GetString("paths.review")),
		StagingPath:         ExpandPath(viper.GetString("paths.staging")),
		VaultPath:           ExpandPath(viper.GetString("paths.vault")),
		QueueDBPath:         ExpandPath(viper.GetString("database.path")),
		ConfidenceThreshold: viper.GetFloat64("thresholds.confidence"),
		FuzzyMatchThreshold: viper.GetFloat64("thresholds.fuzzy_match"),
	}
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
