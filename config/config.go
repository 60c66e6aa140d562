package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ballot-bot/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults for every known key. Registering a key here also makes AutomaticEnv
// pick it up during Unmarshal.
var defaults = map[string]any{
	"forum.backend":                  "discourse",
	"forum.discourse.url":            "",
	"forum.discourse.api_key":        "",
	"forum.discourse.api_username":   "",
	"forum.discourse.timeout":        "30s",
	"forum.discord.token":            "",
	"forum.discord.guild_id":         "",
	"forum.discord.admin_channel_id": "",
	"storage.backend":                "file",
	"storage.dir":                    ".",
	"storage.sqlite_path":            "data/ballot.db",
	"election.title":                 "",
	"election.ballot_message":        "",
	"election.locale":                "de-DE",
	"election.reminder_keyword":      "",
	"election.targets":               []string{},
	"election.reserved_usernames":    []string{},
	"election.deadline":              "",
	"schedule.feedback":              "@every 10m",
	"log.level":                      "info",
	"log.file":                       "",
	"log.admin_level":                "warn",
}

// LoadConfig loads the configuration from .env, the config file and the environment.
// Load order:
// 1. .env file (exported into the environment)
// 2. path, or config.yaml in the working directory when path is empty
// 3. environment variables, FORUM_DISCOURSE_API_KEY style, override both
func LoadConfig(path string) (*models.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, skipping")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("config.yaml not found, using environment variables and defaults")
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// BOT_TOKEN is the variable name earlier deployments used.
	if cfg.Forum.Discord.Token == "" {
		cfg.Forum.Discord.Token = v.GetString("BOT_TOKEN")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that are needed before any forum call is made.
func Validate(cfg *models.Config) error {
	switch cfg.Forum.Backend {
	case "discourse":
		if cfg.Forum.Discourse.URL == "" {
			return errors.New("forum.discourse.url is required")
		}
	case "discord":
		if cfg.Forum.Discord.GuildID == "" {
			return errors.New("forum.discord.guild_id is required")
		}
	default:
		return fmt.Errorf("unknown forum backend %q", cfg.Forum.Backend)
	}
	return nil
}
