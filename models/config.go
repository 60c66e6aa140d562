package models

import "time"

// Config represents the full configuration assembled from config.yaml, .env and the environment.
type Config struct {
	Forum    ForumConfig    `json:"forum" mapstructure:"forum"`
	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Election ElectionConfig `json:"election" mapstructure:"election"`
	Schedule ScheduleConfig `json:"schedule" mapstructure:"schedule"`
	Log      LogConfig      `json:"log" mapstructure:"log"`
}

// ForumConfig selects the forum backend and carries its credentials.
type ForumConfig struct {
	Backend   string          `json:"backend" mapstructure:"backend"` // discourse or discord
	Discourse DiscourseConfig `json:"discourse" mapstructure:"discourse"`
	Discord   DiscordConfig   `json:"discord" mapstructure:"discord"`
}

// DiscourseConfig holds the API credentials of the Discourse account the bot posts as.
type DiscourseConfig struct {
	URL         string        `json:"url" mapstructure:"url"`
	APIKey      string        `json:"api_key" mapstructure:"api_key"`
	APIUsername string        `json:"api_username" mapstructure:"api_username"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DiscordConfig holds the bot token and the guild whose members form the roster.
type DiscordConfig struct {
	Token          string `json:"token" mapstructure:"token"`
	GuildID        string `json:"guild_id" mapstructure:"guild_id"`
	AdminChannelID string `json:"admin_channel_id" mapstructure:"admin_channel_id"`
}

// StorageConfig selects where the roster, open ballots and results are kept.
type StorageConfig struct {
	Backend    string `json:"backend" mapstructure:"backend"` // file or sqlite
	Dir        string `json:"dir" mapstructure:"dir"`
	SQLitePath string `json:"sqlite_path" mapstructure:"sqlite_path"`
}

// ElectionConfig describes the ballot that is sent and how replies are judged.
type ElectionConfig struct {
	Title             string   `json:"title" mapstructure:"title"`
	BallotMessage     string   `json:"ballot_message" mapstructure:"ballot_message"`
	Locale            string   `json:"locale" mapstructure:"locale"`
	ReminderKeyword   string   `json:"reminder_keyword" mapstructure:"reminder_keyword"`
	Targets           []string `json:"targets" mapstructure:"targets"` // empty means every eligible voter
	ReservedUsernames []string `json:"reserved_usernames" mapstructure:"reserved_usernames"`
	Deadline          string   `json:"deadline" mapstructure:"deadline"` // RFC 3339, optional
}

// ScheduleConfig holds the cron spec used in watch mode.
type ScheduleConfig struct {
	Feedback string `json:"feedback" mapstructure:"feedback"`
}

// LogConfig controls the slog handlers.
type LogConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	AdminLevel string `json:"admin_level" mapstructure:"admin_level"`
}

// Flags represents the command surface of a single run.
type Flags struct {
	ConfigPath       string
	InitiateElection bool
	NoAnswer         bool
	NoUpdate         bool
	Remind           bool // set even when the message is empty, so it can be rejected
	RemindMessage    string
	PrintResults     bool
	FetchUsers       bool
	Watch            bool
	Targets          []string
}
