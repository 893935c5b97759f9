package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the mailer
type Config struct {
	Sender  SenderConfig `mapstructure:"sender"`
	Gmail   GmailConfig  `mapstructure:"gmail"`
	MongoDB MongoConfig  `mapstructure:"mongodb"`
	Files   FilesConfig  `mapstructure:"files"`
	Rate    RateConfig   `mapstructure:"rate"`
	Log     LogConfig    `mapstructure:"log"`
}

// SenderConfig holds the From identity for outgoing mail
type SenderConfig struct {
	// Name is the display name shown in the From header
	Name string `mapstructure:"name"`
	// Address is the mailbox emails are sent from
	Address string `mapstructure:"address"`
}

// GmailConfig holds Gmail API credentials.
// Either CredentialsJSON (service account with domain-wide delegation) or
// the ClientID/ClientSecret/RefreshToken trio (personal mailbox) must be set
// before a live send.
type GmailConfig struct {
	CredentialsJSON string `mapstructure:"credentials_json"`
	ClientID        string `mapstructure:"client_id"`
	ClientSecret    string `mapstructure:"client_secret"`
	RefreshToken    string `mapstructure:"refresh_token"`
}

// Configured reports whether any usable credential set is present
func (c GmailConfig) Configured() bool {
	return c.CredentialsJSON != "" || (c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != "")
}

// MongoConfig holds the document-database recipient source settings
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	// EmailField is the document field holding the address
	EmailField string `mapstructure:"email_field"`
	// NameField is the document field holding the display name
	NameField string `mapstructure:"name_field"`
	// Filter is an extended-JSON query filter applied to the collection
	Filter string `mapstructure:"filter"`
}

// FilesConfig holds paths to the data files the mailer reads and writes
type FilesConfig struct {
	// Recipients is the local JSON recipient list
	Recipients string `mapstructure:"recipients"`
	// Template is the campaign template file
	Template string `mapstructure:"template"`
	// Progress is the durable send-progress ledger
	Progress string `mapstructure:"progress"`
}

// RateConfig holds sending-rate configuration
type RateConfig struct {
	// DailyLimit caps successful sends per UTC calendar day
	DailyLimit int `mapstructure:"daily_limit"`
	// BaseInterval is the fixed portion of the inter-send delay
	BaseInterval time.Duration `mapstructure:"base_interval"`
	// JitterMin/JitterMax bound the random portion added to BaseInterval
	JitterMin time.Duration `mapstructure:"jitter_min"`
	JitterMax time.Duration `mapstructure:"jitter_max"`
	// Cooldown is the extra wait applied after a provider rate-limit error
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// When path is non-empty it names the config file directly; otherwise the
// usual search paths are tried. A missing config file is a startup error:
// the returned message tells the operator what to create.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/codedeck-mailer")
	}

	// Set defaults
	setDefaults(v)

	// Bind environment variables
	v.SetEnvPrefix("MAILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config file not found: copy config.example.yaml to config.yaml and fill in your settings")
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail mid-campaign
func (c *Config) Validate() error {
	if c.Sender.Address == "" {
		return fmt.Errorf("sender.address is required: set it in config.yaml to the mailbox you send from")
	}
	if c.Rate.DailyLimit < 1 {
		return fmt.Errorf("rate.daily_limit must be at least 1, got %d", c.Rate.DailyLimit)
	}
	if c.Rate.JitterMax < c.Rate.JitterMin {
		return fmt.Errorf("rate.jitter_max (%s) must not be below rate.jitter_min (%s)", c.Rate.JitterMax, c.Rate.JitterMin)
	}
	if c.MongoDB.Enabled {
		if c.MongoDB.URI == "" || c.MongoDB.Database == "" || c.MongoDB.Collection == "" {
			return fmt.Errorf("mongodb is enabled but uri, database and collection are not all set")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Sender defaults
	v.SetDefault("sender.name", "CodeDeck")
	v.SetDefault("sender.address", "")

	// MongoDB defaults
	v.SetDefault("mongodb.enabled", false)
	v.SetDefault("mongodb.email_field", "email")
	v.SetDefault("mongodb.name_field", "name")
	v.SetDefault("mongodb.filter", "{}")

	// File defaults
	v.SetDefault("files.recipients", "data/emails.json")
	v.SetDefault("files.template", "data/template.txt")
	v.SetDefault("files.progress", "data/progress.json")

	// Rate defaults
	v.SetDefault("rate.daily_limit", 100)
	v.SetDefault("rate.base_interval", "180s")
	v.SetDefault("rate.jitter_min", "0s")
	v.SetDefault("rate.jitter_max", "45s")
	v.SetDefault("rate.cooldown", "300s")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
