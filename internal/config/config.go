// Package config loads the accountant bot configuration: the shared core
// settings plus database, conversation and event publishing sections.
package config

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/accbot/core/config"
	coredatabase "github.com/m3rciful/accbot/core/database"
)

// BotConfig holds conversation level settings.
type BotConfig struct {
	// AllowedUsers lists Telegram user names permitted to talk to the bot.
	AllowedUsers []string `yaml:"allowed_users" envconfig:"ALLOWED_USERS"`
	// ErrorCooldownMS pauses a session after a transient gateway failure.
	ErrorCooldownMS int    `yaml:"error_cooldown_ms" envconfig:"ERROR_COOLDOWN_MS"`
	Currency        string `yaml:"currency" envconfig:"CURRENCY"`
}

// EventsConfig configures the purchase event publisher. Publishing is off when URL is empty.
type EventsConfig struct {
	URL        string `yaml:"amqp_url" envconfig:"AMQP_URL"`
	Exchange   string `yaml:"exchange" envconfig:"AMQP_EXCHANGE"`
	RoutingKey string `yaml:"routing_key" envconfig:"AMQP_ROUTING_KEY"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Bot      BotConfig           `yaml:"bot"`
	Events   EventsConfig        `yaml:"events"`
}

const (
	defaultCooldownMS = 2000
	defaultCurrency   = "€"
	defaultExchange   = "accountant"
	defaultRoutingKey = "purchase"
)

// Load reads the YAML file at path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	users := make([]string, 0, len(c.Bot.AllowedUsers))
	for _, u := range c.Bot.AllowedUsers {
		u = strings.TrimPrefix(strings.TrimSpace(u), "@")
		if u != "" {
			users = append(users, u)
		}
	}
	if len(users) == 0 {
		return fmt.Errorf("bot.allowed_users must list at least one user name")
	}
	c.Bot.AllowedUsers = users

	if c.Bot.ErrorCooldownMS < 0 {
		return fmt.Errorf("bot.error_cooldown_ms must be >= 0")
	}
	if c.Bot.ErrorCooldownMS == 0 {
		c.Bot.ErrorCooldownMS = defaultCooldownMS
	}
	if strings.TrimSpace(c.Bot.Currency) == "" {
		c.Bot.Currency = defaultCurrency
	}

	if c.Events.URL != "" {
		if c.Events.Exchange == "" {
			c.Events.Exchange = defaultExchange
		}
		if c.Events.RoutingKey == "" {
			c.Events.RoutingKey = defaultRoutingKey
		}
	}
	return nil
}
