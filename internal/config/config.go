// Package config loads the moderation service configuration from a YAML
// file with viper. Every key can be overridden from the environment with the
// CHATFILTER_ prefix, e.g. CHATFILTER_REDIS_ADDR.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/whisper/chatfilter/internal/moderation"
)

// global configuration structure
type Config struct {
	Moderation   ModerationConfig   `mapstructure:"moderation"`
	Redis        RedisConfig        `mapstructure:"redis"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	ViolationLog ViolationLogConfig `mapstructure:"violation_log"`
}

// moderation engine settings
type ModerationConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	LogEnabled       bool          `mapstructure:"log_enabled"`
	ExemptChannels   []string      `mapstructure:"exempt_channels"`
	Terms            string        `mapstructure:"terms"`
	Tiers            []TierConfig  `mapstructure:"tiers"`
	RejectionMessage string        `mapstructure:"rejection_message"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	Issuer           string        `mapstructure:"issuer"`
}

// one severity tier; the list index is the severity
type TierConfig struct {
	Kind     string        `mapstructure:"kind"`
	Duration time.Duration `mapstructure:"duration"`
	Message  string        `mapstructure:"message"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type NATSConfig struct {
	URL  string `mapstructure:"url"`
	Name string `mapstructure:"name"`
}

// term catalog database; an empty DSN selects moderation.terms
type PostgresConfig struct {
	DSN     string `mapstructure:"dsn"`
	Migrate bool   `mapstructure:"migrate"`
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// per-day violation log
type ViolationLogConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
}

// Load reads configPath, or only defaults and environment when configPath is
// empty.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CHATFILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if _, err := cfg.Policy(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Policy builds the enforcement policy from the configured tiers.
func (c *Config) Policy() (*moderation.Policy, error) {
	tiers := make([]moderation.Punishment, 0, len(c.Moderation.Tiers))
	for i, t := range c.Moderation.Tiers {
		kind, err := moderation.ParsePunishmentKind(t.Kind)
		if err != nil {
			return nil, fmt.Errorf("config: tier %d: %w", i, err)
		}
		if kind != moderation.BlockOnly && t.Duration <= 0 {
			return nil, fmt.Errorf("config: tier %d: %s needs a positive duration", i, kind)
		}
		tiers = append(tiers, moderation.Punishment{
			Kind:        kind,
			Duration:    t.Duration,
			UserMessage: t.Message,
		})
	}
	return moderation.NewPolicy(tiers, c.Moderation.RejectionMessage), nil
}

// EngineConfig returns the engine switches.
func (c *Config) EngineConfig() moderation.Config {
	return moderation.Config{
		Enabled:        c.Moderation.Enabled,
		LogEnabled:     c.Moderation.LogEnabled,
		ExemptChannels: c.Moderation.ExemptChannels,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("moderation.enabled", true)
	v.SetDefault("moderation.log_enabled", true)
	v.SetDefault("moderation.exempt_channels", []string{"addon", "system"})
	v.SetDefault("moderation.terms", "badword1,badword2")
	v.SetDefault("moderation.rejection_message", moderation.DefaultRejectionMessage)
	v.SetDefault("moderation.sweep_interval", time.Duration(0))
	v.SetDefault("moderation.issuer", "chatfilter")

	var tiers []map[string]interface{}
	for _, p := range moderation.DefaultTiers() {
		tiers = append(tiers, map[string]interface{}{
			"kind":     p.Kind.String(),
			"duration": p.Duration.String(),
			"message":  p.UserMessage,
		})
	}
	v.SetDefault("moderation.tiers", tiers)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "chatfilter-moderator")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.migrate", true)
	v.SetDefault("metrics.listen_addr", ":9102")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)

	v.SetDefault("violation_log.directory", "logs/chatfilter")
	v.SetDefault("violation_log.rotation.max_size", 100)
	v.SetDefault("violation_log.rotation.max_backups", 0)
	v.SetDefault("violation_log.rotation.max_age", 0)
	v.SetDefault("violation_log.rotation.compress", false)
}
