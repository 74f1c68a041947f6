package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Port       string           `mapstructure:"port"`
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"`
	DB         DBConfig         `mapstructure:"db"`
	ThingSpeak ThingSpeakConfig `mapstructure:"thingspeak"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	PumpCycle  PumpCycleConfig  `mapstructure:"pump_cycle"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	History    HistoryConfig    `mapstructure:"history"`
	Emulator   EmulatorConfig   `mapstructure:"emulator"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type ThingSpeakConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	ChannelID           string        `mapstructure:"channel_id"`
	ReadAPIKey          string        `mapstructure:"read_api_key"`
	WriteAPIKey         string        `mapstructure:"write_api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	StatusResults       int           `mapstructure:"status_results"`
	LevelUnit           string        `mapstructure:"level_unit"` // percent | fraction
	BreakerFailures     int           `mapstructure:"breaker_failures"`
	BreakerTimeout      time.Duration `mapstructure:"breaker_timeout"`
	BootstrapMaxElapsed time.Duration `mapstructure:"bootstrap_max_elapsed"`
}

type ReconcilerConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	ToggleCooldown   time.Duration `mapstructure:"toggle_cooldown"`
	StuckSyncTimeout time.Duration `mapstructure:"stuck_sync_timeout"`
}

type PumpCycleConfig struct {
	Tick time.Duration `mapstructure:"tick"`
}

type CollectorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type HistoryConfig struct {
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type EmulatorConfig struct {
	ConfigPath string `mapstructure:"config_path"`
}

type AuthConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// envPrefix namespaces overrides, e.g. AQUAPONICS_RECONCILER_POLL_INTERVAL.
const envPrefix = "AQUAPONICS"

// conventional names used by existing deployments for the broker credentials
var brokerEnvAliases = map[string]string{
	"thingspeak.channel_id":    "THINGSPEAK_CHANNEL_ID",
	"thingspeak.read_api_key":  "THINGSPEAK_READ_API_KEY",
	"thingspeak.write_api_key": "THINGSPEAK_WRITE_API_KEY",
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("db.path", "aquaponics.db")

	v.SetDefault("thingspeak.base_url", "https://api.thingspeak.com")
	v.SetDefault("thingspeak.timeout", 10*time.Second)
	v.SetDefault("thingspeak.status_results", 20)
	v.SetDefault("thingspeak.level_unit", "percent")
	v.SetDefault("thingspeak.breaker_failures", 5)
	v.SetDefault("thingspeak.breaker_timeout", 30*time.Second)
	v.SetDefault("thingspeak.bootstrap_max_elapsed", 30*time.Second)

	v.SetDefault("reconciler.poll_interval", 2*time.Second)
	v.SetDefault("reconciler.toggle_cooldown", 3*time.Second)
	v.SetDefault("reconciler.stuck_sync_timeout", 60*time.Second)

	v.SetDefault("pump_cycle.tick", time.Second)
	v.SetDefault("collector.interval", 15*time.Second)

	v.SetDefault("history.cache_size", 128)
	v.SetDefault("history.cache_ttl", time.Minute)

	v.SetDefault("emulator.config_path", "emulator_config.json")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token_ttl", time.Hour)
}

// Load reads an optional .env file, then the YAML config at path (or configs/config.yml
// when path is empty), then environment overrides.
func Load(v *viper.Viper, path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range brokerEnvAliases {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.ThingSpeak.LevelUnit {
	case "percent", "fraction":
	default:
		return fmt.Errorf("thingspeak.level_unit must be percent or fraction, got %q", c.ThingSpeak.LevelUnit)
	}
	if c.Reconciler.PollInterval <= 0 {
		return errors.New("reconciler.poll_interval must be positive")
	}
	if c.PumpCycle.Tick <= 0 {
		return errors.New("pump_cycle.tick must be positive")
	}
	if c.Collector.Interval <= 0 {
		return errors.New("collector.interval must be positive")
	}
	if c.Auth.Enabled && c.Auth.SigningKey == "" {
		return errors.New("auth.signing_key is required when auth is enabled")
	}
	return nil
}

// BrokerConfigured reports whether enough credentials are present to talk to ThingSpeak.
func (c *Config) BrokerConfigured() bool {
	return c.ThingSpeak.ChannelID != "" && c.ThingSpeak.ReadAPIKey != ""
}
