package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"visme-go/internal/models"
)

var (
	mu    sync.RWMutex
	conf  Config
	hooks []func(Config)
)

// Config struct is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Detection DetectionConfig `mapstructure:"detection"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// DetectRateLimit is the number of detection requests a client may
	// make per minute.
	DetectRateLimit uint `mapstructure:"detect_rate_limit"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.DBName, d.Port)
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// RedisConfig holds the result cache settings.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// DetectionConfig holds the two independent filter configurations.
type DetectionConfig struct {
	Microsaccade  models.FilterConfiguration `mapstructure:"microsaccade"`
	Saccade       models.FilterConfiguration `mapstructure:"saccade"`
	ProfilesFile  string                     `mapstructure:"profiles_file"`
	RerunInterval time.Duration              `mapstructure:"rerun_interval"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.detect_rate_limit", 30)

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "visme-db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "redis:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	// Detection defaults
	setFilterDefaults(v, "detection.microsaccade", models.DefaultMicrosaccadeConfiguration())
	setFilterDefaults(v, "detection.saccade", models.DefaultSaccadeConfiguration())
	v.SetDefault("detection.profiles_file", "")
	v.SetDefault("detection.rerun_interval", 10*time.Second)
}

func setFilterDefaults(v *viper.Viper, prefix string, c models.FilterConfiguration) {
	defaults := map[string]any{
		"from_input_file":                c.FromInputFile,
		"velocity_threshold":             c.VelocityThreshold,
		"min_duration":                   c.MinDuration,
		"max_duration":                   c.MaxDuration,
		"binocular":                      c.Binocular,
		"min_amplitude":                  c.MinAmplitude,
		"max_amplitude":                  c.MaxAmplitude,
		"min_velocity":                   c.MinVelocity,
		"max_velocity":                   c.MaxVelocity,
		"min_intersacc_interval":         c.MinIntersaccInterval,
		"ignore_at_start":                c.IgnoreAtStart,
		"ignore_at_end":                  c.IgnoreAtEnd,
		"velocity_window_size":           c.VelocityWindowSize,
		"ignore_before_missing_data":     c.IgnoreBeforeMissing,
		"ignore_after_missing_data":      c.IgnoreAfterMissing,
		"use_max_duration":               c.UseMaxDuration,
		"use_min_amplitude":              c.UseMinAmplitude,
		"use_max_amplitude":              c.UseMaxAmplitude,
		"use_min_velocity":               c.UseMinVelocity,
		"use_max_velocity":               c.UseMaxVelocity,
		"use_min_intersacc_interval":     c.UseMinIntersaccInterval,
		"use_ignore_at_start":            c.UseIgnoreAtStart,
		"use_ignore_at_end":              c.UseIgnoreAtEnd,
		"use_ignore_before_missing_data": c.UseIgnoreBeforeMissing,
		"use_ignore_after_missing_data":  c.UseIgnoreAfterMissing,
	}
	for key, value := range defaults {
		v.SetDefault(prefix+"."+key, value)
	}
}

// Load reads the configuration with Viper from defaults, the optional
// config/config.yaml under projectRoot and VISME_ environment variables.
func Load(projectRoot string) (*viper.Viper, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("VISME") // e.g., VISME_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	c, err := decode(v)
	if err != nil {
		return nil, err
	}
	Set(c)
	return v, nil
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := c.Detection.Microsaccade.Validate(); err != nil {
		return Config{}, fmt.Errorf("detection.microsaccade: %w", err)
	}
	if err := c.Detection.Saccade.Validate(); err != nil {
		return Config{}, fmt.Errorf("detection.saccade: %w", err)
	}
	return c, nil
}

// Watch reloads the configuration when the config file changes. An
// invalid file is logged and ignored; the previous configuration stays.
func Watch(v *viper.Viper, log *zap.Logger) {
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		c, err := decode(v)
		if err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
			return
		}
		Set(c)
	})
	v.WatchConfig()
}

// Current returns a copy of the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return conf
}

// Set replaces the active configuration and notifies the change hooks.
func Set(c Config) {
	mu.Lock()
	conf = c
	fns := append([]func(Config){}, hooks...)
	mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// OnChange registers fn to be called with every new configuration.
func OnChange(fn func(Config)) {
	mu.Lock()
	defer mu.Unlock()
	hooks = append(hooks, fn)
}
