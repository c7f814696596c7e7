package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level fieldcoach configuration.
type Config struct {
	DatabasePath string      `mapstructure:"database_path"`
	User         string      `mapstructure:"user"`
	Log          Log         `mapstructure:"log"`
	Cache        Cache       `mapstructure:"cache"`
	Redis        Redis       `mapstructure:"redis"`
	Analytics    Analytics   `mapstructure:"analytics"`
	Correlation  Correlation `mapstructure:"correlation"`
	Recommend    Recommend   `mapstructure:"recommend"`
	Competitors  []string    `mapstructure:"competitors"`
	Coaching     Coaching    `mapstructure:"coaching"`
	Watch        Watch       `mapstructure:"watch"`
	Output       Output      `mapstructure:"output"`
}

// Log defines logger settings.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Cache defines the user-lookup cache.
type Cache struct {
	Backend string        `mapstructure:"backend"` // "memory" or "redis"
	TTL     time.Duration `mapstructure:"ttl"`
}

// Redis defines the redis connection used by the redis cache backend.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Analytics defines the analysis window.
type Analytics struct {
	WindowDays int `mapstructure:"window_days"`
}

// Correlation defines correlation analyzer settings.
type Correlation struct {
	TopN      int `mapstructure:"top_n"`
	MinPoints int `mapstructure:"min_points"`
}

// Recommend defines recommendation engine settings.
type Recommend struct {
	Limit int `mapstructure:"limit"`
}

// Coaching defines thresholds for the coaching-signal rules.
type Coaching struct {
	BCRFloor             int     `mapstructure:"bcr_floor"`
	RTRFloor             int     `mapstructure:"rtr_floor"`
	RTRDrop              int     `mapstructure:"rtr_drop"`
	ConversionFloor      int     `mapstructure:"conversion_floor"`
	MinTaggedActivities  int     `mapstructure:"min_tagged_activities"`
	InterestDropRatio    float64 `mapstructure:"interest_drop_ratio"`
	WeakQualityThreshold int     `mapstructure:"weak_quality_threshold"`
	CompetitorHighCount  int     `mapstructure:"competitor_high_count"`
}

// Watch defines the scheduled refresh cycle.
type Watch struct {
	Schedule string `mapstructure:"schedule"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. Environment variables
// prefixed with FIELDCOACH_ override file values.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database_path", filepath.Join(DefaultConfigDir, DefaultDBName))
	v.SetDefault("user", "")
	v.SetDefault("log.level", DefaultLog.Level)
	v.SetDefault("log.format", DefaultLog.Format)
	v.SetDefault("cache.backend", DefaultCache.Backend)
	v.SetDefault("cache.ttl", DefaultCache.TTL)
	v.SetDefault("redis.addr", DefaultRedis.Addr)
	v.SetDefault("redis.password", DefaultRedis.Password)
	v.SetDefault("redis.db", DefaultRedis.DB)
	v.SetDefault("analytics.window_days", DefaultAnalytics.WindowDays)
	v.SetDefault("correlation.top_n", DefaultCorrelation.TopN)
	v.SetDefault("correlation.min_points", DefaultCorrelation.MinPoints)
	v.SetDefault("recommend.limit", DefaultRecommend.Limit)
	v.SetDefault("competitors", DefaultCompetitors)
	v.SetDefault("coaching.bcr_floor", DefaultCoaching.BCRFloor)
	v.SetDefault("coaching.rtr_floor", DefaultCoaching.RTRFloor)
	v.SetDefault("coaching.rtr_drop", DefaultCoaching.RTRDrop)
	v.SetDefault("coaching.conversion_floor", DefaultCoaching.ConversionFloor)
	v.SetDefault("coaching.min_tagged_activities", DefaultCoaching.MinTaggedActivities)
	v.SetDefault("coaching.interest_drop_ratio", DefaultCoaching.InterestDropRatio)
	v.SetDefault("coaching.weak_quality_threshold", DefaultCoaching.WeakQualityThreshold)
	v.SetDefault("coaching.competitor_high_count", DefaultCoaching.CompetitorHighCount)
	v.SetDefault("watch.schedule", DefaultWatch.Schedule)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)

	v.SetEnvPrefix("FIELDCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.DatabasePath = expandPath(cfg.DatabasePath)
	if cfg.Analytics.WindowDays <= 0 {
		cfg.Analytics.WindowDays = DefaultAnalytics.WindowDays
	}
	if cfg.Recommend.Limit <= 0 {
		cfg.Recommend.Limit = DefaultRecommend.Limit
	}

	return &cfg, nil
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
