// Package config provides configuration loading and defaults for fieldcoach.
package config

import "time"

// DefaultConfigDir is the default location for fieldcoach configuration.
const DefaultConfigDir = "~/.config/fieldcoach"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "fieldcoach.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultLog holds the default logging settings.
var DefaultLog = Log{
	Level:  "info",
	Format: "console",
}

// DefaultCache holds the default user-lookup cache settings.
var DefaultCache = Cache{
	Backend: "memory",
	TTL:     5 * time.Minute,
}

// DefaultRedis holds the default redis connection settings.
var DefaultRedis = Redis{
	Addr: "localhost:6379",
}

// DefaultAnalytics holds the default analytics window.
var DefaultAnalytics = Analytics{
	WindowDays: 30,
}

// DefaultCorrelation holds the default correlation settings.
var DefaultCorrelation = Correlation{
	TopN:      3,
	MinPoints: 3,
}

// DefaultRecommend holds the default recommendation settings.
var DefaultRecommend = Recommend{
	Limit: 5,
}

// DefaultCompetitors is the preset list of known competitor names.
var DefaultCompetitors = []string{}

// DefaultCoaching holds the default coaching-signal thresholds.
var DefaultCoaching = Coaching{
	BCRFloor:             40,
	RTRFloor:             50,
	RTRDrop:              15,
	ConversionFloor:      20,
	MinTaggedActivities:  3,
	InterestDropRatio:    0.5,
	WeakQualityThreshold: 50,
	CompetitorHighCount:  3,
}

// DefaultWatch holds the default watch schedule.
var DefaultWatch = Watch{
	Schedule: "0 0 7 * * *",
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}
