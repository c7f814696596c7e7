package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blackwell-systems/fieldcoach/internal/activity"
	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/coaching"
	"github.com/blackwell-systems/fieldcoach/internal/config"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/detect"
	"github.com/blackwell-systems/fieldcoach/internal/identity"
	"github.com/blackwell-systems/fieldcoach/internal/logging"
	"github.com/blackwell-systems/fieldcoach/internal/output"
	"github.com/blackwell-systems/fieldcoach/internal/recommend"
	"github.com/blackwell-systems/fieldcoach/internal/store"
	"go.uber.org/zap"
)

// env holds the components a command needs, built from configuration.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *store.DB
	userID string

	calc        *analytics.Calculator
	refresher   *analytics.Refresher
	correlator  *analytics.SeriesCorrelator
	coach       *coaching.Service
	recommender *recommend.Engine
	activities  *activity.Service

	closers []func() error
}

// loadConfig loads configuration and applies the output preferences.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	output.AutoColor(flagNoColor || !cfg.Output.Color)
	return cfg, nil
}

// newLogger builds the command logger; --verbose forces debug level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if flagVerbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format, "fieldcoach")
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// openEnv loads config, opens the database, and wires every service. When
// needUser is set the acting rep is resolved and must exist.
func openEnv(ctx context.Context, needUser bool) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.DatabasePath, err)
	}

	e := &env{cfg: cfg, logger: logger, db: db}
	e.closers = append(e.closers, db.Close, func() error { _ = logger.Sync(); return nil })

	if needUser {
		id, err := e.resolveUser(ctx)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.userID = id
	}

	e.calc = analytics.NewCalculator(db, time.Now, logger.Named("analytics"))
	e.refresher = analytics.NewRefresher(db, logger.Named("refresh"))
	e.correlator = analytics.NewSeriesCorrelator(db, cfg.Correlation.MinPoints, cfg.Correlation.TopN, logger.Named("correlation"))
	e.coach = coaching.NewService(db, e.calc, e.correlator, cfg.Coaching, cfg.Analytics.WindowDays, logger.Named("coaching"))
	e.recommender = recommend.NewEngine(db, e.correlator, cfg.Analytics.WindowDays, logger.Named("recommend"))
	e.activities = activity.NewService(db, detect.New(cfg.Competitors), logger.Named("activity"))
	return e, nil
}

// resolveUser maps the configured principal to a user id through the
// cached resolver.
func (e *env) resolveUser(ctx context.Context) (string, error) {
	principal := flagUser
	if principal == "" {
		principal = e.cfg.User
	}

	var cache identity.Cache
	switch strings.ToLower(e.cfg.Cache.Backend) {
	case "redis":
		client := identity.NewRedisClient(e.cfg.Redis.Addr, e.cfg.Redis.Password, e.cfg.Redis.DB)
		e.closers = append(e.closers, client.Close)
		cache = identity.NewRedisCache(client, "fieldcoach:")
	case "none":
	default:
		cache = identity.NewMemoryCache(time.Now)
	}

	resolver := identity.NewResolver(e.db, cache, e.cfg.Cache.TTL, e.logger.Named("identity"))
	id, err := resolver.CurrentUser(identity.WithPrincipal(ctx, principal))
	if errors.Is(err, crm.ErrUnauthenticated) {
		return "", fmt.Errorf("no acting user: pass --user or set user in config: %w", err)
	}
	if err != nil {
		return "", fmt.Errorf("resolving user %q: %w", principal, err)
	}
	return id, nil
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// window returns the trailing analysis period ending now; days <= 0 uses
// the configured window.
func (e *env) window(days int) crm.Period {
	if days <= 0 {
		days = e.cfg.Analytics.WindowDays
	}
	return crm.TrailingDays(time.Now(), days)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseTime accepts a date (2006-01-02) in local time or an RFC 3339
// timestamp. An empty string yields def.
func parseTime(s string, def time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

// shortID trims a uuid for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// orDash renders empty values as a dash.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
