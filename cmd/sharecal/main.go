package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sharecal/internal/clock"
	"sharecal/internal/config"
	"sharecal/internal/ics"
	appLog "sharecal/internal/log"
	"sharecal/internal/metrics"
	"sharecal/internal/store"
	"sharecal/internal/store/migrations"
	"sharecal/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.SetFormat(conf.LogFormat)
	appLog.Info("sharecal starting", "version", version)

	loc := conf.Location()
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"database", conf.Database.Enabled(),
		"ics_count", len(conf.ICS),
		"refresh", conf.RefreshCron,
		"basic_auth", conf.BasicAuth != nil,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystem(loc)
	m := metrics.New()

	st := openStore(ctx, conf, clk, m)
	defer st.Close()

	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, src := range conf.ICS {
		sources = append(sources, ics.Source{ID: src.ID, URL: src.URL})
	}
	syncer := ics.NewSyncer(st, ics.NewFetcher(conf.CacheDir, nil), loc, sources, m)

	if flags.once {
		if _, err := syncer.SyncAll(ctx); err != nil {
			appLog.Error("import finished with errors", err)
			os.Exit(1)
		}
		appLog.Info("sharecal exiting")
		return
	}

	if len(sources) > 0 {
		sched, err := ics.NewScheduler(conf.RefreshCron, loc, func(ctx context.Context) {
			if _, err := syncer.SyncAll(ctx); err != nil {
				appLog.Error("scheduled import finished with errors", err)
			}
		})
		if err != nil {
			appLog.Error("failed to schedule ICS import", err)
			os.Exit(1)
		}
		sched.Start(ctx)
		appLog.Info("ICS import scheduled", "refresh", conf.RefreshCron, "next", sched.Next().Format(time.RFC3339))

		// Import once at startup instead of waiting for the first tick.
		go func() {
			if _, err := syncer.SyncAll(ctx); err != nil {
				appLog.Error("startup import finished with errors", err)
			}
		}()
	}

	srv := web.NewServer(conf, web.Deps{Store: st, Clock: clk, Syncer: syncer, Metrics: m})
	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("sharecal exiting")
}

// openStore connects to MySQL and applies migrations. When the database is
// disabled or unreachable the service falls back to an in-memory store,
// seeded with sample events if configured.
func openStore(ctx context.Context, conf *config.Config, clk clock.Clock, m *metrics.Metrics) store.Store {
	if conf.Database.Enabled() {
		st, err := openMySQL(ctx, conf, clk, m)
		if err == nil {
			return st
		}
		appLog.Error("database unavailable; falling back to in-memory store", err,
			"host", conf.Database.Host, "name", conf.Database.Name)
	}

	mem := store.NewMemoryStore(clk)
	if conf.SeedFallback {
		n, err := store.Seed(ctx, mem, clk)
		if err != nil {
			appLog.Error("seeding in-memory store failed", err)
		} else {
			appLog.Info("in-memory store seeded", "events", n)
		}
	}
	return mem
}

func openMySQL(ctx context.Context, conf *config.Config, clk clock.Clock, m *metrics.Metrics) (store.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, conf.Database.ConnectTimeout)
	defer cancel()

	db, err := store.OpenMySQL(connectCtx, store.MySQLConfig{
		Host:            conf.Database.Host,
		Port:            conf.Database.Port,
		User:            conf.Database.User,
		Password:        conf.Database.Password,
		Database:        conf.Database.Name,
		MaxOpenConns:    conf.Database.MaxOpenConns,
		MaxIdleConns:    conf.Database.MaxIdleConns,
		ConnMaxLifetime: conf.Database.ConnMaxLifetime,
		Location:        conf.Location(),
	})
	if err != nil {
		return nil, err
	}
	if err := migrations.Apply(connectCtx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	st := store.NewMySQLStore(db, clk)
	go recordPoolStats(ctx, st, m)
	appLog.Info("connected to MySQL", "host", conf.Database.Host, "name", conf.Database.Name)
	return st, nil
}

func recordPoolStats(ctx context.Context, st *store.MySQLStore, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		m.RecordDBPoolStats(st.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Import configured ICS feeds once and exit")

	flag.Parse()

	return cfg
}
