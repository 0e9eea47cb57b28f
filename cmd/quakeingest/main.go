// Command quakeingest backfills USGS earthquake events into postgres.
//
// Usage:
//
//	quakeingest [verbosity]
//
// verbosity 0 logs at info, 1 at debug, 2 at error. Anything else means info
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quakeingest/internal/core/version"
	"quakeingest/internal/modkit"
	"quakeingest/internal/modkit/module"
	"quakeingest/internal/platform/config"
	perr "quakeingest/internal/platform/errors"
	"quakeingest/internal/platform/logger"
	"quakeingest/internal/platform/metrics"
	phttp "quakeingest/internal/platform/net/http"
	"quakeingest/internal/platform/store"
	"quakeingest/internal/platform/store/pg"

	backfillmod "quakeingest/internal/services/backfill/module"
	"quakeingest/internal/services/backfill/domain"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() { os.Exit(run(os.Args[1:])) }

func run(args []string) int {
	// .env is optional; real environment variables win
	dotErr := godotenv.Load()

	opt := logger.FromEnv()
	if len(args) > 0 {
		opt.Level = logger.LevelForVerbosity(args[0])
	}
	if opt.File == "" {
		opt.File = logger.DefaultFile
	}
	logger.Init(opt)
	defer func() { _ = logger.Close() }()
	l := logger.Get()

	bi := version.Info()
	l.Info().Str("version", bi.Version).Str("commit", bi.Commit).Str("built", bi.Date).Msg("quakeingest starting")

	if dotErr != nil && !errors.Is(dotErr, fs.ErrNotExist) {
		l.Warn().Err(dotErr).Msg("ignoring unreadable .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()

	// connection parameters come from one section of an ini or yaml file
	dbCfg := root.Prefix("DB_CONFIG_")
	params, err := config.LoadSection(dbCfg.MayString("FILE", "dbconfig.ini"), dbCfg.MayString("SECTION", "postgres"))
	if err != nil {
		l.Error().Err(err).Msg("database configuration")
		return 1
	}

	pgCfg := root.Prefix("SERVICE_PGSQL_")
	st, err := store.Open(ctx, store.Config{
		AppName: "quakeingest",
		PG: store.PGConfig{
			Enabled:        true,
			URL:            pg.DSN(params),
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 2)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", false),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 6),
			PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
	}, store.WithLogger(l))
	if err != nil {
		l.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("store.Open failed")
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if err := st.Guard(ctx); err != nil {
		l.Error().Err(err).Msg("store not ready")
		return 1
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// optional ops endpoint for the duration of the run
	if addr := root.MayString("METRICS_ADDR", ""); addr != "" {
		srv := phttp.NewServer(addr, phttp.Ops(st.Guard, reg))
		go func() {
			if err := srv.Run(ctx); err != nil {
				l.Error().Err(err).Msg("ops server stopped")
			}
		}()
	}

	bf, err := backfillmod.New(modkit.Deps{Log: l, Cfg: root, PG: st.PG, Metrics: m})
	if err != nil {
		l.Error().Err(err).Msg("backfill options")
		return 1
	}
	runner := module.MustPortsOf[domain.RunnerPort](bf)

	o := bf.Options()
	sum, err := runner.RunRange(ctx, o.Start, o.End)
	if err != nil {
		l.Error().Err(err).
			Str("code", perr.CodeOf(err).String()).
			Bool("fatal", perr.Fatal(err)).
			Int("ingested", sum.Ingested).
			Msg("backfill stopped")
		return 1
	}
	return 0
}
