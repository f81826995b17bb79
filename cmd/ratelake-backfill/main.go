// Command ratelake-backfill replays consolidation over a date range
package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"time"

	"ratelake/internal/modkit"
	"ratelake/internal/platform/config"
	"ratelake/internal/platform/logger"
	"ratelake/internal/platform/store"

	consolidatemod "ratelake/internal/services/consolidate/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	var (
		fStart   = flag.String("start", "", "first processing date YYYY-MM-DD")
		fEnd     = flag.String("end", "", "last processing date YYYY-MM-DD inclusive")
		fWorkers = flag.Int("workers", 0, "override CORE_CONSOLIDATE_WORKERS")
		fDryRun  = flag.Bool("dry-run", false, "compute reports without writing gold or catalog")
	)
	flag.Parse()

	if *fStart == "" || *fEnd == "" {
		l.Panic().Msg("must provide -start and -end")
	}
	start, err := time.Parse(config.DateLayout, *fStart)
	if err != nil {
		l.Panic().Err(err).Msg("bad -start")
	}
	end, err := time.Parse(config.DateLayout, *fEnd)
	if err != nil {
		l.Panic().Err(err).Msg("bad -end")
	}
	if end.Before(start) {
		l.Panic().Str("start", *fStart).Str("end", *fEnd).Msg("-end before -start")
	}

	st, err := store.Open(context.Background(), store.Config{
		AppName: "ratelake",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
		CH: store.CHConfig{
			Enabled: true,
			URL:     chCfg.MustString("DBURL"),
			Role:    "backfill",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	mustSetEnv("CORE_CONSOLIDATE_DRY_RUN", map[bool]string{true: "1", false: ""}[*fDryRun])
	if *fWorkers > 0 {
		mustSetEnv("CORE_CONSOLIDATE_WORKERS", strconv.Itoa(*fWorkers))
	}

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	cm := consolidatemod.New(deps)

	ctx := context.Background()
	if err := cm.Ports().Runner.RunRange(ctx, start.UTC(), end.UTC()); err != nil {
		l.Fatal().Err(err).Msg("backfill failed")
	}
	l.Info().Str("start", *fStart).Str("end", *fEnd).Msg("backfill complete")
}
