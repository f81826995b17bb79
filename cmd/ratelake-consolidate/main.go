// Command ratelake-consolidate promotes one processing date's silver
// partitions into the gold fact table
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
		fDT        = flag.String("dt", "", "processing date YYYY-MM-DD (default: yesterday UTC)")
		fBootstrap = flag.Bool("bootstrap", false, "ensure control schema and gold table, then exit")
		fDryRun    = flag.Bool("dry-run", false, "compute the full report without writing gold or catalog")
		fWorkers   = flag.Int("workers", 0, "override CORE_CONSOLIDATE_WORKERS")
		fSilver    = flag.String("silver-root", "", "override CORE_CONSOLIDATE_SILVER_ROOT")
	)
	flag.Parse()

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
			Role:    "consolidate",
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

	// surface flag overrides to the module's FromConfig
	mustSetEnv("CORE_CONSOLIDATE_DRY_RUN", map[bool]string{true: "1", false: ""}[*fDryRun])
	if *fWorkers > 0 {
		mustSetEnv("CORE_CONSOLIDATE_WORKERS", strconv.Itoa(*fWorkers))
	}
	mustSetEnv("CORE_CONSOLIDATE_SILVER_ROOT", *fSilver)

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	cm := consolidatemod.New(deps)
	ctx := context.Background()

	if *fBootstrap {
		if err := cm.Ports().Admin.Bootstrap(ctx); err != nil {
			l.Fatal().Err(err).Msg("bootstrap failed")
		}
		l.Info().Msg("bootstrap complete")
		return
	}

	dt := *fDT
	if dt == "" {
		dt = time.Now().UTC().AddDate(0, 0, -1).Format(config.DateLayout)
	}

	rep, err := cm.Ports().Runner.Run(ctx, dt)
	if err != nil {
		l.Fatal().Str("dt", dt).Err(err).Msg("consolidation failed")
	}
	l.Info().
		Str("run_id", rep.RunID).
		Str("dt", rep.DT).
		Strs("sources", rep.Sources).
		Int("input", rep.Input).
		Int("accepted", rep.Accepted).
		Int("rejected", rep.Rejected).
		Int("deduped_away", rep.DedupedAway).
		Int("written", rep.Written).
		Int("skipped_existing", rep.SkippedExisting).
		Msg("consolidation complete")
}
