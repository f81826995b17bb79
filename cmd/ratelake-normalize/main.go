// Command ratelake-normalize runs per-source normalizers over captured
// bronze artifacts and stages silver partitions
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"ratelake/internal/modkit"
	"ratelake/internal/platform/config"
	"ratelake/internal/platform/logger"

	normalizemod "ratelake/internal/services/normalize/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	root := config.New()
	l := logger.Get()

	var (
		fDT      = flag.String("dt", "", "processing date YYYY-MM-DD (default: yesterday UTC)")
		fSources = flag.String("sources", "", "comma separated source names (default: all registered)")
		fBronze  = flag.String("bronze-root", "", "override CORE_NORMALIZE_BRONZE_ROOT")
		fSilver  = flag.String("silver-root", "", "override CORE_NORMALIZE_SILVER_ROOT")
	)
	flag.Parse()

	mustSetEnv("CORE_NORMALIZE_BRONZE_ROOT", *fBronze)
	mustSetEnv("CORE_NORMALIZE_SILVER_ROOT", *fSilver)

	deps := modkit.Deps{Cfg: root, Log: *l}

	nm, err := normalizemod.New(deps)
	if err != nil {
		l.Panic().Err(err).Msg("normalize module wiring failed")
	}
	runner := nm.Ports().Runner

	dt := *fDT
	if dt == "" {
		dt = time.Now().UTC().AddDate(0, 0, -1).Format(config.DateLayout)
	}

	names := runner.Sources()
	if *fSources != "" {
		names = strings.Split(*fSources, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
	}

	ctx := context.Background()
	failed := 0
	for _, name := range names {
		rep, err := runner.Run(ctx, name, dt)
		if err != nil {
			l.Error().Str("source", name).Str("dt", dt).Err(err).Msg("normalize failed")
			failed++
			continue
		}
		l.Info().
			Str("source", rep.Source).
			Str("dt", rep.DT).
			Int("input", rep.Input).
			Int("rows", rep.Rows).
			Str("path", rep.Path).
			Msg("normalize complete")
	}
	if failed > 0 {
		l.Fatal().Int("failed", failed).Msg("some sources failed")
	}
}
