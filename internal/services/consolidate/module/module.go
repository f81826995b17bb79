// Package module provides the consolidate module implementation
package module

import (
	"os"

	"ratelake/internal/modkit"
	"ratelake/internal/services/consolidate/domain"
	"ratelake/internal/services/consolidate/guardrails"
	"ratelake/internal/services/consolidate/repo"
	"ratelake/internal/services/consolidate/service"
	silverdom "ratelake/internal/services/silver/domain"
	silverrepo "ratelake/internal/services/silver/repo"
)

// Ports defines the consolidate module ports
type Ports struct {
	Runner domain.RunnerPort
	Admin  domain.AdminPort
}

// Module implements the consolidate module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the consolidate module, wiring the postgres control plane,
// the clickhouse gold store, and the silver reader from deps.Cfg
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	controlBinder := repo.NewPG()
	gold := repo.NewGold(deps.CH, opts.GoldTable)

	var silver silverdom.ReaderPort = silverrepo.NewFS(opts.SilverRoot)

	var lease guardrails.Lease
	if opts.Leases {
		host, _ := os.Hostname()
		lease = guardrails.MakeRunLease(deps.PG, host)
	}

	svc := service.New(
		deps.PG, controlBinder, gold, silver, lease,
		service.Config{
			GoldTable:       opts.GoldTable,
			RegisterRetries: opts.RegisterRetries,
			RetryBase:       opts.RetryBase,
			Workers:         opts.Workers,
			MaxRangeDays:    opts.MaxRangeDays,
			DryRun:          opts.DryRun,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc, Admin: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "consolidate" }

// Ports returns the module ports
func (m *Module) Ports() Ports { return m.ports }
