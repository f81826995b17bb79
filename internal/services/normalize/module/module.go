// Package module provides the normalize module implementation
package module

import (
	"ratelake/internal/modkit"
	"ratelake/internal/services/normalize/domain"
	"ratelake/internal/services/normalize/repo"
	"ratelake/internal/services/normalize/service"
	"ratelake/internal/services/normalize/sources"
	silverrepo "ratelake/internal/services/silver/repo"
)

// Ports defines the normalize module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the normalize module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the normalize module over the filesystem bronze and
// silver roots from deps.Cfg
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)

	bronze := repo.NewFS(opts.BronzeRoot)
	silver := silverrepo.NewFS(opts.SilverRoot)

	svc, err := service.New(bronze, silver, sources.All())
	if err != nil {
		return nil, err
	}

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "normalize" }

// Ports returns the module ports
func (m *Module) Ports() Ports { return m.ports }
