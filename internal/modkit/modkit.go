// Package modkit provides module wiring and core deps
package modkit

import (
	"ratelake/internal/modkit/repokit"
	"ratelake/internal/platform/config"
	"ratelake/internal/platform/logger"
	"ratelake/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
