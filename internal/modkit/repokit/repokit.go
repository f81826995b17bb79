// Package repokit defines how repos bind to a query surface. Services hold
// a Binder instead of a concrete repo so the same code runs against the
// pool, an open transaction, or a test fake.
package repokit

import (
	"ratelake/internal/platform/store"
)

// Queryer is the statement surface repos execute against
type Queryer = store.RowQuerier

// TxRunner executes a function inside a transaction
type TxRunner = store.TxRunner

// Clickhouse is the columnar seam gold repos bind against
type Clickhouse = store.Clickhouse

// Binder produces a repo bound to a specific Queryer
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a function to the Binder interface
type BindFunc[T any] func(Queryer) T

// Bind calls f
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }
