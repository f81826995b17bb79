package domain

import (
	"context"
	"time"

	"ratelake/internal/core/rates"

	"github.com/google/uuid"
)

// RunnerPort is the external port for the consolidation job
type RunnerPort interface {
	// Run consolidates all silver partitions committed for one processing date
	Run(ctx context.Context, dt string) (Report, error)

	// RunRange replays consolidation for every date in [start, end]
	RunRange(ctx context.Context, start, end time.Time) error
}

// AdminPort bootstraps storage (control-plane schema and the gold table)
type AdminPort interface {
	Bootstrap(ctx context.Context) error
}

// GoldPort is the storage capability injected into the writer: a columnar,
// partitioned, append-only fact store. Tests substitute an in-memory fake
type GoldPort interface {
	// EnsureTable creates the fact table with its partition column when missing
	EnsureTable(ctx context.Context) error

	// ExistingKeys returns the business keys already present in the given
	// partitions, for the pre-append idempotence check
	ExistingKeys(ctx context.Context, partitions []string) (map[rates.Key]struct{}, error)

	// Append lands rows in their partitions as a single all-or-nothing block
	Append(ctx context.Context, rows []GoldRow) error
}

// ControlRepo is the Postgres control plane bound per-transaction:
// run ledger, rejects sink, and partition catalog
type ControlRepo interface {
	// EnsureSchema creates control tables and seeds dimensions when missing
	EnsureSchema(ctx context.Context) error

	// BeginRun opens a run ledger row in status running
	BeginRun(ctx context.Context, runID uuid.UUID, dt string) error

	// FinishRun closes the ledger row with final counts; failedStage is empty
	// on success
	FinishRun(ctx context.Context, runID uuid.UUID, rep Report, failedStage Stage, runErr error) error

	// WriteRejects persists the audit side-output of the validation stage
	WriteRejects(ctx context.Context, runID uuid.UUID, dt string, rejects []rates.Reject) error

	// RegisterPartitions upserts catalog entries so the partitions become
	// discoverable; retried independently of the data write
	RegisterPartitions(ctx context.Context, runID uuid.UUID, table string, parts []PartitionWrite) error
}
