// Package domain defines the core types and interfaces for the consolidate service
package domain

import (
	"time"

	"ratelake/internal/core/rates"
)

// Stage names the pipeline's state machine; a run either reaches
// StageRegistered or fails tagged with the stage it died in
type Stage string

// Pipeline stages in execution order
const (
	StageLoaded     Stage = "LOADED"
	StageValidated  Stage = "VALIDATED"
	StageDeduped    Stage = "DEDUPED"
	StageHashed     Stage = "HASHED"
	StageWritten    Stage = "WRITTEN"
	StageRegistered Stage = "REGISTERED"
)

// GoldRow is one consolidated fact row. Every field is resolved: the
// validator guarantees rate is present and in range, the deduplicator
// guarantees the business key is unique within the run
type GoldRow struct {
	Date         time.Time
	EntityID     int32
	ProductID    int32
	Rate         float64
	IngestionTS  *time.Time
	SourceFile   string
	BusinessHash string

	// DT is the partition key: the row's business date, not the date the
	// run happened to execute on
	DT string
}

// Key returns the row's business key
func (g GoldRow) Key() rates.Key {
	return rates.Key{Date: rates.Midnight(g.Date), EntityID: g.EntityID, ProductID: g.ProductID}
}

// PartitionWrite summarizes one gold partition touched by a run
type PartitionWrite struct {
	DT   string
	Rows int
}

// Report is the structured run summary surfaced on success and persisted to
// the run ledger either way
type Report struct {
	RunID   string
	DT      string
	Sources []string

	Input            int
	Accepted         int
	Rejected         int
	RejectedByReason map[rates.RejectReason]int
	DedupedAway      int
	Written          int
	SkippedExisting  int

	Partitions []PartitionWrite
}
