// Package domain defines the silver layer contract: per-source partitions of
// canonical records keyed by processing date
package domain

// StagingFile is the fixed artifact name inside every silver partition
const StagingFile = "fact_rates_staging.jsonl.gz"

// Partition locates one source's silver output for one processing date
type Partition struct {
	Source string
	DT     string // processing date, YYYY-MM-DD
	Path   string // opaque locator of the staged artifact
	Rows   int
}
