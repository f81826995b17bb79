// Package domain defines the normalize service types and ports
package domain

import (
	"ratelake/internal/core/productmap"
)

// Row is one bronze CSV record keyed by header name
type Row map[string]string

// Artifact locates one bronze capture for a source and date
type Artifact struct {
	Source string
	DT     string

	// Path is the artifact locator persisted as source_file on every row
	Path string
}

// SourceSpec declares how one source's bronze captures map onto the
// silver record shape. Exactly one of Products or Series resolves the
// product id: scraped product tables carry free-text names, series feeds
// carry stable series identifiers
type SourceSpec struct {
	Name     string `validate:"required"`
	EntityID int32  `validate:"required,gt=0"`

	// ProductColumn names the free-text product column matched by Products
	ProductColumn string            `validate:"required_with=Products"`
	Products      *productmap.Table `validate:"omitempty"`

	// SeriesColumn names the series-id column looked up in Series.
	// An unmapped series id yields a record with no product id; the
	// validator downstream rejects it rather than guessing
	SeriesColumn string           `validate:"required_with=Series"`
	Series       map[string]int32 `validate:"omitempty,dive,gt=0"`

	// RateColumn holds the annual rate, possibly suffixed with '%'
	RateColumn string `validate:"required"`

	// DateColumn and DateLayout extract the business date. Timestamp
	// layouts are fine; only the calendar date survives
	DateColumn string `validate:"required"`
	DateLayout string `validate:"required"`
}

// Report summarizes one normalization run
type Report struct {
	Source string
	DT     string
	Input  int
	Rows   int
	Path   string
}
