// Package rates defines the canonical silver row shape the consolidation
// pipeline consumes, plus its business key and reject envelope.
//
// A Record is one observation of one financial product at one institution on
// one business date. Normalizers emit Records; the pipeline never sees
// source-specific shapes.
package rates

import "time"

// DateLayout is the canonical YYYY-MM-DD rendering of business dates
const DateLayout = "2006-01-02"

// Record is the canonical silver row.
// Pointer fields are nullable on the wire; the validator decides what a nil
// means, nothing else coerces them
type Record struct {
	Date        *time.Time `json:"date"`
	EntityID    *int32     `json:"entity_id"`
	ProductID   *int32     `json:"product_id"`
	Rate        *float64   `json:"rate"`
	IngestionTS *time.Time `json:"ingestion_ts"`
	SourceFile  string     `json:"source_file"`
}

// Key is the business key (date, entity_id, product_id) identifying one
// logical observation slot. Date is normalized to midnight UTC so Keys
// compare with ==
type Key struct {
	Date      time.Time
	EntityID  int32
	ProductID int32
}

// Key returns the business key and whether all of its parts are present
func (r Record) Key() (Key, bool) {
	if r.Date == nil || r.EntityID == nil || r.ProductID == nil {
		return Key{}, false
	}
	return Key{
		Date:      Midnight(*r.Date),
		EntityID:  *r.EntityID,
		ProductID: *r.ProductID,
	}, true
}

// Midnight truncates t to its calendar date at midnight UTC
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RejectReason is the machine-facing tag attached to a rejected silver row
type RejectReason string

// Reject reasons, stable strings kept wire-compatible with the rejects sink
const (
	RejectNullDate       RejectReason = "NULL_date"
	RejectNullEntityID   RejectReason = "NULL_entity_id"
	RejectNullProductID  RejectReason = "NULL_product_id"
	RejectNullRate       RejectReason = "NULL_rate"
	RejectRateOutOfRange RejectReason = "rate_out_of_range"
)

// Reject pairs a rejected record with its reason; rejected rows are retained
// for audit, never dropped
type Reject struct {
	Record Record
	Reason RejectReason
}
