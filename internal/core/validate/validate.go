// Package validate classifies silver records as accepted or rejected
// against the canonical schema and range rules. Pure, no side effects.
package validate

import "ratelake/internal/core/rates"

// Rate bounds: the open interval a percentage-denominated annual rate must
// fall in. Sources reporting non-percentage encodings must pre-scale
// upstream; the bound is a sanity ceiling, not a unit conversion
const (
	RateMin = 0.0
	RateMax = 200.0
)

// Check evaluates the rules in order, first match wins.
// ok=false returns the reject reason
func Check(r rates.Record) (rates.RejectReason, bool) {
	switch {
	case r.Date == nil:
		return rates.RejectNullDate, false
	case r.EntityID == nil:
		return rates.RejectNullEntityID, false
	case r.ProductID == nil:
		return rates.RejectNullProductID, false
	case r.Rate == nil:
		return rates.RejectNullRate, false
	case !(*r.Rate > RateMin && *r.Rate < RateMax):
		return rates.RejectRateOutOfRange, false
	}
	return "", true
}

// Split partitions a batch into accepted records and tagged rejects,
// preserving input order within both streams
func Split(batch []rates.Record) (accepted []rates.Record, rejects []rates.Reject) {
	accepted = make([]rates.Record, 0, len(batch))
	for _, r := range batch {
		if reason, ok := Check(r); !ok {
			rejects = append(rejects, rates.Reject{Record: r, Reason: reason})
			continue
		}
		accepted = append(accepted, r)
	}
	return accepted, rejects
}
