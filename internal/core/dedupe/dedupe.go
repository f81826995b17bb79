// Package dedupe resolves duplicate business keys within one accepted batch
// to exactly one record per key. Pure, no side effects.
package dedupe

import (
	"sort"

	"ratelake/internal/core/rates"
)

// Resolve groups the accepted batch by business key and keeps the most
// recently ingested record per key: last-writer-wins by ingestion_ts, with a
// missing ingestion_ts sorting last. Equal timestamps fall back to a stable
// secondary sort on source_file (ascending) so repeated runs pick the same
// winner.
//
// Winners come back ordered by (date, entity_id, product_id) so downstream
// writes are reproducible. dropped is the count of rows that lost a tie-break.
//
// Records whose key parts are incomplete should never reach here (the
// validator rejects them); any that do are dropped and counted
func Resolve(accepted []rates.Record) (winners []rates.Record, dropped int) {
	byKey := make(map[rates.Key]rates.Record, len(accepted))
	for _, r := range accepted {
		k, ok := r.Key()
		if !ok {
			dropped++
			continue
		}
		cur, seen := byKey[k]
		if !seen {
			byKey[k] = r
			continue
		}
		dropped++
		if wins(r, cur) {
			byKey[k] = r
		}
	}

	winners = make([]rates.Record, 0, len(byKey))
	for _, r := range byKey {
		winners = append(winners, r)
	}
	sort.Slice(winners, func(i, j int) bool {
		ki, _ := winners[i].Key()
		kj, _ := winners[j].Key()
		if !ki.Date.Equal(kj.Date) {
			return ki.Date.Before(kj.Date)
		}
		if ki.EntityID != kj.EntityID {
			return ki.EntityID < kj.EntityID
		}
		return ki.ProductID < kj.ProductID
	})
	return winners, dropped
}

// wins reports whether challenger beats incumbent for the same key
func wins(challenger, incumbent rates.Record) bool {
	ct, it := challenger.IngestionTS, incumbent.IngestionTS
	switch {
	case ct == nil && it == nil:
		// both untimestamped: stable tie-break on source_file
		return challenger.SourceFile < incumbent.SourceFile
	case ct == nil:
		return false // nil sorts last
	case it == nil:
		return true
	case ct.After(*it):
		return true
	case it.After(*ct):
		return false
	default:
		// identical ingestion_ts: deterministic, source_file ascending wins
		return challenger.SourceFile < incumbent.SourceFile
	}
}
