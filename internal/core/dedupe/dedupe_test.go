package dedupe

import (
	"testing"
	"time"

	"ratelake/internal/core/rates"
)

func d(s string) *time.Time {
	t, err := time.Parse(rates.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func i32(v int32) *int32     { return &v }
func f64(v float64) *float64 { return &v }

func rec(date string, entity, product int32, rate float64, ingested *time.Time, src string) rates.Record {
	return rates.Record{
		Date:        d(date),
		EntityID:    i32(entity),
		ProductID:   i32(product),
		Rate:        f64(rate),
		IngestionTS: ingested,
		SourceFile:  src,
	}
}

func TestResolve_LastWriterWins(t *testing.T) {
	t.Parallel()

	early := ts("2025-11-08T02:00:00Z")
	late := ts("2025-11-08T09:00:00Z")

	winners, dropped := Resolve([]rates.Record{
		rec("2025-11-08", 2, 7, 9.0, early, "a.csv"),
		rec("2025-11-08", 2, 7, 9.5, late, "b.csv"),
	})

	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if len(winners) != 1 {
		t.Fatalf("winners = %d, want 1", len(winners))
	}
	if *winners[0].Rate != 9.5 {
		t.Fatalf("winner rate = %v, want 9.5 (later ingestion must win)", *winners[0].Rate)
	}
}

func TestResolve_OrderIndependent(t *testing.T) {
	t.Parallel()

	early := ts("2025-11-08T02:00:00Z")
	late := ts("2025-11-08T09:00:00Z")

	forward, _ := Resolve([]rates.Record{
		rec("2025-11-08", 2, 7, 9.0, early, "a.csv"),
		rec("2025-11-08", 2, 7, 9.5, late, "b.csv"),
	})
	backward, _ := Resolve([]rates.Record{
		rec("2025-11-08", 2, 7, 9.5, late, "b.csv"),
		rec("2025-11-08", 2, 7, 9.0, early, "a.csv"),
	})

	if *forward[0].Rate != *backward[0].Rate {
		t.Fatalf("winner depends on input order: %v vs %v", *forward[0].Rate, *backward[0].Rate)
	}
}

func TestResolve_NilIngestionSortsLast(t *testing.T) {
	t.Parallel()

	stamped := ts("2025-11-08T02:00:00Z")

	winners, _ := Resolve([]rates.Record{
		rec("2025-11-08", 2, 7, 1.0, nil, "a.csv"),
		rec("2025-11-08", 2, 7, 2.0, stamped, "b.csv"),
	})
	if *winners[0].Rate != 2.0 {
		t.Fatalf("winner rate = %v, want 2.0 (stamped must beat unstamped)", *winners[0].Rate)
	}

	winners, _ = Resolve([]rates.Record{
		rec("2025-11-08", 2, 7, 2.0, stamped, "b.csv"),
		rec("2025-11-08", 2, 7, 1.0, nil, "a.csv"),
	})
	if *winners[0].Rate != 2.0 {
		t.Fatalf("winner rate = %v, want 2.0 regardless of arrival order", *winners[0].Rate)
	}
}

func TestResolve_EqualTimestampTieBreak(t *testing.T) {
	t.Parallel()

	same := ts("2025-11-08T02:00:00Z")

	for i := 0; i < 2; i++ {
		in := []rates.Record{
			rec("2025-11-08", 2, 7, 1.0, same, "z.csv"),
			rec("2025-11-08", 2, 7, 2.0, same, "a.csv"),
		}
		if i == 1 {
			in[0], in[1] = in[1], in[0]
		}
		winners, _ := Resolve(in)
		if winners[0].SourceFile != "a.csv" {
			t.Fatalf("tie-break picked %q, want a.csv (source_file ascending)", winners[0].SourceFile)
		}
	}
}

func TestResolve_DistinctKeysUntouched(t *testing.T) {
	t.Parallel()

	stamped := ts("2025-11-08T02:00:00Z")
	winners, dropped := Resolve([]rates.Record{
		rec("2025-11-08", 2, 7, 1.0, stamped, "a.csv"),
		rec("2025-11-08", 2, 8, 2.0, stamped, "a.csv"),
		rec("2025-11-07", 2, 7, 3.0, stamped, "a.csv"),
		rec("2025-11-08", 4, 7, 4.0, stamped, "a.csv"),
	})
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	if len(winners) != 4 {
		t.Fatalf("winners = %d, want 4", len(winners))
	}
	// ordered by (date, entity, product)
	if *winners[0].Rate != 3.0 || *winners[1].Rate != 1.0 || *winners[2].Rate != 2.0 || *winners[3].Rate != 4.0 {
		t.Fatalf("winners not ordered by business key: %v %v %v %v",
			*winners[0].Rate, *winners[1].Rate, *winners[2].Rate, *winners[3].Rate)
	}
}

func TestResolve_IncompleteKeyDropped(t *testing.T) {
	t.Parallel()

	broken := rec("2025-11-08", 2, 7, 1.0, nil, "a.csv")
	broken.ProductID = nil

	winners, dropped := Resolve([]rates.Record{broken})
	if len(winners) != 0 || dropped != 1 {
		t.Fatalf("winners = %d, dropped = %d, want 0, 1", len(winners), dropped)
	}
}
