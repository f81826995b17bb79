package service

import (
	"context"
	"testing"
	"time"

	"ratelake/internal/platform/testkit"
	"ratelake/internal/services/normalize/domain"
	"ratelake/internal/services/normalize/sources"
	silverrepo "ratelake/internal/services/silver/repo"

	perr "ratelake/internal/platform/errors"
)

type fakeBronze struct {
	art  domain.Artifact
	rows []domain.Row
	err  error
}

func (f *fakeBronze) Latest(context.Context, string, string) (domain.Artifact, error) {
	if f.err != nil {
		return domain.Artifact{}, f.err
	}
	return f.art, nil
}

func (f *fakeBronze) Read(context.Context, domain.Artifact) ([]domain.Row, error) {
	return f.rows, nil
}

func newService(t *testing.T, bronze domain.BronzePort) (*Service, *silverrepo.FS) {
	t.Helper()
	silver := silverrepo.NewFS(t.TempDir())
	svc, err := New(bronze, silver, sources.All())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, silver
}

func TestRun_KlarCapture(t *testing.T) {
	t.Parallel()

	bronze := &fakeBronze{
		art: domain.Artifact{Source: "klar", DT: "2025-11-08", Path: "bronze/klar/2025-11-08/k.csv"},
		rows: []domain.Row{
			{"producto": "Plazo 90 días Platino", "tasa_anual_fija": "9.25%", "fetched_at": "2025-11-08T02:10:16.148308"},
			{"producto": "Cuenta Klar", "tasa_anual_fija": "4.50", "fetched_at": "2025-11-08T02:10:16.148308"},
			{"producto": "Plazo 30 días", "tasa_anual_fija": "", "fetched_at": "not-a-timestamp"},
		},
	}
	svc, silver := newService(t, bronze)

	rep, err := svc.Run(context.Background(), "klar", "2025-11-08")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Input != 3 || rep.Rows != 3 {
		t.Fatalf("report = %+v, want 3 in, 3 staged (normalizer never drops rows)", rep)
	}

	recs, err := silver.ReadPartition(context.Background(), "klar", "2025-11-08")
	if err != nil {
		t.Fatalf("ReadPartition: %v", err)
	}

	if *recs[0].EntityID != 2 || *recs[0].ProductID != 10 {
		t.Fatalf("row 0 mapped to entity %d product %d, want 2/10", *recs[0].EntityID, *recs[0].ProductID)
	}
	if *recs[0].Rate != 9.25 {
		t.Fatalf("percent suffix not stripped: rate = %v", *recs[0].Rate)
	}
	wantDate := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	if recs[0].Date == nil || !recs[0].Date.Equal(wantDate) {
		t.Fatalf("business date = %v, want %v (date part of fetched_at)", recs[0].Date, wantDate)
	}
	if recs[0].SourceFile != bronze.art.Path {
		t.Fatalf("source_file = %q, want the artifact path", recs[0].SourceFile)
	}
	if recs[0].IngestionTS == nil {
		t.Fatalf("ingestion_ts must be stamped at normalization time")
	}

	if *recs[1].ProductID != 1 || *recs[1].Rate != 4.5 {
		t.Fatalf("row 1 mapped to product %d rate %v, want 1/4.5", *recs[1].ProductID, *recs[1].Rate)
	}

	// empty rate and unparseable date degrade to nils for the validator
	if recs[2].Rate != nil || recs[2].Date != nil {
		t.Fatalf("row 2 should carry nil rate and date, got %+v", recs[2])
	}
	if *recs[2].ProductID != 7 {
		t.Fatalf("row 2 product = %d, want 7", *recs[2].ProductID)
	}
}

func TestRun_BanxicoSeries(t *testing.T) {
	t.Parallel()

	bronze := &fakeBronze{
		art: domain.Artifact{Source: "banxico", DT: "2025-11-08", Path: "bronze/banxico/2025-11-08/b.csv"},
		rows: []domain.Row{
			{"serie_id": "SF60633", "fecha": "07/11/2025", "tasa": "7.80"},
			{"serie_id": "SF99999", "fecha": "07/11/2025", "tasa": "7.80"},
		},
	}
	svc, silver := newService(t, bronze)

	if _, err := svc.Run(context.Background(), "banxico", "2025-11-08"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	recs, err := silver.ReadPartition(context.Background(), "banxico", "2025-11-08")
	if err != nil {
		t.Fatalf("ReadPartition: %v", err)
	}

	if *recs[0].EntityID != 1 || *recs[0].ProductID != 26 {
		t.Fatalf("series row mapped to entity %d product %d, want 1/26", *recs[0].EntityID, *recs[0].ProductID)
	}
	wantDate := time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)
	if recs[0].Date == nil || !recs[0].Date.Equal(wantDate) {
		t.Fatalf("day-first date = %v, want %v", recs[0].Date, wantDate)
	}
	if recs[1].ProductID != nil {
		t.Fatalf("unknown series must stage a nil product id, got %d", *recs[1].ProductID)
	}
}

func TestRun_UnknownSourceAndBadDate(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &fakeBronze{})

	if _, err := svc.Run(context.Background(), "nubank", "2025-11-08"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("unknown source err = %v, want not found", err)
	}
	if _, err := svc.Run(context.Background(), "klar", "08-11-2025"); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("bad date err = %v, want invalid argument", err)
	}
}

func TestNew_RejectsBrokenSpecs(t *testing.T) {
	t.Parallel()

	silver := silverrepo.NewFS(t.TempDir())

	// neither Products nor Series
	_, err := New(&fakeBronze{}, silver, []domain.SourceSpec{{
		Name: "broken", EntityID: 9, RateColumn: "tasa", DateColumn: "fecha", DateLayout: "02/01/2006",
	}})
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	// missing rate column fails the struct tags
	spec := sourcesKlarWithoutRate()
	_, err = New(&fakeBronze{}, silver, []domain.SourceSpec{spec})
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	// duplicate names
	_, err = New(&fakeBronze{}, silver, []domain.SourceSpec{sources.Klar(), sources.Klar()})
	if !perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
		t.Fatalf("err = %v, want duplicate key", err)
	}

	testkit.MustPanic(t, func() { _, _ = New(nil, silver, nil) })
}

func sourcesKlarWithoutRate() domain.SourceSpec {
	sp := sources.Klar()
	sp.RateColumn = ""
	return sp
}

func TestSources_SortedNames(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &fakeBronze{})
	got := svc.Sources()
	want := []string{"banxico", "klar", "stori"}
	if len(got) != len(want) {
		t.Fatalf("Sources = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sources = %v, want %v", got, want)
		}
	}
}
