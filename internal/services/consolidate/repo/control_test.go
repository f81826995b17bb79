package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ratelake/internal/core/rates"
	perr "ratelake/internal/platform/errors"
	"ratelake/internal/platform/store"
	"ratelake/internal/services/consolidate/domain"

	"github.com/google/uuid"
)

type execCall struct {
	sql  string
	args []any
}

type fakeQueryer struct {
	execs   []execCall
	execErr error
}

func (f *fakeQueryer) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return nil, f.execErr
}

func (f *fakeQueryer) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakeQueryer) QueryRow(context.Context, string, ...any) store.Row        { return nil }

func TestEnsureSchema_CreatesEverythingAndSeeds(t *testing.T) {
	t.Parallel()

	q := &fakeQueryer{}
	repo := NewPG().Bind(q)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	joined := ""
	for _, c := range q.execs {
		joined += c.sql + "\n"
	}
	for _, want := range []string{
		"consolidation_runs",
		"consolidation_run_leases",
		"silver_rejects",
		"gold_partitions",
		"dim_entities",
		"dim_products",
		"(2, 'klar')",
		"(26, 1, 'CETES 28')",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("schema bootstrap missing %q", want)
		}
	}
}

func TestBeginAndFinishRun(t *testing.T) {
	t.Parallel()

	q := &fakeQueryer{}
	repo := NewPG().Bind(q)
	runID := uuid.New()

	if err := repo.BeginRun(context.Background(), runID, "2025-11-08"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if len(q.execs) != 1 || !strings.Contains(q.execs[0].sql, "INSERT INTO consolidation_runs") {
		t.Fatalf("BeginRun sql = %+v", q.execs)
	}

	rep := domain.Report{Input: 5, Accepted: 3, Rejected: 2, DedupedAway: 1, Written: 2}
	if err := repo.FinishRun(context.Background(), runID, rep, "", nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	last := q.execs[len(q.execs)-1]
	if last.args[1] != "succeeded" {
		t.Fatalf("success run persisted status %v", last.args[1])
	}
	if last.args[2] != (*string)(nil) || last.args[3] != (*string)(nil) {
		t.Fatalf("success run must carry nil stage and error, got %v / %v", last.args[2], last.args[3])
	}

	if err := repo.FinishRun(context.Background(), runID, rep, domain.StageWritten, errors.New("boom")); err != nil {
		t.Fatalf("FinishRun(failed): %v", err)
	}
	last = q.execs[len(q.execs)-1]
	if last.args[1] != "failed" {
		t.Fatalf("failed run persisted status %v", last.args[1])
	}
	if stage := last.args[2].(*string); stage == nil || *stage != "WRITTEN" {
		t.Fatalf("failed run stage = %v, want WRITTEN", last.args[2])
	}
}

func TestWriteRejects_MultiRowInsert(t *testing.T) {
	t.Parallel()

	q := &fakeQueryer{}
	repo := NewPG().Bind(q)

	day := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	rate := 250.0
	rejects := []rates.Reject{
		{Record: rates.Record{Date: &day, Rate: &rate, SourceFile: "a.csv"}, Reason: rates.RejectRateOutOfRange},
		{Record: rates.Record{SourceFile: "b.csv"}, Reason: rates.RejectNullDate},
	}
	if err := repo.WriteRejects(context.Background(), uuid.New(), "2025-11-08", rejects); err != nil {
		t.Fatalf("WriteRejects: %v", err)
	}
	if len(q.execs) != 1 {
		t.Fatalf("execs = %d, want one multi-row insert", len(q.execs))
	}
	call := q.execs[0]
	if !strings.Contains(call.sql, "($1,$2,$3,$4,$5,$6,$7,$8,$9),($10,$11,$12,$13,$14,$15,$16,$17,$18)") {
		t.Fatalf("placeholders wrong:\n%s", call.sql)
	}
	if len(call.args) != 18 {
		t.Fatalf("args = %d, want 18", len(call.args))
	}
	if call.args[2] != string(rates.RejectRateOutOfRange) || call.args[11] != string(rates.RejectNullDate) {
		t.Fatalf("reasons not positional: %v / %v", call.args[2], call.args[11])
	}

	// empty reject list never touches the database
	q.execs = nil
	if err := repo.WriteRejects(context.Background(), uuid.New(), "2025-11-08", nil); err != nil {
		t.Fatalf("WriteRejects(nil): %v", err)
	}
	if len(q.execs) != 0 {
		t.Fatalf("empty rejects must be a no-op")
	}
}

func TestRegisterPartitions_Upserts(t *testing.T) {
	t.Parallel()

	q := &fakeQueryer{}
	repo := NewPG().Bind(q)

	parts := []domain.PartitionWrite{{DT: "2025-11-07", Rows: 3}, {DT: "2025-11-08", Rows: 5}}
	if err := repo.RegisterPartitions(context.Background(), uuid.New(), "fact_rates", parts); err != nil {
		t.Fatalf("RegisterPartitions: %v", err)
	}
	if len(q.execs) != 2 {
		t.Fatalf("execs = %d, want one upsert per partition", len(q.execs))
	}
	for i, c := range q.execs {
		if !strings.Contains(c.sql, "ON CONFLICT (table_name, dt) DO UPDATE") {
			t.Fatalf("not an upsert:\n%s", c.sql)
		}
		if c.args[0] != "fact_rates" || c.args[1] != parts[i].DT || c.args[2] != parts[i].Rows {
			t.Fatalf("args[%d] = %v", i, c.args)
		}
	}
}

func TestControlRepo_WrapsPostgresErrors(t *testing.T) {
	t.Parallel()

	q := &fakeQueryer{execErr: errors.New("connection refused")}
	repo := NewPG().Bind(q)

	err := repo.BeginRun(context.Background(), uuid.New(), "2025-11-08")
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("err = %v, want DB code", err)
	}
}
