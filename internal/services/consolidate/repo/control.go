package repo

import (
	"context"
	"fmt"
	"strings"

	"ratelake/internal/core/rates"
	"ratelake/internal/modkit/repokit"
	perr "ratelake/internal/platform/errors"
	"ratelake/internal/services/consolidate/domain"

	"github.com/google/uuid"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new control repo binder for Postgres
func NewPG() repokit.Binder[domain.ControlRepo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.ControlRepo { return &pg{q: q} }

// EnsureSchema implements domain.ControlRepo
func (s *pg) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS consolidation_runs (
			run_id        uuid PRIMARY KEY,
			dt            date NOT NULL,
			status        text NOT NULL,
			failed_stage  text,
			input_rows    integer NOT NULL DEFAULT 0,
			accepted_rows integer NOT NULL DEFAULT 0,
			rejected_rows integer NOT NULL DEFAULT 0,
			deduped_rows  integer NOT NULL DEFAULT 0,
			written_rows  integer NOT NULL DEFAULT 0,
			skipped_rows  integer NOT NULL DEFAULT 0,
			error         text,
			started_at    timestamptz NOT NULL DEFAULT now(),
			finished_at   timestamptz
		)`,
		`CREATE TABLE IF NOT EXISTS consolidation_run_leases (
			dt         date PRIMARY KEY,
			owner      text NOT NULL,
			claimed_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS silver_rejects (
			id           bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			run_id       uuid NOT NULL,
			dt           date NOT NULL,
			reason       text NOT NULL,
			date         date,
			entity_id    integer,
			product_id   integer,
			rate         double precision,
			ingestion_ts timestamptz,
			source_file  text,
			created_at   timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS gold_partitions (
			table_name    text NOT NULL,
			dt            text NOT NULL,
			row_count     bigint NOT NULL DEFAULT 0,
			last_run_id   uuid,
			registered_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (table_name, dt)
		)`,
		`CREATE TABLE IF NOT EXISTS dim_entities (
			entity_id integer PRIMARY KEY,
			name      text NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dim_products (
			product_id integer PRIMARY KEY,
			entity_id  integer NOT NULL REFERENCES dim_entities(entity_id),
			name       text NOT NULL
		)`,
	}
	for _, ddl := range stmts {
		if _, err := s.q.Exec(ctx, ddl); err != nil {
			return perr.FromPostgres(err, "control schema bootstrap failed")
		}
	}
	return seedDims(ctx, s.q)
}

// BeginRun implements domain.ControlRepo
func (s *pg) BeginRun(ctx context.Context, runID uuid.UUID, dt string) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO consolidation_runs (run_id, dt, status)
		VALUES ($1, $2, 'running')
	`, runID, dt)
	return perr.FromPostgres(err, "begin run")
}

// FinishRun implements domain.ControlRepo
func (s *pg) FinishRun(
	ctx context.Context,
	runID uuid.UUID,
	rep domain.Report,
	failedStage domain.Stage,
	runErr error,
) error {
	status := "succeeded"
	var stage, errText *string
	if runErr != nil {
		status = "failed"
		st := string(failedStage)
		et := runErr.Error()
		stage, errText = &st, &et
	}
	_, err := s.q.Exec(ctx, `
		UPDATE consolidation_runs
		   SET status = $2, failed_stage = $3, error = $4,
		       input_rows = $5, accepted_rows = $6, rejected_rows = $7,
		       deduped_rows = $8, written_rows = $9, skipped_rows = $10,
		       finished_at = now()
		 WHERE run_id = $1
	`, runID, status, stage, errText,
		rep.Input, rep.Accepted, rep.Rejected, rep.DedupedAway, rep.Written, rep.SkippedExisting)
	return perr.FromPostgres(err, "finish run")
}

// WriteRejects implements domain.ControlRepo
func (s *pg) WriteRejects(ctx context.Context, runID uuid.UUID, dt string, rejects []rates.Reject) error {
	if len(rejects) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO silver_rejects
		(run_id, dt, reason, date, entity_id, product_id, rate, ingestion_ts, source_file) VALUES `)

	args := make([]any, 0, len(rejects)*9)
	for i, rj := range rejects {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*9 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)

		r := rj.Record
		args = append(args,
			runID, dt, string(rj.Reason),
			r.Date, r.EntityID, r.ProductID, r.Rate, r.IngestionTS, r.SourceFile,
		)
	}
	_, err := s.q.Exec(ctx, sb.String(), args...)
	return perr.FromPostgres(err, "write rejects")
}

// RegisterPartitions implements domain.ControlRepo
func (s *pg) RegisterPartitions(
	ctx context.Context,
	runID uuid.UUID,
	table string,
	parts []domain.PartitionWrite,
) error {
	for _, p := range parts {
		_, err := s.q.Exec(ctx, `
			INSERT INTO gold_partitions (table_name, dt, row_count, last_run_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (table_name, dt) DO UPDATE
			   SET row_count = gold_partitions.row_count + EXCLUDED.row_count,
			       last_run_id = EXCLUDED.last_run_id,
			       registered_at = now()
		`, table, p.DT, p.Rows, runID)
		if err != nil {
			return perr.FromPostgresf(err, "register partition %s", p.DT)
		}
	}
	return nil
}

// dimension seeds for the institutions and product series currently mapped
// by the normalizers
func seedDims(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, `
		INSERT INTO dim_entities (entity_id, name) VALUES
			(1, 'banxico'),
			(2, 'klar'),
			(4, 'stori')
		ON CONFLICT (entity_id) DO NOTHING
	`)
	if err != nil {
		return perr.FromPostgres(err, "seed entities")
	}
	_, err = q.Exec(ctx, `
		INSERT INTO dim_products (product_id, entity_id, name) VALUES
			(1,  2, 'Cuenta'),
			(2,  2, 'Cuenta Platino Plus'),
			(3,  2, 'Inversion Flexible'),
			(4,  2, 'Inversion Flexible Platino'),
			(5,  2, 'Plazo 7 dias'),
			(6,  2, 'Plazo 7 dias Platino'),
			(7,  2, 'Plazo 30 dias'),
			(8,  2, 'Plazo 30 dias Platino'),
			(9,  2, 'Plazo 90 dias'),
			(10, 2, 'Plazo 90 dias Platino'),
			(11, 2, 'Plazo 180 dias'),
			(12, 2, 'Plazo 180 dias Platino'),
			(13, 2, 'Plazo 365 dias'),
			(14, 2, 'Plazo 365 dias Platino'),
			(21, 4, 'Sin plazo'),
			(22, 4, 'Plazo 30 dias'),
			(23, 4, 'Plazo 90 dias'),
			(24, 4, 'Plazo 180 dias'),
			(25, 4, 'Plazo 360 dias'),
			(26, 1, 'CETES 28'),
			(27, 1, 'CETES 91'),
			(28, 1, 'CETES 182'),
			(29, 1, 'CETES 364')
		ON CONFLICT (product_id) DO NOTHING
	`)
	return perr.FromPostgres(err, "seed products")
}
