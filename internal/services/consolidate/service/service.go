// Package service provides the consolidation pipeline implementation
package service

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ratelake/internal/core/dedupe"
	"ratelake/internal/core/fingerprint"
	"ratelake/internal/core/rates"
	"ratelake/internal/core/validate"
	"ratelake/internal/modkit/repokit"
	"ratelake/internal/platform/config"
	perr "ratelake/internal/platform/errors"
	"ratelake/internal/platform/logger"
	"ratelake/internal/services/consolidate/domain"
	"ratelake/internal/services/consolidate/guardrails"
	silverdom "ratelake/internal/services/silver/domain"

	"github.com/google/uuid"
)

// Config holds tuning for the consolidation service
type Config struct {
	// GoldTable is the fact table written and registered
	GoldTable string

	// RegisterRetries bounds catalog registration attempts; <=0 -> 3
	RegisterRetries int

	// RetryBase is the base backoff for retried steps; <=0 -> 500ms
	RetryBase time.Duration

	// Workers is the parallelism for RunRange; <=0 -> 1
	Workers int

	// MaxRangeDays guards RunRange against runaway ranges; 0 = unlimited
	MaxRangeDays int

	// DryRun computes the full report but skips the gold append and
	// catalog registration
	DryRun bool
}

// Service implements domain.RunnerPort and domain.AdminPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.ControlRepo]
	Gold   domain.GoldPort
	Silver silverdom.ReaderPort
	Lease  guardrails.Lease
	Cfg    Config
}

// New constructs the consolidation service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.ControlRepo],
	gold domain.GoldPort,
	silver silverdom.ReaderPort,
	lease guardrails.Lease,
	cfg Config,
) *Service {
	if db == nil {
		panic("consolidate.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("consolidate.Service requires a non nil ControlRepo binder")
	}
	if gold == nil {
		panic("consolidate.Service requires a non nil GoldPort")
	}
	if silver == nil {
		panic("consolidate.Service requires a non nil silver reader")
	}
	return &Service{DB: db, Binder: binder, Gold: gold, Silver: silver, Lease: lease, Cfg: cfg}
}

// Bootstrap implements domain.AdminPort
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).EnsureSchema(ctx)
	}); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "control schema bootstrap failed")
	}
	if err := s.Gold.EnsureTable(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "gold table bootstrap failed")
	}
	return nil
}

// Run implements domain.RunnerPort. One processing date, one run ledger row,
// exactly one concurrent run per date
func (s *Service) Run(ctx context.Context, dt string) (domain.Report, error) {
	if _, err := time.Parse(config.DateLayout, dt); err != nil {
		return domain.Report{}, perr.InvalidArgf("processing date %q is not YYYY-MM-DD", dt)
	}

	runID := uuid.New()
	ctx = logger.WithRun(ctx, runID.String(), dt)
	rep := domain.Report{RunID: runID.String(), DT: dt}

	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).BeginRun(ctx, runID, dt)
	}); err != nil {
		return rep, perr.Wrap(err, perr.ErrorCodeDB, "run ledger open failed")
	}

	body := func(ctx context.Context) error { return s.run(ctx, runID, dt, &rep) }

	var err error
	if s.Lease != nil {
		err = s.Lease(ctx, dt, body)
	} else {
		err = body(ctx)
	}

	if errors.Is(err, guardrails.ErrLeaseHeld) {
		// never mark someone else's run failed; our ledger row just records
		// that we yielded
		err = perr.Wrap(err, perr.ErrorCodeConflict, "another run holds this date")
	}

	failed := domain.Stage("")
	if err != nil {
		failed = domain.Stage(perr.OpOf(err))
	}
	fctx := context.WithoutCancel(ctx)
	if ferr := s.DB.Tx(fctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).FinishRun(fctx, runID, rep, failed, err)
	}); ferr != nil {
		logger.C(ctx).Error().Err(ferr).Msg("consolidate: run ledger close failed")
	}

	if err != nil {
		return rep, err
	}

	logger.C(ctx).Info().
		Int("input", rep.Input).
		Int("accepted", rep.Accepted).
		Int("rejected", rep.Rejected).
		Int("deduped_away", rep.DedupedAway).
		Int("written", rep.Written).
		Int("skipped_existing", rep.SkippedExisting).
		Msg("consolidate: run complete")
	return rep, nil
}

// run executes the stage machine; every failure carries the stage it died in
func (s *Service) run(ctx context.Context, runID uuid.UUID, dt string, rep *domain.Report) error {
	// LOADED
	batch, sources, err := s.load(ctx, dt)
	if err != nil {
		return perr.WithOp(err, string(domain.StageLoaded))
	}
	rep.Sources = sources
	rep.Input = len(batch)
	if len(batch) == 0 {
		logger.C(ctx).Warn().Msg("consolidate: no silver partitions for date, nothing to do")
		return nil
	}

	// VALIDATED
	accepted, rejects := validate.Split(batch)
	rep.Accepted = len(accepted)
	rep.Rejected = len(rejects)
	rep.RejectedByReason = countByReason(rejects)
	if len(rejects) > 0 {
		if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
			return s.Binder.Bind(q).WriteRejects(ctx, runID, dt, rejects)
		}); err != nil {
			return perr.WithOp(
				perr.Wrap(err, perr.ErrorCodeDB, "reject audit write failed"),
				string(domain.StageValidated),
			)
		}
	}

	// DEDUPED
	winners, dropped := dedupe.Resolve(accepted)
	rep.DedupedAway = dropped

	// HASHED
	rows, err := toGoldRows(winners)
	if err != nil {
		return perr.WithOp(err, string(domain.StageHashed))
	}

	// WRITTEN
	written, err := s.write(ctx, rows, rep)
	if err != nil {
		return perr.WithOp(err, string(domain.StageWritten))
	}

	// REGISTERED
	if s.Cfg.DryRun {
		logger.C(ctx).Info().Msg("consolidate: dry run, skipping catalog registration")
		return nil
	}
	if err := s.register(ctx, runID, rep.Partitions); err != nil {
		// the data is in gold; the failure is tagged so the operator knows
		// only registration needs a replay
		logger.C(ctx).Error().Err(err).Int("written", written).
			Msg("consolidate: partitions written but registration failed")
		return perr.WithOp(err, string(domain.StageRegistered))
	}
	return nil
}

func (s *Service) load(ctx context.Context, dt string) ([]rates.Record, []string, error) {
	sources, err := s.Silver.ListSources(ctx, dt)
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(sources)

	var batch []rates.Record
	for _, src := range sources {
		sctx := logger.WithSource(ctx, src)
		recs, err := s.Silver.ReadPartition(sctx, src, dt)
		if err != nil {
			return nil, nil, err
		}
		logger.C(sctx).Debug().Int("rows", len(recs)).Msg("consolidate: silver partition loaded")
		batch = append(batch, recs...)
	}
	return batch, sources, nil
}

// toGoldRows resolves validated winners into fully-typed fact rows.
// the partition key is the row's business date
func toGoldRows(winners []rates.Record) ([]domain.GoldRow, error) {
	rows := make([]domain.GoldRow, 0, len(winners))
	for _, w := range winners {
		if w.Date == nil || w.EntityID == nil || w.ProductID == nil || w.Rate == nil {
			// the validator owns nullability; reaching here is a programming error
			return nil, perr.Internalf("unvalidated record reached the hash stage")
		}
		d := rates.Midnight(*w.Date)
		rows = append(rows, domain.GoldRow{
			Date:         d,
			EntityID:     *w.EntityID,
			ProductID:    *w.ProductID,
			Rate:         *w.Rate,
			IngestionTS:  w.IngestionTS,
			SourceFile:   w.SourceFile,
			BusinessHash: fingerprint.Business(d, *w.EntityID, *w.ProductID, w.Rate),
			DT:           d.Format(rates.DateLayout),
		})
	}
	return rows, nil
}

// write appends only the rows whose business key is not already in gold and
// fills the report's partition summary
func (s *Service) write(ctx context.Context, rows []domain.GoldRow, rep *domain.Report) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	// CREATE IF NOT EXISTS on every run, so a fresh store needs no separate
	// bootstrap before its first consolidation
	if err := s.Gold.EnsureTable(ctx); err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeDB, "gold table bootstrap failed")
	}

	parts := distinctPartitions(rows)
	existing, err := s.Gold.ExistingKeys(ctx, parts)
	if err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeDB, "gold existence check failed")
	}

	fresh := make([]domain.GoldRow, 0, len(rows))
	for _, r := range rows {
		if _, dup := existing[r.Key()]; dup {
			rep.SkippedExisting++
			continue
		}
		fresh = append(fresh, r)
	}

	perPart := make(map[string]int, len(parts))
	for _, r := range fresh {
		perPart[r.DT]++
	}
	for _, p := range parts {
		if n := perPart[p]; n > 0 {
			rep.Partitions = append(rep.Partitions, domain.PartitionWrite{DT: p, Rows: n})
		}
	}

	if len(fresh) == 0 {
		logger.C(ctx).Info().Int("skipped_existing", rep.SkippedExisting).
			Msg("consolidate: every business key already in gold")
		return 0, nil
	}

	if s.Cfg.DryRun {
		logger.C(ctx).Info().Int("would_write", len(fresh)).Msg("consolidate: dry run, skipping gold append")
		rep.Written = len(fresh)
		return len(fresh), nil
	}

	if err := s.Gold.Append(ctx, fresh); err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeDB, "gold append failed")
	}
	rep.Written = len(fresh)
	return len(fresh), nil
}

// register upserts the partition catalog, retried independently of the data
// write since the append has already landed
func (s *Service) register(ctx context.Context, runID uuid.UUID, parts []domain.PartitionWrite) error {
	if len(parts) == 0 {
		return nil
	}
	attempts := max(s.Cfg.RegisterRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var last error
	for i := range attempts {
		err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
			return s.Binder.Bind(q).RegisterPartitions(ctx, runID, s.Cfg.GoldTable, parts)
		})
		if err == nil {
			return nil
		}
		last = err
		if !perr.Retryable(err) {
			return last
		}
		if i == attempts-1 {
			break
		}
		d := min(base<<i, 30*time.Second)
		// floor keeps the jitter window non-empty for sub-millisecond bases
		half := max(d/2, time.Millisecond)
		j := half + time.Duration(rand.Int63n(int64(half)))
		if se := sleepCtx(ctx, j); se != nil {
			return se
		}
		logger.C(ctx).Warn().Err(err).Int("attempt", i+1).Msg("consolidate: registration retry")
	}
	return perr.Wrap(last, perr.ErrorCodeDB, "partition registration exhausted retries")
}

// RunRange implements domain.RunnerPort: one Run per calendar day in
// [start, end], fanned out over a small worker pool
func (s *Service) RunRange(ctx context.Context, start, end time.Time) error {
	start = rates.Midnight(start)
	end = rates.Midnight(end)
	if end.Before(start) {
		return perr.InvalidArgf("end before start")
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if s.Cfg.MaxRangeDays > 0 && days > s.Cfg.MaxRangeDays {
		return perr.InvalidArgf("range of %d days exceeds MaxRangeDays %d", days, s.Cfg.MaxRangeDays)
	}

	dates := make(chan string, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates <- d.Format(rates.DateLayout)
	}
	close(dates)

	w := max(s.Cfg.Workers, 1)
	var fails int64
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for dt := range dates {
			if ctx.Err() != nil {
				return
			}
			if _, err := s.Run(ctx, dt); err != nil {
				logger.C(ctx).Error().Str("dt", dt).Err(err).Msg("consolidate: date failed")
				atomic.AddInt64(&fails, 1)
			}
		}
	}

	for range w {
		wg.Add(1)
		go worker()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if fails > 0 {
		return perr.Internalf("%d of %d dates failed", fails, days)
	}
	return nil
}

func countByReason(rejects []rates.Reject) map[rates.RejectReason]int {
	if len(rejects) == 0 {
		return nil
	}
	out := make(map[rates.RejectReason]int)
	for _, rj := range rejects {
		out[rj.Reason]++
	}
	return out
}

func distinctPartitions(rows []domain.GoldRow) []string {
	seen := make(map[string]struct{}, 4)
	var out []string
	for _, r := range rows {
		if _, ok := seen[r.DT]; ok {
			continue
		}
		seen[r.DT] = struct{}{}
		out = append(out, r.DT)
	}
	sort.Strings(out)
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
