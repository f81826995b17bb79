// Package service provides the normalize service implementation: bronze
// captures in, silver staging partitions out
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"ratelake/internal/core/rates"
	"ratelake/internal/platform/config"
	perr "ratelake/internal/platform/errors"
	"ratelake/internal/platform/logger"
	"ratelake/internal/services/normalize/domain"
	silverdom "ratelake/internal/services/silver/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Service implements domain.RunnerPort
type Service struct {
	Bronze domain.BronzePort
	Silver silverdom.WriterPort

	specs map[string]domain.SourceSpec
}

// New constructs the normalize service. Specs are compiled in, so a spec
// that fails validation is a programming error surfaced at wiring time
func New(bronze domain.BronzePort, silver silverdom.WriterPort, specs []domain.SourceSpec) (*Service, error) {
	if bronze == nil {
		panic("normalize.Service requires a non nil BronzePort")
	}
	if silver == nil {
		panic("normalize.Service requires a non nil silver writer")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	byName := make(map[string]domain.SourceSpec, len(specs))
	for _, sp := range specs {
		if err := v.Struct(sp); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "source spec %q invalid", sp.Name)
		}
		if (sp.Products == nil) == (sp.Series == nil) {
			return nil, perr.Newf(perr.ErrorCodeValidation,
				"source spec %q must declare exactly one of Products or Series", sp.Name)
		}
		if _, dup := byName[sp.Name]; dup {
			return nil, perr.DuplicateKeyf("source spec %q declared twice", sp.Name)
		}
		byName[sp.Name] = sp
	}
	return &Service{Bronze: bronze, Silver: silver, specs: byName}, nil
}

// Sources implements domain.RunnerPort
func (s *Service) Sources() []string {
	out := make([]string, 0, len(s.specs))
	for name := range s.specs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run implements domain.RunnerPort
func (s *Service) Run(ctx context.Context, source, dt string) (domain.Report, error) {
	spec, ok := s.specs[source]
	if !ok {
		return domain.Report{}, perr.NotFoundf("no source spec named %q", source)
	}
	if _, err := time.Parse(config.DateLayout, dt); err != nil {
		return domain.Report{}, perr.InvalidArgf("processing date %q is not YYYY-MM-DD", dt)
	}
	ctx = logger.WithSource(ctx, source)

	art, err := s.Bronze.Latest(ctx, source, dt)
	if err != nil {
		return domain.Report{}, err
	}
	rows, err := s.Bronze.Read(ctx, art)
	if err != nil {
		return domain.Report{}, err
	}

	now := time.Now().UTC()
	recs := make([]rates.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, mapRow(spec, art, now, row))
	}

	part, err := s.Silver.WritePartition(ctx, source, dt, recs)
	if err != nil {
		return domain.Report{}, err
	}

	logger.C(ctx).Info().
		Str("artifact", art.Path).
		Int("input", len(rows)).
		Int("rows", part.Rows).
		Str("path", part.Path).
		Msg("normalize: partition staged")

	return domain.Report{Source: source, DT: dt, Input: len(rows), Rows: part.Rows, Path: part.Path}, nil
}

// mapRow shapes one bronze row into the silver record. Missing or
// unparseable values become nil fields; the consolidation validator owns
// rejection, the normalizer never drops rows
func mapRow(spec domain.SourceSpec, art domain.Artifact, now time.Time, row domain.Row) rates.Record {
	rec := rates.Record{
		EntityID:    &spec.EntityID,
		Rate:        parseRate(row[spec.RateColumn]),
		IngestionTS: &now,
		SourceFile:  art.Path,
	}

	if d, err := time.Parse(spec.DateLayout, strings.TrimSpace(row[spec.DateColumn])); err == nil {
		day := rates.Midnight(d)
		rec.Date = &day
	}

	switch {
	case spec.Products != nil:
		pid := spec.Products.Lookup(row[spec.ProductColumn])
		rec.ProductID = &pid
	case spec.Series != nil:
		if pid, ok := spec.Series[strings.TrimSpace(row[spec.SeriesColumn])]; ok {
			rec.ProductID = &pid
		}
	}
	return rec
}

// parseRate scans an annual rate cell. Scrapers emit plain decimals or
// percent-suffixed strings; decimal keeps "4.50" exact before the float
// conversion instead of round-tripping through fmt
func parseRate(cell string) *float64 {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, "%", ""))
	if cell == "" {
		return nil
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}
