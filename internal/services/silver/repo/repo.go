// Package repo implements the silver partition store on a filesystem root.
//
// Layout mirrors the lake convention: <root>/<source>/<dt>/fact_rates_staging.jsonl.gz,
// one gzip NDJSON artifact per source per processing date
package repo

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ratelake/internal/core/rates"
	perr "ratelake/internal/platform/errors"
	"ratelake/internal/services/silver/domain"
)

// FS is the filesystem-backed silver store
type FS struct {
	Root string
}

// NewFS constructs the store; root must already exist for reads, writes
// create source/dt directories on demand
func NewFS(root string) *FS { return &FS{Root: root} }

var (
	_ domain.ReaderPort = (*FS)(nil)
	_ domain.WriterPort = (*FS)(nil)
)

// recordJSON is the lenient wire shape. Dates and timestamps travel as
// strings so an unparseable value degrades to a nil field (the validator
// tags it) instead of failing the whole partition; a wrong TYPE on any
// field still fails the decode, which callers treat as schema drift
type recordJSON struct {
	Date        *string  `json:"date"`
	EntityID    *int32   `json:"entity_id"`
	ProductID   *int32   `json:"product_id"`
	Rate        *float64 `json:"rate"`
	IngestionTS *string  `json:"ingestion_ts"`
	SourceFile  string   `json:"source_file"`
}

// ingestion timestamps are written as RFC3339Nano; the second layout covers
// artifacts staged by older jobs that emitted naive ISO timestamps
var ingestionLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"}

func (f *FS) partitionPath(source, dt string) string {
	return filepath.Join(f.Root, source, dt, domain.StagingFile)
}

// ListSources implements domain.ReaderPort
func (f *FS) ListSources(_ context.Context, dt string) ([]string, error) {
	entries, err := os.ReadDir(f.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perr.NotFoundf("silver root %q does not exist", f.Root)
		}
		return nil, err
	}
	var sources []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(f.partitionPath(e.Name(), dt)); err == nil {
			sources = append(sources, e.Name())
		}
	}
	sort.Strings(sources)
	return sources, nil
}

// ReadPartition implements domain.ReaderPort
func (f *FS) ReadPartition(ctx context.Context, source, dt string) ([]rates.Record, error) {
	path := f.partitionPath(source, dt)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perr.NotFoundf("no silver partition for %s/%s", source, dt)
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSchemaDrift, "silver %s/%s: not a gzip artifact", source, dt)
	}
	defer func() { _ = gz.Close() }()

	var out []rates.Record
	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rj recordJSON
		if err := json.Unmarshal(raw, &rj); err != nil {
			// wrong field types from a misbehaving normalizer are fatal for
			// the run; coercing here would poison the gold table
			return nil, perr.Wrapf(err, perr.ErrorCodeSchemaDrift,
				"silver %s/%s line %d: schema drift", source, dt, line)
		}
		out = append(out, fromWire(rj))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WritePartition implements domain.WriterPort. The artifact is staged to a
// temp file and renamed into place so readers never observe a partial
// partition; temp cleanup never alters the write's outcome
func (f *FS) WritePartition(_ context.Context, source, dt string, recs []rates.Record) (domain.Partition, error) {
	dir := filepath.Join(f.Root, source, dt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Partition{}, err
	}

	tmp, err := os.CreateTemp(dir, domain.StagingFile+".tmp-*")
	if err != nil {
		return domain.Partition{}, err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if err := encodeAll(tmp, recs); err != nil {
		_ = tmp.Close()
		return domain.Partition{}, err
	}
	if err := tmp.Close(); err != nil {
		return domain.Partition{}, err
	}

	path := f.partitionPath(source, dt)
	if err := os.Rename(tmpName, path); err != nil {
		return domain.Partition{}, err
	}
	return domain.Partition{Source: source, DT: dt, Path: path, Rows: len(recs)}, nil
}

func encodeAll(w io.Writer, recs []rates.Record) error {
	gz := gzip.NewWriter(w)
	enc := json.NewEncoder(gz)
	for _, r := range recs {
		if err := enc.Encode(toWire(r)); err != nil {
			_ = gz.Close()
			return err
		}
	}
	return gz.Close()
}

func fromWire(rj recordJSON) rates.Record {
	rec := rates.Record{
		EntityID:   rj.EntityID,
		ProductID:  rj.ProductID,
		Rate:       rj.Rate,
		SourceFile: rj.SourceFile,
	}
	if rj.Date != nil {
		if d, err := time.Parse(rates.DateLayout, *rj.Date); err == nil {
			d = d.UTC()
			rec.Date = &d
		}
		// unparseable date stays nil and rejects as NULL_date downstream
	}
	if rj.IngestionTS != nil {
		for _, layout := range ingestionLayouts {
			if ts, err := time.Parse(layout, *rj.IngestionTS); err == nil {
				ts = ts.UTC()
				rec.IngestionTS = &ts
				break
			}
		}
	}
	return rec
}

func toWire(r rates.Record) recordJSON {
	rj := recordJSON{
		EntityID:   r.EntityID,
		ProductID:  r.ProductID,
		Rate:       r.Rate,
		SourceFile: r.SourceFile,
	}
	if r.Date != nil {
		s := r.Date.UTC().Format(rates.DateLayout)
		rj.Date = &s
	}
	if r.IngestionTS != nil {
		s := r.IngestionTS.UTC().Format(time.RFC3339Nano)
		rj.IngestionTS = &s
	}
	return rj
}
