// Package repo implements the bronze artifact reader on a filesystem root.
//
// Layout mirrors the capture convention: <root>/<source>/<dt>/<capture>.csv,
// one or more raw CSV captures per source per date; the lexically newest
// capture wins, matching the scrapers' timestamped file names
package repo

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	perr "ratelake/internal/platform/errors"
	"ratelake/internal/services/normalize/domain"
)

// FS is the filesystem-backed bronze reader
type FS struct {
	Root string
}

// NewFS constructs the reader over the bronze root
func NewFS(root string) *FS { return &FS{Root: root} }

var _ domain.BronzePort = (*FS)(nil)

// Latest implements domain.BronzePort
func (f *FS) Latest(_ context.Context, source, dt string) (domain.Artifact, error) {
	dir := filepath.Join(f.Root, source, dt)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Artifact{}, perr.NotFoundf("no bronze captures for %s/%s", source, dt)
		}
		return domain.Artifact{}, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return domain.Artifact{}, perr.NotFoundf("no bronze captures for %s/%s", source, dt)
	}
	// capture names embed their scrape timestamp, so lexical order is
	// chronological order
	sort.Strings(names)

	return domain.Artifact{
		Source: source,
		DT:     dt,
		Path:   filepath.Join(dir, names[len(names)-1]),
	}, nil
}

// Read implements domain.BronzePort
func (f *FS) Read(ctx context.Context, art domain.Artifact) ([]domain.Row, error) {
	raw, err := os.ReadFile(art.Path)
	if err != nil {
		return nil, err
	}
	// scrapers write utf-8 with a BOM
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(raw))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSchemaDrift, "bronze %s: unreadable header", art.Path)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []domain.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeSchemaDrift, "bronze %s: malformed row", art.Path)
		}
		row := make(domain.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
