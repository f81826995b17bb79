// Package repo provides the consolidate repositories: the ClickHouse gold
// store and the Postgres control plane
package repo

import (
	"context"
	"fmt"
	"strings"

	"ratelake/internal/core/rates"
	"ratelake/internal/modkit/repokit"
	"ratelake/internal/services/consolidate/domain"
)

// Gold is the ClickHouse-backed gold fact store
type Gold struct {
	CH    repokit.Clickhouse
	Table string
}

// NewGold binds the gold repo to a clickhouse seam
func NewGold(ch repokit.Clickhouse, table string) *Gold {
	if table == "" {
		table = "fact_rates"
	}
	return &Gold{CH: ch, Table: table}
}

var _ domain.GoldPort = (*Gold)(nil)

// EnsureTable implements domain.GoldPort.
// MergeTree partitioned by dt keeps each processing date a physically
// separate part set; history is never rewritten, only new parts appended
func (g *Gold) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			date          Date,
			entity_id     Int32,
			product_id    Int32,
			rate          Float64,
			ingestion_ts  Nullable(DateTime64(6, 'UTC')),
			source_file   String,
			business_hash FixedString(64),
			dt            String
		)
		ENGINE = MergeTree
		PARTITION BY dt
		ORDER BY (date, entity_id, product_id)
	`, g.Table)
	return g.CH.Exec(ctx, ddl)
}

// ExistingKeys implements domain.GoldPort
func (g *Gold) ExistingKeys(ctx context.Context, partitions []string) (map[rates.Key]struct{}, error) {
	out := make(map[rates.Key]struct{})
	if len(partitions) == 0 {
		return out, nil
	}

	var sb strings.Builder
	sb.WriteString("SELECT date, entity_id, product_id FROM ")
	sb.WriteString(g.Table)
	sb.WriteString(" WHERE dt IN (")
	for i, p := range partitions {
		if i > 0 {
			sb.WriteByte(',')
		}
		// partition keys are generated internally as YYYY-MM-DD
		sb.WriteString("'" + p + "'")
	}
	sb.WriteString(")")

	rs, err := g.CH.Query(ctx, sb.String())
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	for rs.Next() {
		var k rates.Key
		if err := rs.Scan(&k.Date, &k.EntityID, &k.ProductID); err != nil {
			return nil, err
		}
		k.Date = rates.Midnight(k.Date)
		out[k] = struct{}{}
	}
	return out, rs.Err()
}

// Append implements domain.GoldPort. All rows go out in one insert block so
// a failed send leaves no partial partition behind
func (g *Gold) Append(ctx context.Context, rows []domain.GoldRow) error {
	if len(rows) == 0 {
		return nil
	}
	insert := fmt.Sprintf(
		"INSERT INTO %s (date, entity_id, product_id, rate, ingestion_ts, source_file, business_hash, dt)",
		g.Table,
	)
	batch := make([][]any, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, []any{
			r.Date, r.EntityID, r.ProductID, r.Rate,
			r.IngestionTS, r.SourceFile, r.BusinessHash, r.DT,
		})
	}
	return g.CH.AppendBatch(ctx, insert, batch)
}
