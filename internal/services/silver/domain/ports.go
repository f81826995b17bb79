package domain

import (
	"context"

	"ratelake/internal/core/rates"
)

// ReaderPort reads committed silver partitions for a processing date
type ReaderPort interface {
	// ListSources returns the sources that have a committed partition for dt
	ListSources(ctx context.Context, dt string) ([]string, error)

	// ReadPartition decodes one source's records for dt.
	// Lenient on nullable values (the validator owns those), fatal on
	// schema drift (a field of the wrong type)
	ReadPartition(ctx context.Context, source, dt string) ([]rates.Record, error)
}

// WriterPort stages a normalized batch as a silver partition
type WriterPort interface {
	// WritePartition replaces the partition for (source, dt) atomically and
	// returns its locator
	WritePartition(ctx context.Context, source, dt string, recs []rates.Record) (Partition, error)
}
