package domain

import "context"

// RunnerPort is the external port for the normalize service
type RunnerPort interface {
	// Run normalizes the latest bronze capture of one source for dt and
	// stages the result as a silver partition
	Run(ctx context.Context, source, dt string) (Report, error)

	// Sources lists the registered source names
	Sources() []string
}

// BronzePort reads raw captured artifacts
type BronzePort interface {
	// Latest returns the newest artifact for (source, dt)
	Latest(ctx context.Context, source, dt string) (Artifact, error)

	// Read decodes an artifact's CSV rows keyed by header
	Read(ctx context.Context, art Artifact) ([]Row, error)
}
