// Package domain defines the load stage's types and collaborator ports
package domain

import "context"

// SinkPort is the search sink collaborator. BulkFile indexes one
// JSON-line shard file into the named index and returns the document
// count; SwapAlias atomically repoints the read alias at the index
type SinkPort interface {
	BulkFile(ctx context.Context, index, path string) (int64, error)
	SwapAlias(ctx context.Context, alias, index string) error
}

// LoadStats summarizes one load run
type LoadStats struct {
	Files     int64
	Documents int64
}

// RunnerPort drives the load stage
type RunnerPort interface {
	Run(ctx context.Context) (LoadStats, error)
}
