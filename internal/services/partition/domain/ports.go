package domain

import "context"

// RunnerPort is the public port exposed by the partition module
type RunnerPort interface {
	// Run partitions every discovered input file into shard files and
	// returns per-category routing stats. Any error means the stage
	// failed and its output must not be treated as complete
	Run(ctx context.Context) (map[Category]RouteStats, error)
}
