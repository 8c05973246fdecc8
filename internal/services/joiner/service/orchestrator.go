package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	perr "maudeflow/internal/platform/errors"
	"maudeflow/internal/platform/logger"
	"maudeflow/internal/services/joiner/domain"
)

// Config holds the join stage configuration. Workers bounds the pool
// independently of the shard count
type Config struct {
	Shards       int
	Workers      int
	PartitionDir string
	OutputDir    string
	Delimiter    byte
}

// Orchestrator fans the shards out across a bounded worker pool. Each
// task's inputs and output are plain file paths; no state is shared
// between shard jobs
type Orchestrator struct {
	cfg Config
}

// New constructs an Orchestrator
func New(cfg Config) *Orchestrator {
	if cfg.Shards <= 0 {
		cfg.Shards = 32
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 6
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = '|'
	}
	return &Orchestrator{cfg: cfg}
}

// OutputFile is the canonical joined output name for a shard, e.g. "5.maude.json"
func OutputFile(dir string, shard int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.maude.json", shard))
}

// RunAll implements domain.RunnerPort. A failing shard does not stop its
// siblings; all failures are aggregated and returned only after every
// worker has finished, so the stage outcome is all-or-nothing
func (o *Orchestrator) RunAll(ctx context.Context) (domain.JoinStats, error) {
	var total domain.JoinStats
	if err := os.MkdirAll(o.cfg.OutputDir, 0o755); err != nil {
		return total, perr.Wrapf(err, perr.ErrorCodeJoinWorker, "create output dir %s", o.cfg.OutputDir)
	}

	var (
		mu   sync.Mutex
		merr *multierror.Error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for shard := 0; shard < o.cfg.Shards; shard++ {
		shard := shard
		g.Go(func() error {
			sctx := logger.WithShard(gctx, shard)
			stats, err := o.runShard(sctx, shard)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.C(sctx).Error().Err(err).Msg("shard join failed")
				merr = multierror.Append(merr, perr.Wrapf(err, perr.ErrorCodeJoinWorker, "shard %d", shard))
				// collected, not returned: siblings keep running
				return nil
			}
			total.Add(stats)
			logger.C(sctx).Info().
				Int64("documents", stats.Documents).
				Int64("dependents", stats.DependentsAttached).
				Int64("skipped_rows", stats.SkippedRows).
				Msg("shard joined")
			return nil
		})
	}
	_ = g.Wait()

	return total, merr.ErrorOrNil()
}

// runShard joins a single shard, converting panics into errors so one
// bad shard cannot take down the pool
func (o *Orchestrator) runShard(ctx context.Context, shard int) (stats domain.JoinStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = perr.PanicErrf("join worker panic: %v", r)
		}
	}()
	files := domain.ShardFilesFor(o.cfg.PartitionDir, shard)
	return joinShard(ctx, files, OutputFile(o.cfg.OutputDir, shard), o.cfg.Delimiter)
}
