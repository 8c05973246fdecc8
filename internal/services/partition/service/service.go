// Package service implements the partition stage: routing every category
// input file into key-co-located shard files
package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	perr "maudeflow/internal/platform/errors"
	"maudeflow/internal/platform/logger"
	"maudeflow/internal/services/partition/domain"
)

// Config holds the partition stage configuration
type Config struct {
	Shards    int
	Delimiter byte
	InputDir  string // extracted category flat files live here
	OutputDir string // shard files are written here
	Ignores   []string
}

// Partitioner routes all discovered input files into N shard files per
// category. Categories are processed in parallel; files within a category
// are processed sequentially so each shard set has a single writer
type Partitioner struct {
	cfg Config
}

// New constructs a Partitioner
func New(cfg Config) *Partitioner {
	if cfg.Shards <= 0 {
		cfg.Shards = 32
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = '|'
	}
	return &Partitioner{cfg: cfg}
}

// Run implements domain.RunnerPort
func (p *Partitioner) Run(ctx context.Context) (map[domain.Category]domain.RouteStats, error) {
	log := logger.C(ctx)

	inputs, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSchemaIntegrity, "create output dir %s", p.cfg.OutputDir)
	}

	// Open all N x 4 shard files and write their headers before touching
	// any input, so the join stage can always assume a readable,
	// header-present file per shard per category
	sets := make(map[domain.Category]*shardSet, len(domain.Categories()))
	defer func() {
		for _, s := range sets {
			_ = s.Close()
		}
	}()
	for _, c := range domain.Categories() {
		s, err := openShardSet(p.cfg.OutputDir, c, p.cfg.Shards, p.cfg.Delimiter)
		if err != nil {
			return nil, err
		}
		sets[c] = s
	}

	// Fan categories out; handle sets are disjoint so no state is shared
	// across workers
	var mu sync.Mutex
	stats := make(map[domain.Category]domain.RouteStats, len(domain.Categories()))
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range domain.Categories() {
		c := c
		g.Go(func() error {
			var agg domain.RouteStats
			for _, path := range inputs[c] {
				log.Info().Str("file", path).Str("category", string(c)).Msg("partitioning input file")
				fs, err := routeFile(gctx, path, sets[c], p.cfg.Shards, p.cfg.Delimiter)
				agg.Add(fs)
				if err != nil {
					return perr.Wrapf(err, perr.ErrorCodeSchemaIntegrity, "partition %s", path)
				}
			}
			mu.Lock()
			stats[c] = agg
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Flush errors fail the stage; a shard file that silently lost rows is
	// worse than a failed run
	for _, c := range domain.Categories() {
		if err := sets[c].Close(); err != nil {
			return nil, err
		}
	}

	for _, c := range domain.Categories() {
		s := stats[c]
		log.Info().Str("category", string(c)).
			Int64("routed", s.Routed).
			Int64("skipped_headers", s.SkippedHeaders).
			Int64("skipped_bad_key", s.SkippedBadKey).
			Msg("category partitioned")
	}
	return stats, nil
}

// discover globs the input dir and attributes each file to exactly one
// category, dropping ignored and unrecognized files with a log line
func (p *Partitioner) discover(ctx context.Context) (map[domain.Category][]string, error) {
	log := logger.C(ctx)

	paths, err := filepath.Glob(filepath.Join(p.cfg.InputDir, "*.txt"))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "glob %s", p.cfg.InputDir)
	}
	sort.Strings(paths)

	inputs := make(map[domain.Category][]string)
	for _, path := range paths {
		base := filepath.Base(path)
		if domain.Ignored(base, p.cfg.Ignores) {
			log.Info().Str("file", path).Msg("skipping ignored file")
			continue
		}
		c, ok := domain.MatchCategory(base)
		if !ok {
			log.Warn().Str("file", path).Msg("file matches no category, skipping")
			continue
		}
		inputs[c] = append(inputs[c], path)
	}
	return inputs, nil
}
