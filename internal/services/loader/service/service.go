// Package service implements the load stage: feed joined shard files to
// the search sink in shard order, then optionally swap the read alias
package service

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	perr "maudeflow/internal/platform/errors"
	"maudeflow/internal/platform/logger"
	"maudeflow/internal/services/loader/domain"
)

// Config holds the load stage configuration. Swap controls whether the
// alias is repointed after a fully successful load
type Config struct {
	InputDir string
	Index    string
	Alias    string
	Swap     bool
}

// Service implements domain.RunnerPort on top of a SinkPort
type Service struct {
	cfg  Config
	sink domain.SinkPort
}

// New constructs the load service
func New(cfg Config, sink domain.SinkPort) *Service {
	return &Service{cfg: cfg, sink: sink}
}

// Run indexes every joined shard file. The first sink failure aborts the
// stage; retry policy belongs to the scheduler, not here. The alias swap
// only happens after every file loaded cleanly
func (s *Service) Run(ctx context.Context) (domain.LoadStats, error) {
	var stats domain.LoadStats
	log := logger.C(ctx)

	files, err := discover(s.cfg.InputDir)
	if err != nil {
		return stats, err
	}
	if len(files) == 0 {
		return stats, perr.Sinkf("no joined shard files under %s", s.cfg.InputDir)
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		docs, err := s.sink.BulkFile(ctx, s.cfg.Index, path)
		if err != nil {
			return stats, perr.Wrapf(err, perr.ErrorCodeSink, "load %s", path)
		}
		stats.Files++
		stats.Documents += docs
		log.Info().Str("file", filepath.Base(path)).Int64("documents", docs).Msg("shard loaded")
	}

	if s.cfg.Swap {
		if err := s.sink.SwapAlias(ctx, s.cfg.Alias, s.cfg.Index); err != nil {
			return stats, perr.Wrapf(err, perr.ErrorCodeSink, "swap alias %s -> %s", s.cfg.Alias, s.cfg.Index)
		}
		log.Info().Str("alias", s.cfg.Alias).Str("index", s.cfg.Index).Msg("alias swapped")
	}
	return stats, nil
}

// discover lists the joined shard files in shard-number order
func discover(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.maude.json"))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSink, "list %s", dir)
	}
	sort.Slice(files, func(i, j int) bool {
		return shardOf(files[i]) < shardOf(files[j])
	})
	return files, nil
}

func shardOf(path string) int {
	base := filepath.Base(path)
	n, err := strconv.Atoi(strings.SplitN(base, ".", 2)[0])
	if err != nil {
		return -1
	}
	return n
}
