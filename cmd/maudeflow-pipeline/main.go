// maudeflow-pipeline runs the MAUDE batch pipeline: acquire the release
// archives, extract them to UTF-8 text, partition the category files
// into co-located shards, and join each shard into JSON-line documents
package main

import (
	"context"
	"flag"
	"os"
	"strconv"

	"github.com/google/uuid"

	"maudeflow/internal/adapters/ingest/maude"
	"maudeflow/internal/core/version"
	"maudeflow/internal/modkit"
	"maudeflow/internal/modkit/module"
	"maudeflow/internal/platform/config"
	"maudeflow/internal/platform/logger"
	joinermod "maudeflow/internal/services/joiner/module"
	partitionmod "maudeflow/internal/services/partition/module"
	"maudeflow/internal/services/pipeline"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	var (
		fShards  = flag.Int("shards", 0, "shard count for partition and join (overrides env)")
		fWorkers = flag.Int("workers", 0, "join worker pool size (overrides env)")
		fOffline = flag.Bool("offline", false, "skip acquire and extract, reuse files already on disk")
		fForce   = flag.Bool("force", false, "clear completion markers and redo every stage")
	)
	flag.Parse()

	l := logger.Get()
	bi := version.Info("maudeflow-pipeline")
	l.Info().Str("version", bi.Version).Str("commit", bi.Commit).Msg("starting")

	if *fShards > 0 {
		mustSetEnv("MAUDE_PARTITION_SHARDS", strconv.Itoa(*fShards))
		mustSetEnv("MAUDE_JOIN_SHARDS", strconv.Itoa(*fShards))
	}
	if *fWorkers > 0 {
		mustSetEnv("MAUDE_JOIN_WORKERS", strconv.Itoa(*fWorkers))
	}

	root := config.New()
	ingestCfg := root.Prefix("MAUDE_INGEST_")
	pipeCfg := root.Prefix("MAUDE_PIPELINE_")

	rawDir := ingestCfg.MayString("RAW_DIR", "./data/maude/raw/events")
	extractedDir := ingestCfg.MayString("EXTRACT_DIR", "./data/maude/extracted/events")
	metaDir := pipeCfg.MayString("META_DIR", "./data/maude/meta")

	deps := modkit.Deps{Cfg: root, Log: *l}

	pm, err := partitionmod.New(deps)
	if err != nil {
		l.Panic().Err(err).Msg("partition module init failed")
	}
	jm, err := joinermod.New(deps)
	if err != nil {
		l.Panic().Err(err).Msg("joiner module init failed")
	}
	module.Register(pm.Name(), pm.Ports())
	module.Register(jm.Name(), jm.Ports())

	fetcher := maude.NewFetcher(maude.Options{
		PageURL: ingestCfg.MayString("PAGE_URL", ""),
		OutDir:  rawDir,
		Timeout: ingestCfg.MayDuration("TIMEOUT", 0),
	})
	extractor := maude.NewExtractor()

	partPorts := pm.Ports().(partitionmod.Ports)
	joinPorts := jm.Ports().(joinermod.Ports)

	stages := []pipeline.Stage{
		{Name: "acquire", Run: func(ctx context.Context) error {
			_, err := fetcher.Run(ctx)
			return err
		}},
		{Name: "extract", Requires: []string{"acquire"}, Run: func(ctx context.Context) error {
			_, err := extractor.ExtractDir(ctx, rawDir, extractedDir)
			return err
		}},
		{Name: "partition", Requires: []string{"extract"}, Run: func(ctx context.Context) error {
			_, err := partPorts.Runner.Run(ctx)
			return err
		}},
		{Name: "join", Requires: []string{"partition"}, Run: func(ctx context.Context) error {
			_, err := joinPorts.Runner.RunAll(ctx)
			return err
		}},
	}
	if *fOffline {
		stages = stages[2:]
		stages[0].Requires = nil
	}

	graph, err := pipeline.NewGraph(metaDir, stages...)
	if err != nil {
		l.Panic().Err(err).Msg("bad stage graph")
	}
	if *fForce {
		for _, s := range stages {
			if err := graph.Reset(s.Name); err != nil {
				l.Panic().Err(err).Str("stage", s.Name).Msg("marker reset failed")
			}
		}
	}

	ctx := logger.WithRun(context.Background(), uuid.NewString())
	if err := graph.Run(ctx); err != nil {
		l.Fatal().Err(err).Msg("pipeline failed")
	}
	logger.C(ctx).Info().Msg("pipeline complete")
}
