// maudeflow-load feeds joined shard files into the search sink and,
// when asked, swaps the read alias onto the freshly loaded index
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/uuid"

	"maudeflow/internal/core/version"
	"maudeflow/internal/modkit"
	"maudeflow/internal/modkit/module"
	"maudeflow/internal/platform/config"
	"maudeflow/internal/platform/logger"
	loadermod "maudeflow/internal/services/loader/module"
	"maudeflow/internal/services/pipeline"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	var (
		fIndex = flag.String("index", "", "target index name (overrides env)")
		fAlias = flag.String("alias", "", "read alias to swap after load (overrides env)")
		fSwap  = flag.Bool("swap", false, "swap the alias once every shard loaded cleanly")
		fForce = flag.Bool("force", false, "clear the load marker and reload")
	)
	flag.Parse()

	l := logger.Get()
	bi := version.Info("maudeflow-load")
	l.Info().Str("version", bi.Version).Str("commit", bi.Commit).Msg("starting")

	mustSetEnv("MAUDE_SINK_INDEX", *fIndex)
	mustSetEnv("MAUDE_SINK_ALIAS", *fAlias)
	if *fSwap {
		mustSetEnv("MAUDE_SINK_SWAP", "true")
	}

	root := config.New()
	metaDir := root.Prefix("MAUDE_PIPELINE_").MayString("META_DIR", "./data/maude/meta")

	lm, err := loadermod.New(modkit.Deps{Cfg: root, Log: *l})
	if err != nil {
		l.Panic().Err(err).Msg("loader module init failed")
	}
	module.Register(lm.Name(), lm.Ports())
	ports := lm.Ports().(loadermod.Ports)

	graph, err := pipeline.NewGraph(metaDir, pipeline.Stage{
		Name: "load",
		Run: func(ctx context.Context) error {
			stats, err := ports.Runner.Run(ctx)
			if err != nil {
				return err
			}
			logger.C(ctx).Info().
				Int64("files", stats.Files).
				Int64("documents", stats.Documents).
				Msg("load complete")
			return nil
		},
	})
	if err != nil {
		l.Panic().Err(err).Msg("bad stage graph")
	}
	if *fForce {
		if err := graph.Reset("load"); err != nil {
			l.Panic().Err(err).Msg("marker reset failed")
		}
	}

	ctx := logger.WithRun(context.Background(), uuid.NewString())
	if err := graph.Run(ctx); err != nil {
		l.Fatal().Err(err).Msg("load failed")
	}
}
