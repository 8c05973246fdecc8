// Package pipeline provides a small declarative stage graph with
// file-based completion markers, so an external scheduler (or a plain
// rerun of the binary) can resume a partially finished run
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"

	perr "maudeflow/internal/platform/errors"
	"maudeflow/internal/platform/logger"
)

// Stage is one node of the graph. Requires names stages that must have
// completed (this run or a previous one) before Run is invoked
type Stage struct {
	Name     string
	Requires []string
	Run      func(ctx context.Context) error
}

// Graph holds a validated, topologically ordered set of stages
type Graph struct {
	metaDir string
	stages  []Stage
	order   []int
}

// NewGraph validates the stage set (unique names, known requirements,
// no cycles) and fixes the execution order
func NewGraph(metaDir string, stages ...Stage) (*Graph, error) {
	if metaDir == "" {
		return nil, perr.Validationf("pipeline graph needs a meta dir")
	}
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, perr.Validationf("stage %d has no name", i)
		}
		if _, dup := index[s.Name]; dup {
			return nil, perr.Validationf("duplicate stage %q", s.Name)
		}
		if s.Run == nil {
			return nil, perr.Validationf("stage %q has no run func", s.Name)
		}
		index[s.Name] = i
	}
	for _, s := range stages {
		for _, req := range s.Requires {
			if _, ok := index[req]; !ok {
				return nil, perr.Validationf("stage %q requires unknown stage %q", s.Name, req)
			}
		}
	}

	order, err := topoSort(stages, index)
	if err != nil {
		return nil, err
	}
	return &Graph{metaDir: metaDir, stages: stages, order: order}, nil
}

// topoSort is Kahn's algorithm over the requirement edges
func topoSort(stages []Stage, index map[string]int) ([]int, error) {
	indeg := make([]int, len(stages))
	next := make([][]int, len(stages))
	for i, s := range stages {
		for _, req := range s.Requires {
			j := index[req]
			next[j] = append(next[j], i)
			indeg[i]++
		}
	}

	var queue []int
	for i := range stages {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	var order []int
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, j := range next[i] {
			indeg[j]--
			if indeg[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	if len(order) != len(stages) {
		return nil, perr.Validationf("stage graph has a cycle")
	}
	return order, nil
}

// MarkerPath is the completion marker for a stage, e.g. "partition.done"
func (g *Graph) MarkerPath(name string) string {
	return filepath.Join(g.metaDir, name+".done")
}

// Done reports whether a stage's completion marker exists
func (g *Graph) Done(name string) bool {
	_, err := os.Stat(g.MarkerPath(name))
	return err == nil
}

// Reset removes a stage's marker so the next Run re-executes it
func (g *Graph) Reset(name string) error {
	err := os.Remove(g.MarkerPath(name))
	if err != nil && !os.IsNotExist(err) {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "reset marker for %q", name)
	}
	return nil
}

// Run executes the stages in dependency order. Stages with an existing
// marker are skipped; a failed stage leaves no marker and blocks every
// stage that requires it, directly or transitively. All failures are
// reported together
func (g *Graph) Run(ctx context.Context) error {
	if err := os.MkdirAll(g.metaDir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "create meta dir %s", g.metaDir)
	}

	var merr *multierror.Error
	failed := map[string]bool{}

	for _, i := range g.order {
		s := g.stages[i]
		sctx := logger.WithStage(ctx, s.Name)
		log := logger.C(sctx)

		if blocker := g.blockedBy(s, failed); blocker != "" {
			failed[s.Name] = true
			log.Warn().Str("blocked_by", blocker).Msg("stage skipped, requirement failed")
			continue
		}
		if g.Done(s.Name) {
			log.Info().Msg("stage already complete, skipping")
			continue
		}
		if err := ctx.Err(); err != nil {
			failed[s.Name] = true
			merr = multierror.Append(merr, perr.Wrapf(err, perr.ErrorCodeUnknown, "stage %q", s.Name))
			continue
		}

		log.Info().Msg("stage starting")
		start := time.Now()
		if err := s.Run(sctx); err != nil {
			failed[s.Name] = true
			log.Error().Err(err).Msg("stage failed")
			merr = multierror.Append(merr, perr.Wrapf(err, perr.CodeOf(err), "stage %q", s.Name))
			continue
		}
		if err := g.writeMarker(s.Name, start); err != nil {
			failed[s.Name] = true
			merr = multierror.Append(merr, err)
			continue
		}
		log.Info().Dur("took", time.Since(start)).Msg("stage complete")
	}
	return merr.ErrorOrNil()
}

func (g *Graph) blockedBy(s Stage, failed map[string]bool) string {
	for _, req := range s.Requires {
		if failed[req] {
			return req
		}
	}
	return ""
}

func (g *Graph) writeMarker(name string, start time.Time) error {
	body := fmt.Sprintf("completed %s\nstarted %s\n",
		time.Now().UTC().Format(time.RFC3339), start.UTC().Format(time.RFC3339))
	if err := os.WriteFile(g.MarkerPath(name), []byte(body), 0o644); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "write marker for %q", name)
	}
	return nil
}
