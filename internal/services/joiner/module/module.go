// Package module provides the joiner module implementation
package module

import (
	"maudeflow/internal/modkit"
	"maudeflow/internal/services/joiner/domain"
	"maudeflow/internal/services/joiner/service"
)

// Ports defines the joiner module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the joiner module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the joiner module, wiring the orchestrator from deps.Cfg
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	orch := service.New(service.Config{
		Shards:       opts.Shards,
		Workers:      opts.Workers,
		Delimiter:    opts.Delimiter[0],
		PartitionDir: opts.PartitionDir,
		OutputDir:    opts.OutputDir,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: orch}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "joiner" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
