// Package module provides the partition module implementation
package module

import (
	"maudeflow/internal/modkit"
	"maudeflow/internal/services/partition/domain"
	"maudeflow/internal/services/partition/service"
)

// Ports defines the partition module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the partition module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the partition module, wiring the service from deps.Cfg.
// Options are validated eagerly so a misconfigured stage fails before any
// shard file is created
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	svc := service.New(service.Config{
		Shards:    opts.Shards,
		Delimiter: opts.Delimiter[0],
		InputDir:  opts.InputDir,
		OutputDir: opts.OutputDir,
		Ignores:   opts.Ignores,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "partition" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
