// Package module provides the loader module implementation
package module

import (
	"maudeflow/internal/adapters/sink/elastic"
	"maudeflow/internal/modkit"
	"maudeflow/internal/services/loader/domain"
	"maudeflow/internal/services/loader/service"
)

// Ports defines the loader module ports
type Ports struct {
	Runner domain.RunnerPort
	Sink   domain.SinkPort
}

// Module implements the loader module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the loader module, wiring the sink adapter and the
// load service from deps.Cfg
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sink := elastic.New(elastic.Options{
		BaseURL:   opts.SinkURL,
		Timeout:   opts.Timeout,
		BatchSize: opts.BatchSize,
	})
	svc := service.New(service.Config{
		InputDir: opts.InputDir,
		Index:    opts.Index,
		Alias:    opts.Alias,
		Swap:     opts.Swap,
	}, sink)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc, Sink: sink}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "loader" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
