// Package domain holds the join stage's core types
package domain

import (
	"context"
	"path/filepath"

	pdom "maudeflow/internal/services/partition/domain"
)

// ShardFiles names one shard's four category files, master first
type ShardFiles struct {
	Master  string
	Patient string
	Device  string
	Text    string
}

// ShardFilesFor resolves the canonical shard file paths under dir
func ShardFilesFor(dir string, shard int) ShardFiles {
	return ShardFiles{
		Master:  filepath.Join(dir, pdom.ShardFileName(shard, pdom.CategoryMaster)),
		Patient: filepath.Join(dir, pdom.ShardFileName(shard, pdom.CategoryPatient)),
		Device:  filepath.Join(dir, pdom.ShardFileName(shard, pdom.CategoryDevice)),
		Text:    filepath.Join(dir, pdom.ShardFileName(shard, pdom.CategoryText)),
	}
}

// Nested collection names in the joined document, one per dependent category
const (
	FieldPatient = "patient"
	FieldDevice  = "device"
	FieldText    = "mdr_text"
)

// NestedField maps a dependent category to its document collection name
func NestedField(c pdom.Category) string {
	switch c {
	case pdom.CategoryPatient:
		return FieldPatient
	case pdom.CategoryDevice:
		return FieldDevice
	case pdom.CategoryText:
		return FieldText
	}
	return ""
}

// JoinStats counts one shard's join outcome. Every dropped row is
// observable here and in logs
type JoinStats struct {
	Documents          int64
	DependentsAttached int64
	SkippedRows        int64 // rows shorter than their schema or with an unparsable key
}

// Add accumulates o into s
func (s *JoinStats) Add(o JoinStats) {
	s.Documents += o.Documents
	s.DependentsAttached += o.DependentsAttached
	s.SkippedRows += o.SkippedRows
}

// RunnerPort is the public port exposed by the joiner module
type RunnerPort interface {
	// RunAll joins every shard across a bounded worker pool. It returns
	// only after all shard jobs finished; failures are aggregated and a
	// failed shard leaves no output file behind
	RunAll(ctx context.Context) (JoinStats, error)
}
