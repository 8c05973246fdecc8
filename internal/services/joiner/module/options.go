package module

import (
	"github.com/go-playground/validator/v10"

	"maudeflow/internal/platform/config"
	perr "maudeflow/internal/platform/errors"
)

// Options holds configuration for the join stage
type Options struct {
	Shards       int    `validate:"min=1,max=4096"`
	Workers      int    `validate:"min=1,max=256"`
	Delimiter    string `validate:"len=1"`
	PartitionDir string `validate:"required"`
	OutputDir    string `validate:"required"`
}

// FromConfig reads join options from config with the MAUDE_JOIN_ prefix
func FromConfig(cfg config.Conf) Options {
	jc := cfg.Prefix("MAUDE_JOIN_")
	return Options{
		Shards:       jc.MayInt("SHARDS", 32),
		Workers:      jc.MayInt("WORKERS", 6),
		Delimiter:    jc.MayString("DELIMITER", "|"),
		PartitionDir: jc.MayString("PARTITION_DIR", "./data/maude/partitioned/events"),
		OutputDir:    jc.MayString("OUTPUT_DIR", "./data/maude/joined/events"),
	}
}

// Validate checks option invariants before the stage runs
func (o Options) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "join options")
	}
	return nil
}
