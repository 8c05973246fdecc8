package module

import (
	"github.com/go-playground/validator/v10"

	"maudeflow/internal/platform/config"
	perr "maudeflow/internal/platform/errors"
)

// Options holds configuration for the partition stage
type Options struct {
	Shards    int    `validate:"min=1,max=4096"`
	Delimiter string `validate:"len=1"`
	InputDir  string `validate:"required"`
	OutputDir string `validate:"required"`
	Ignores   []string
}

// FromConfig reads partition options from config with the MAUDE_PARTITION_ prefix
func FromConfig(cfg config.Conf) Options {
	pc := cfg.Prefix("MAUDE_PARTITION_")
	return Options{
		Shards:    pc.MayInt("SHARDS", 32),
		Delimiter: pc.MayString("DELIMITER", "|"),
		InputDir:  pc.MayString("INPUT_DIR", "./data/maude/extracted/events"),
		OutputDir: pc.MayString("OUTPUT_DIR", "./data/maude/partitioned/events"),
		Ignores:   pc.MayCSV("IGNORE", []string{"problem", "add", "change"}),
	}
}

// Validate checks option invariants before the stage runs
func (o Options) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "partition options")
	}
	return nil
}
