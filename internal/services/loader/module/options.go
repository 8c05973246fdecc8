package module

import (
	"time"

	"github.com/go-playground/validator/v10"

	"maudeflow/internal/platform/config"
	perr "maudeflow/internal/platform/errors"
)

// Options holds configuration for the load stage and its sink
type Options struct {
	InputDir  string `validate:"required"`
	SinkURL   string `validate:"required,url"`
	Index     string `validate:"required"`
	Alias     string `validate:"required_if=Swap true"`
	Swap      bool
	BatchSize int `validate:"min=1,max=100000"`
	Timeout   time.Duration
}

// FromConfig reads load options from config with the MAUDE_SINK_ prefix
func FromConfig(cfg config.Conf) Options {
	sc := cfg.Prefix("MAUDE_SINK_")
	return Options{
		InputDir:  sc.MayString("INPUT_DIR", "./data/maude/joined/events"),
		SinkURL:   sc.MayString("URL", "http://localhost:9200"),
		Index:     sc.MayString("INDEX", "maude-v1"),
		Alias:     sc.MayString("ALIAS", "maude"),
		Swap:      sc.MayBool("SWAP", false),
		BatchSize: sc.MayInt("BATCH_SIZE", 2000),
		Timeout:   sc.MayDuration("TIMEOUT", 60*time.Second),
	}
}

// Validate checks option invariants before the stage runs
func (o Options) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "load options")
	}
	return nil
}
