package sender

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
)

// ProcessorConfig controls delivery retries. Values come from the app config.
type ProcessorConfig struct {
	Retries int           `validate:"min=1,max=10"`
	Backoff time.Duration `validate:"min=0"`
}

func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{Retries: 3, Backoff: time.Second}
}

func (c ProcessorConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errs.New("sender config validation failed").Wrap(err)
	}
	return nil
}
