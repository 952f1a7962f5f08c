package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate use a single instance of validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Validate checks the struct tags of cfg and the engine bounds tags cannot
// express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if cfg.Engine.ChunkThreshold > 0 && cfg.Engine.ChunkSize > cfg.Engine.ChunkThreshold {
		return fmt.Errorf("engine: chunk_size %d exceeds chunk_threshold %d",
			cfg.Engine.ChunkSize, cfg.Engine.ChunkThreshold)
	}
	return nil
}

// formatValidationError keeps the first failure, with its field path.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
