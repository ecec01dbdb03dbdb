package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// go-playground/validator handles the declarative checks via struct tags;
// rules that cannot be expressed in tags follow.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

// validateCustomRules performs validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	switch cfg.Backend.Type {
	case "s3":
		// Bucket and region have no usable defaults.
		if s, _ := cfg.Backend.S3["bucket"].(string); s == "" {
			return fmt.Errorf("backend.s3: bucket is required")
		}
		if s, _ := cfg.Backend.S3["region"].(string); s == "" {
			return fmt.Errorf("backend.s3: region is required")
		}
	case "disk":
		if s, _ := cfg.Backend.Disk["root"].(string); s == "" {
			return fmt.Errorf("backend.disk: root is required")
		}
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
