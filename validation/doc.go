// Package validation validates configuration structs through
// go-playground/validator struct tags and reports failures as
// errors.AppError values with per-field details.
//
//	type ProcessConfig struct {
//	    Binary string `mapstructure:"binary" validate:"required"`
//	}
//	if err := validation.Validate(cfg); err != nil { ... }
//
// Field names in messages follow the mapstructure tag so they match the keys
// a user writes in config.yml.
package validation
