package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// verifyValidate is the shared validator for request types. Custom
// validations are registered once in init.
var verifyValidate *validator.Validate

func init() {
	verifyValidate = validator.New()
	_ = verifyValidate.RegisterValidation("continent", validateContinent)
}

// validateContinent accepts one of the known two-letter region codes.
func validateContinent(fl validator.FieldLevel) bool {
	_, err := ParseRegion(fl.Field().String())
	return err == nil
}

// EffectiveMode resolves the mode a request will run under: batch when URLs
// is set, otherwise the explicit mode, defaulting to global.
func (r *VerifyRequest) EffectiveMode() Mode {
	if len(r.URLs) > 0 || r.Mode == ModeBatch {
		return ModeBatch
	}
	if r.Mode == "" {
		return ModeGlobal
	}
	return r.Mode
}

// Validate checks field tags plus the cross-field mode rules: dev needs a
// continent, batch needs urls (1..MaxBatchURLs), global and dev need url.
func (r *VerifyRequest) Validate() error {
	if err := verifyValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid verify request: %w", err)
	}

	switch r.EffectiveMode() {
	case ModeBatch:
		if len(r.URLs) == 0 {
			return fmt.Errorf("batch mode requires urls")
		}
	case ModeDev:
		if r.Continent == "" {
			return fmt.Errorf("dev mode requires a continent")
		}
		if r.URL == "" {
			return fmt.Errorf("dev mode requires a url")
		}
	default:
		if r.URL == "" {
			return fmt.Errorf("url is required")
		}
	}
	return nil
}

// RequestedRegions returns the region set a submission will probe: all
// regions for global and batch jobs, the single chosen one for dev.
func (r *VerifyRequest) RequestedRegions() ([]Region, error) {
	if r.EffectiveMode() == ModeDev {
		reg, err := ParseRegion(r.Continent)
		if err != nil {
			return nil, err
		}
		return []Region{reg}, nil
	}
	out := make([]Region, len(AllRegions))
	copy(out, AllRegions)
	return out, nil
}
