package anpr

import (
	"regexp"
	"strings"
)

// The series segment excludes letters easily confused with digits
// (I, O, Q), which normalization can no longer produce anyway.
var (
	standardPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{1,2}[A-HJ-NPR-Z]{1,2}[0-9]{4}$`)
	bharatPattern   = regexp.MustCompile(`^[0-9]{2}BH[0-9]{4}[A-HJ-NPR-Z]{1,2}$`)
)

// PlateValidator checks canonical plate text against the configured
// grammar. Validation is purely syntactic.
type PlateValidator struct {
	allowBharat bool
	regions     map[string]struct{}
}

// ValidatorOption configures a PlateValidator.
type ValidatorOption func(*PlateValidator)

// WithBharatSeries enables the alternate bulk-registration grammar
// (YY BH NNNN XX) alongside the standard one.
func WithBharatSeries() ValidatorOption {
	return func(v *PlateValidator) { v.allowBharat = true }
}

// WithRegionCodes restricts the standard grammar's two-letter region code
// to the given set. An empty set accepts any code.
func WithRegionCodes(codes []string) ValidatorOption {
	return func(v *PlateValidator) {
		if len(codes) == 0 {
			return
		}
		v.regions = make(map[string]struct{}, len(codes))
		for _, c := range codes {
			v.regions[strings.ToUpper(c)] = struct{}{}
		}
	}
}

// NewPlateValidator builds a validator for the standard grammar, with
// optional alternates.
func NewPlateValidator(opts ...ValidatorOption) *PlateValidator {
	v := &PlateValidator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Valid reports whether text matches one of the accepted plate shapes.
func (v *PlateValidator) Valid(text string) bool {
	if standardPattern.MatchString(text) {
		if v.regions == nil {
			return true
		}
		_, ok := v.regions[text[:2]]
		return ok
	}
	if v.allowBharat && bharatPattern.MatchString(text) {
		return true
	}
	return false
}
