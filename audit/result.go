package audit

import "math"

// ValidationResult is the outcome of running the audit rules against a
// single record. Errors are blocking: the record must not be treated as
// valid. Warnings are advisory and never affect IsValid.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newResult() ValidationResult {
	return ValidationResult{
		IsValid:  true,
		Errors:   []string{},
		Warnings: []string{},
	}
}

func (r *ValidationResult) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.IsValid = false
}

func (r *ValidationResult) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// merge folds another result into r, preserving the IsValid invariant.
func (r *ValidationResult) merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.IsValid = len(r.Errors) == 0
}

// relativeVariance returns |expected-actual|/expected. Callers guard
// against a zero expected value.
func relativeVariance(expected, actual float64) float64 {
	return math.Abs(expected-actual) / expected
}
