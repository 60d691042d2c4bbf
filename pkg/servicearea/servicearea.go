// Package servicearea decides whether a postal code falls inside the area we serve.
package servicearea

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	ReasonMissing     = "postal code is required"
	ReasonMalformed   = "postal code must look like A1A 1A1"
	ReasonOutsideArea = "outside service area"
)

var canadianPostalCode = regexp.MustCompile(`^[A-Z][0-9][A-Z][0-9][A-Z][0-9]$`)

// Result is the outcome of an eligibility check.
type Result struct {
	Eligible   bool   `json:"eligible"`
	Normalized string `json:"normalized"`
	Reason     string `json:"reason,omitempty"`
}

// Checker matches normalized postal codes against a static prefix allow-list.
type Checker struct {
	prefixes []string
}

// NewChecker builds a checker; prefixes are normalized the same way as input.
func NewChecker(prefixes []string) *Checker {
	normalized := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if n := Normalize(p); n != "" {
			normalized = append(normalized, n)
		}
	}
	return &Checker{prefixes: normalized}
}

// Normalize strips all whitespace and uppercases the value.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// WellFormed reports whether raw normalizes to the A1A1A1 shape, regardless
// of whether the area is served.
func WellFormed(raw string) bool {
	return canadianPostalCode.MatchString(Normalize(raw))
}

// Check normalizes raw and reports whether it is eligible for service.
func (c *Checker) Check(raw string) Result {
	normalized := Normalize(raw)
	switch {
	case normalized == "":
		return Result{Reason: ReasonMissing}
	case !canadianPostalCode.MatchString(normalized):
		return Result{Normalized: normalized, Reason: ReasonMalformed}
	}

	for _, prefix := range c.prefixes {
		if strings.HasPrefix(normalized, prefix) {
			return Result{Eligible: true, Normalized: normalized}
		}
	}
	return Result{Normalized: normalized, Reason: ReasonOutsideArea}
}
