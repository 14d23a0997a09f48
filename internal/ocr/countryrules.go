package ocr

import (
	"regexp"
	"strings"
)

// PermitNumberRule describes how a country formats driving-permit numbers.
// Rules are static, loaded at startup, never mutated.
type PermitNumberRule struct {
	Regexes       []*regexp.Regexp
	Anchors       []string
	MinLength     int
	MaxLength     int
	HasChecksum   bool
	ChecksumValid func(normalized string) bool
}

// Validation failure reason codes, in check order.
const (
	ReasonEmptyAfterNormalize = "empty-after-normalize"
	ReasonLengthOutOfRange    = "length-out-of-range"
	ReasonNoRegexMatch        = "no-regex-match"
	ReasonChecksumFailed      = "checksum-failed"
)

// PermitValidationOutcome is the transient result of permit-number
// validation.
type PermitValidationOutcome struct {
	Valid      bool
	Normalized string
	Reason     string
}

// DrivingPermitCountryRules holds the closed set of supported issuing
// countries. Patterns are pragmatic starting points, to be refined with
// real samples.
var DrivingPermitCountryRules = map[string]PermitNumberRule{
	// French permits vary (older vs newer); start broad: 9-16 alphanum.
	"FR": {
		Regexes:   []*regexp.Regexp{regexp.MustCompile(`^[A-Z0-9]{9,16}$`)},
		Anchors:   []string{"Numéro du permis", "N° permis", "Numéro de permis", "Permis n°"},
		MinLength: 9,
		MaxLength: 16,
	},
	// Belgian formats are often numeric; start narrower: 9-12 digits.
	"BE": {
		Regexes:   []*regexp.Regexp{regexp.MustCompile(`^[0-9]{9,12}$`)},
		Anchors:   []string{"Rijbewijsnummer", "Numéro du permis", "Nummer rijbewijs"},
		MinLength: 9,
		MaxLength: 12,
	},
	// German formats: alphanum, 8-14.
	"DE": {
		Regexes:   []*regexp.Regexp{regexp.MustCompile(`^[A-Z0-9]{8,14}$`)},
		Anchors:   []string{"Führerscheinnummer", "Fuehrerscheinnummer", "FS-Nr", "Führerschein Nr."},
		MinLength: 8,
		MaxLength: 14,
	},
}

// IsSupportedCountry reports whether the ISO2 code has configured rules.
func IsSupportedCountry(iso2 string) bool {
	if iso2 == "" {
		return false
	}
	_, ok := DrivingPermitCountryRules[strings.ToUpper(iso2)]
	return ok
}

var nonAlphanumeric = regexp.MustCompile(`[^0-9A-Za-z]`)

// NormalizePermitNumber strips all non-alphanumeric characters and
// uppercases the remainder.
func NormalizePermitNumber(value string) string {
	return strings.ToUpper(nonAlphanumeric.ReplaceAllString(value, ""))
}

// ValidatePermitNumber normalizes the raw value and runs the country's
// checks in fixed order: non-empty, length bounds, pattern match, then
// checksum. The first failing check determines the reason code.
func ValidatePermitNumber(iso2, rawValue string) PermitValidationOutcome {
	rule := DrivingPermitCountryRules[strings.ToUpper(iso2)]
	normalized := NormalizePermitNumber(rawValue)
	if len(normalized) == 0 {
		return PermitValidationOutcome{Normalized: normalized, Reason: ReasonEmptyAfterNormalize}
	}
	if (rule.MinLength > 0 && len(normalized) < rule.MinLength) ||
		(rule.MaxLength > 0 && len(normalized) > rule.MaxLength) {
		return PermitValidationOutcome{Normalized: normalized, Reason: ReasonLengthOutOfRange}
	}
	matched := false
	for _, rx := range rule.Regexes {
		if rx.MatchString(normalized) {
			matched = true
			break
		}
	}
	if !matched {
		return PermitValidationOutcome{Normalized: normalized, Reason: ReasonNoRegexMatch}
	}
	if rule.HasChecksum && rule.ChecksumValid != nil && !rule.ChecksumValid(normalized) {
		return PermitValidationOutcome{Normalized: normalized, Reason: ReasonChecksumFailed}
	}
	return PermitValidationOutcome{Valid: true, Normalized: normalized}
}
