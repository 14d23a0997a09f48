package ocr

import (
	"strings"

	"github.com/bessim-dev/ocr-api/pkg/models"
)

// PostProcessor adjusts a raw structured result in place. Implementations
// are pure over the result object: no model calls, no I/O, no errors. A
// malformed-but-present field shape is treated as absent, never raised.
type PostProcessor func(result *models.GenericOcrStructuredResult)

// postProcessors registers type-specific routines; types without an entry
// pass through unchanged.
var postProcessors = map[models.OcrType]PostProcessor{
	models.TypeDrivingPermit: PostProcessDrivingPermit,
}

// PostProcess applies the registered routine for docType, if any.
func PostProcess(docType models.OcrType, result *models.GenericOcrStructuredResult) {
	if result == nil {
		return
	}
	if process, ok := postProcessors[docType]; ok {
		process(result)
	}
}

type extractedField struct {
	value      interface{}
	confidence float64
}

// getField reads one field from the untyped model output. A field missing
// a numeric confidence is treated as absent.
func getField(result *models.GenericOcrStructuredResult, name string) (extractedField, bool) {
	raw, ok := result.Fields[name]
	if !ok {
		return extractedField{}, false
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return extractedField{}, false
	}
	confidence, ok := obj["confidence"].(float64)
	if !ok {
		return extractedField{}, false
	}
	return extractedField{value: obj["value"], confidence: confidence}, true
}

func setField(result *models.GenericOcrStructuredResult, name string, value interface{}, confidence float64) {
	if result.Fields == nil {
		result.Fields = make(map[string]interface{})
	}
	result.Fields[name] = map[string]interface{}{
		"value":      value,
		"confidence": confidence,
	}
}

// PostProcessDrivingPermit validates and normalizes the permit number
// against the issuing country's rules and records the outcome under
// derived.validation. The permit field's confidence is raised by 0.15
// (clamped to 1) when validation passes and lowered by 0.2 (clamped to 0)
// when it fails; the value is replaced with the normalized form only when
// valid.
func PostProcessDrivingPermit(result *models.GenericOcrStructuredResult) {
	countryField, hasCountry := getField(result, "issuing_country_iso2")
	permitField, hasPermit := getField(result, "permit_number")

	if result.Derived == nil {
		result.Derived = make(map[string]interface{})
	}

	iso2 := ""
	if hasCountry {
		if s, ok := countryField.value.(string); ok {
			iso2 = strings.ToUpper(s)
		}
	}

	if !IsSupportedCountry(iso2) {
		result.Derived["validation"] = map[string]interface{}{
			"country_supported":        false,
			"reason":                   "unsupported-country",
			"normalized_permit_number": nil,
			"permit_number_valid":      nil,
			"strategy":                 "none",
		}
		return
	}

	raw, isString := "", false
	if hasPermit {
		raw, isString = permitField.value.(string)
	}
	if !isString || strings.TrimSpace(raw) == "" {
		result.Derived["validation"] = map[string]interface{}{
			"country_supported":        true,
			"reason":                   "no-permit-number",
			"normalized_permit_number": nil,
			"permit_number_valid":      false,
			"strategy":                 "model-empty",
		}
		return
	}

	outcome := ValidatePermitNumber(iso2, raw)

	adjusted := permitField.confidence
	if outcome.Valid {
		adjusted = adjusted + 0.15
		if adjusted > 1 {
			adjusted = 1
		}
		setField(result, "permit_number", outcome.Normalized, adjusted)
	} else {
		adjusted = adjusted - 0.2
		if adjusted < 0 {
			adjusted = 0
		}
		// Keep the original raw value, only the confidence drops.
		setField(result, "permit_number", raw, adjusted)
	}

	validation := map[string]interface{}{
		"country_supported":   true,
		"permit_number_valid": outcome.Valid,
		"strategy":            "postprocess-validate-normalize",
	}
	if outcome.Valid {
		validation["normalized_permit_number"] = outcome.Normalized
		validation["reason"] = "ok"
	} else {
		validation["normalized_permit_number"] = nil
		validation["reason"] = outcome.Reason
	}
	result.Derived["validation"] = validation
}
