package validation

import (
	"strings"

	apperrors "github.com/bessim-dev/ocr-api/internal/errors"
	"github.com/bessim-dev/ocr-api/pkg/models"
)

// ValidateOcrRequest checks the structural invariants of an OCR request:
// at least one image payload, no blank entries.
func ValidateOcrRequest(req *models.OcrRequest) error {
	if req == nil {
		return apperrors.NewValidationError("Request body is required", nil)
	}
	images := req.AllImages()
	if len(images) == 0 {
		return apperrors.NewValidationError("Provide either 'image' or non-empty 'images' array", nil)
	}
	for _, img := range images {
		if strings.TrimSpace(img) == "" {
			return apperrors.NewValidationError("Image is required (base64 string)", nil)
		}
	}
	for _, f := range req.Fields {
		if strings.TrimSpace(f) == "" {
			return apperrors.NewValidationError("Field names must be non-empty", nil)
		}
	}
	return nil
}

// ParseFieldsParam splits a comma-separated fields query parameter into a
// normalized list, dropping blanks.
func ParseFieldsParam(param string) []string {
	if param == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(param, ",") {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// MergeFields combines body and query field lists, deduplicating while
// preserving first-seen order.
func MergeFields(bodyFields, queryFields []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range append(append([]string(nil), bodyFields...), queryFields...) {
		trimmed := strings.TrimSpace(f)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
