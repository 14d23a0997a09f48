package models

// OcrType identifies a supported document class. The set is closed and
// known at build time.
type OcrType string

const (
	TypeCarPlate                OcrType = "car-plate"
	TypeDrivingPermit           OcrType = "driving_permit"
	TypeKbis                    OcrType = "kbis"
	TypeResponsibilityInsurance OcrType = "responsibility_insurance"
	TypeVigilanceCertificate    OcrType = "vigilance_certificate"
	TypeRib                     OcrType = "rib"
	TypeWcarh                   OcrType = "wcarh"
	TypeTruckOwnership          OcrType = "truck_ownership"
	TypeCompanyStatus           OcrType = "company_status"
)

// SupportedOcrTypes lists every document class the API accepts.
var SupportedOcrTypes = []OcrType{
	TypeCarPlate,
	TypeDrivingPermit,
	TypeKbis,
	TypeResponsibilityInsurance,
	TypeVigilanceCertificate,
	TypeRib,
	TypeWcarh,
	TypeTruckOwnership,
	TypeCompanyStatus,
}

// GenericOcrTypes lists the structured-extraction document classes. The
// legacy car-plate path is explicit-only and excluded from type detection.
var GenericOcrTypes = []OcrType{
	TypeDrivingPermit,
	TypeKbis,
	TypeResponsibilityInsurance,
	TypeVigilanceCertificate,
	TypeRib,
	TypeWcarh,
	TypeTruckOwnership,
	TypeCompanyStatus,
}

// IsSupportedType reports whether t is in the supported set.
func IsSupportedType(t OcrType) bool {
	for _, s := range SupportedOcrTypes {
		if s == t {
			return true
		}
	}
	return false
}

// IsGenericType reports whether t uses the structured-extraction path.
func IsGenericType(t OcrType) bool {
	for _, s := range GenericOcrTypes {
		if s == t {
			return true
		}
	}
	return false
}

// OcrRequest is the request body for every OCR route. At least one of
// Image/Images must be present.
type OcrRequest struct {
	Image  string   `json:"image,omitempty"`
	Images []string `json:"images,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// AllImages returns the image payloads in caller-supplied order. Images
// takes precedence over the legacy single Image field.
func (r *OcrRequest) AllImages() []string {
	if len(r.Images) > 0 {
		return r.Images
	}
	if r.Image != "" {
		return []string{r.Image}
	}
	return nil
}

// OcrResult is the legacy car-plate result shape. Absent model fields are
// defaulted to nil/0, never omitted.
type OcrResult struct {
	Plate             *string `json:"plate"`
	PlateConfidence   float64 `json:"plate_confidence"`
	Country           *string `json:"country"`
	CountryConfidence float64 `json:"country_confidence"`
	Region            *string `json:"region"`
	RegionConfidence  float64 `json:"region_confidence"`
}

// StructuredFieldValue is one extracted datum with the model's
// self-reported certainty. Confidence is always present, 0 when the value
// is null.
type StructuredFieldValue struct {
	Value      interface{} `json:"value"`
	Confidence float64     `json:"confidence"`
}

// GenericOcrStructuredResult is the shape shared by all non-legacy
// document types. Fields values are StructuredFieldValue objects or arrays
// thereof; they stay loosely typed because the model output is untyped at
// the boundary.
type GenericOcrStructuredResult struct {
	DocType   string                 `json:"doc_type"`
	Fields    map[string]interface{} `json:"fields"`
	Derived   map[string]interface{} `json:"derived,omitempty"`
	PagesSeen int                    `json:"pages_seen,omitempty"`
}

// FilterFields returns a copy of the result with Fields narrowed to the
// requested keys. An empty request returns the result unchanged.
func (r *GenericOcrStructuredResult) FilterFields(fields []string) *GenericOcrStructuredResult {
	if len(fields) == 0 {
		return r
	}
	requested := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		requested[f] = struct{}{}
	}
	filtered := make(map[string]interface{})
	for key, value := range r.Fields {
		if _, ok := requested[key]; ok {
			filtered[key] = value
		}
	}
	out := *r
	out.Fields = filtered
	return &out
}

// TypeDetectionResult is the outcome of a classification-only model call.
// Type is nil when the document cannot be classified into the closed set.
type TypeDetectionResult struct {
	Type       *OcrType `json:"type"`
	Confidence float64  `json:"confidence"`
}

// OcrResponse is the HTTP envelope carried by every response so callers
// can discriminate failure without relying on status codes alone.
type OcrResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Cached  *bool       `json:"cached,omitempty"`
	Error   *string     `json:"error"`
}
