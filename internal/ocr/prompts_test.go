package ocr

import (
	"strings"
	"testing"

	"github.com/bessim-dev/ocr-api/pkg/models"
)

func TestPrompts_AllGenericTypesCovered(t *testing.T) {
	for _, docType := range models.GenericOcrTypes {
		if _, ok := Prompts[docType]; !ok {
			t.Errorf("Missing prompt template for %q", docType)
		}
	}
}

func TestPrompts_DeclareDocType(t *testing.T) {
	for docType, template := range Prompts {
		if !strings.Contains(template, `"doc_type": "`+string(docType)+`"`) {
			t.Errorf("Template for %q does not declare its doc_type literal", docType)
		}
	}
}

func TestBuildPrompt_DateSubstitution(t *testing.T) {
	prompt := BuildPrompt("valid until {current_date}, checked on {current_date}", "2026-08-31", nil)

	if strings.Contains(prompt, "{current_date}") {
		t.Error("Expected every {current_date} placeholder to be substituted")
	}
	if strings.Count(prompt, "2026-08-31") != 2 {
		t.Errorf("Expected date substituted twice, got %q", prompt)
	}
}

func TestBuildPrompt_NoFieldClauseWhenEmpty(t *testing.T) {
	base := "extract things"

	for _, fields := range [][]string{nil, {}} {
		if got := BuildPrompt(base, "2026-08-31", fields); got != base {
			t.Errorf("Expected unchanged prompt for empty fields, got %q", got)
		}
	}
}

func TestBuildPrompt_FieldClause(t *testing.T) {
	prompt := BuildPrompt("extract things", "2026-08-31", []string{"iban", "bic"})

	if !strings.Contains(prompt, "'iban', 'bic'") {
		t.Errorf("Expected quoted field list in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, `{"value": null, "confidence": 0}`) {
		t.Errorf("Expected null-value instruction for absent keys, got %q", prompt)
	}
}

func TestTodayUTC_Format(t *testing.T) {
	today := TodayUTC()
	if len(today) != 10 || today[4] != '-' || today[7] != '-' {
		t.Errorf("Expected YYYY-MM-DD, got %q", today)
	}
}
