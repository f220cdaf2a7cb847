package scanning

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// requiredFields must all be present in the classifier response.
// productName and brandName are optional; labels are often unbranded.
var requiredFields = []string{"safe", "harmful", "rating", "grade", "summary", "rawText"}

// parseLabelReport parses and validates the JSON response from the classifier.
// The contract is enforced here, independent of the transport used to reach
// the model, so any schema violation is caught before a report is built.
func parseLabelReport(text string) (*LabelReport, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	// Unmarshal into a map first so missing required fields can be
	// distinguished from zero values
	var rawMap map[string]interface{}
	if err := json.Unmarshal([]byte(text), &rawMap); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	for _, field := range requiredFields {
		if _, exists := rawMap[field]; !exists {
			return nil, fmt.Errorf("missing required field %q in response", field)
		}
	}

	var report LabelReport
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}

	if err := validateLabelReport(&report); err != nil {
		return nil, err
	}

	return &report, nil
}

// validateLabelReport checks the enum and range constraints of a decoded
// report and normalizes nil sequences to empty ones.
func validateLabelReport(report *LabelReport) error {
	if report.Rating < 0 || report.Rating > 100 {
		return fmt.Errorf("rating %v outside [0,100]", report.Rating)
	}

	report.Grade = strings.TrimSpace(report.Grade)
	if !slices.Contains(grades, report.Grade) {
		return fmt.Errorf("invalid grade %q", report.Grade)
	}

	if report.Safe == nil {
		report.Safe = []string{}
	}
	if report.Harmful == nil {
		report.Harmful = []HarmfulIngredient{}
	}

	for i := range report.Harmful {
		h := &report.Harmful[i]
		h.Name = strings.TrimSpace(h.Name)
		if h.Name == "" {
			return fmt.Errorf("harmful ingredient %d has empty name", i)
		}
		switch h.Risk {
		case RiskLow, RiskModerate, RiskHigh:
		default:
			return fmt.Errorf("harmful ingredient %q has invalid risk %q", h.Name, h.Risk)
		}
		switch h.Category {
		case CategoryToxic, CategoryAllergen, CategoryEndocrine, CategoryCarcinogen, CategoryGutHealth:
		default:
			return fmt.Errorf("harmful ingredient %q has invalid category %q", h.Name, h.Category)
		}
		if h.AffectedSystems == nil {
			h.AffectedSystems = []string{}
		}
	}

	report.ProductName = strings.TrimSpace(report.ProductName)
	report.BrandName = strings.TrimSpace(report.BrandName)
	report.Summary = strings.TrimSpace(report.Summary)

	return nil
}
