package analysis

import (
	"time"

	"github.com/scanalyze/scanalyze/internal/scanning"
)

// Analysis is a completed ingredient-label report. Once recorded it is never
// mutated; history entries are re-served exactly as they were stored.
type Analysis struct {
	ID          string                       `json:"id"`
	Date        time.Time                    `json:"date"`
	ProductName string                       `json:"productName"`
	BrandName   string                       `json:"brandName,omitempty"`
	Safe        []string                     `json:"safe"`
	Harmful     []scanning.HarmfulIngredient `json:"harmful"`
	Rating      float64                      `json:"rating"`
	Grade       string                       `json:"grade"`
	Summary     string                       `json:"summary"`
	RawText     string                       `json:"rawText"`
	ImageURL    string                       `json:"imageUrl,omitempty"` // data URI of the scanned label, owned by this record
	Filename    string                       `json:"filename,omitempty"` // stored raw upload
}

// newAnalysis builds a record from a validated classifier report. The id and
// timestamp are attached here; the image reference is attached by the caller.
func newAnalysis(id string, date time.Time, report *scanning.LabelReport) *Analysis {
	return &Analysis{
		ID:          id,
		Date:        date,
		ProductName: report.ProductName,
		BrandName:   report.BrandName,
		Safe:        report.Safe,
		Harmful:     report.Harmful,
		Rating:      report.Rating,
		Grade:       report.Grade,
		Summary:     report.Summary,
		RawText:     report.RawText,
	}
}
