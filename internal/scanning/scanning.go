package scanning

import "context"

// labelScanPrompt is the shared instruction used by all LLM providers for
// analyzing ingredient labels. The JSON schema embedded here is the contract
// enforced by parseLabelReport; keep the two in sync.
const labelScanPrompt = `Act as a Senior Toxicologist and Health Safety Expert analyzing a food or consumer product ingredient label.

1. Perform high-precision OCR on this product label and read every ingredient.
2. Cross-reference each ingredient against global health databases (FDA, EFSA, EWG).
3. Identify 'hidden' harmful components (e.g., synthetic fragrances, specific preservatives).
4. For every concerning ingredient, describe precisely which body systems are affected and the long-term physiological risks.
5. Calculate a safety score (0-100) and assign a letter grade (A+ to F); higher scores must receive equal or better grades.

Return ONLY valid JSON in this exact format:
{
  "productName": "Product name if identifiable, otherwise empty string",
  "brandName": "Brand name if identifiable, otherwise empty string",
  "safe": ["ingredient names generally recognized as safe"],
  "harmful": [
    {
      "name": "ingredient name",
      "risk": "Low, Moderate, or High",
      "category": "Toxic, Allergen, Endocrine, Carcinogen, or Gut Health",
      "effects": "scientific explanation of physiological impact",
      "affectedSystems": ["body systems affected, e.g. Endocrine, Nervous, Digestive"]
    }
  ],
  "rating": 0,
  "grade": "A+, A, B, C, D, or F",
  "summary": "One sentence executive summary of the product safety",
  "rawText": "Cleaned text extracted from the label"
}

Important:
- Every identified ingredient must appear in exactly one of "safe" or "harmful"
- The rating must be a number between 0 and 100
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// Risk levels for a harmful ingredient.
const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
)

// Harm categories assigned by the classifier.
const (
	CategoryToxic      = "Toxic"
	CategoryAllergen   = "Allergen"
	CategoryEndocrine  = "Endocrine"
	CategoryCarcinogen = "Carcinogen"
	CategoryGutHealth  = "Gut Health"
)

// Grades the classifier may assign, best to worst.
var grades = []string{"A+", "A", "B", "C", "D", "F"}

// HarmfulIngredient describes one flagged ingredient from a label.
type HarmfulIngredient struct {
	Name            string   `json:"name"`
	Risk            string   `json:"risk"`
	Category        string   `json:"category"`
	Effects         string   `json:"effects"`
	AffectedSystems []string `json:"affectedSystems"`
}

// LabelReport contains the validated classifier output for one label.
type LabelReport struct {
	ProductName string              `json:"productName"`
	BrandName   string              `json:"brandName"`
	Safe        []string            `json:"safe"`
	Harmful     []HarmfulIngredient `json:"harmful"`
	Rating      float64             `json:"rating"`
	Grade       string              `json:"grade"`
	Summary     string              `json:"summary"`
	RawText     string              `json:"rawText"`
}

// Scanner defines the interface for label classification backends
type Scanner interface {
	// ScanLabel analyzes an ingredient label image and returns the
	// validated report
	ScanLabel(ctx context.Context, imageData []byte, contentType string) (*LabelReport, error)
	// Close closes the scanner and releases resources
	Close() error
}
