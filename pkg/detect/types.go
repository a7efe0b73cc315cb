package detect

// Category identifies the class of sensitive or risky content a finding
// belongs to. The set is a closed, build-time enumeration: scanners only ever
// emit the constants below, and downstream consumers switch over them.
type Category string

const (
	// Structured PII categories.
	CategoryEmail          Category = "EMAIL"
	CategoryPhone          Category = "PHONE"
	CategorySSN            Category = "SSN"
	CategoryCreditCard     Category = "CREDIT_CARD"
	CategoryNumericID      Category = "NUMERIC_ID"
	CategoryIBAN           Category = "IBAN"
	CategoryAddress        Category = "ADDRESS"
	CategoryPassport       Category = "PASSPORT"
	CategoryDriversLicense Category = "DRIVERS_LICENSE"
	CategoryMedicalRecord  Category = "MEDICAL_RECORD"
	CategoryTaxID          Category = "TAX_ID"
	CategoryVATNumber      Category = "VAT_NUMBER"

	// PII categories supplied by external collaborators (NER extraction);
	// the regex scanners never emit these, but the anonymizer and entity
	// mapper accept them.
	CategoryPersonName  Category = "PERSON_NAME"
	CategoryCompanyName Category = "COMPANY_NAME"

	// Secret material. Vendor-specific key formats and generic assignments
	// collapse into these two categories.
	CategoryAPIKey    Category = "API_KEY"
	CategorySecretKey Category = "SECRET_KEY"

	// Injection and exfiltration families. Each family emits at most one
	// finding per scan, first matching pattern wins.
	CategorySQLInjection Category = "SQL_INJECTION"
	CategoryXSS          Category = "XSS_SCRIPT"
	CategoryJailbreak    Category = "JAILBREAK"
	CategoryExfiltration Category = "DATA_EXFILTRATION"

	// Bulk record dumps.
	CategoryBulkData Category = "BULK_DATA"
)

// IsPII reports whether the category describes personally identifiable data.
func (c Category) IsPII() bool {
	switch c {
	case CategoryEmail, CategoryPhone, CategorySSN, CategoryCreditCard,
		CategoryNumericID, CategoryIBAN, CategoryAddress, CategoryPassport,
		CategoryDriversLicense, CategoryMedicalRecord, CategoryTaxID,
		CategoryVATNumber, CategoryPersonName, CategoryCompanyName:
		return true
	default:
		return false
	}
}

// IsSecret reports whether the category describes key or secret material.
func (c Category) IsSecret() bool {
	return c == CategoryAPIKey || c == CategorySecretKey
}

// IsInjection reports whether the category belongs to one of the
// injection/exfiltration families. These findings are report-only: the
// anonymizer never substitutes them.
func (c Category) IsInjection() bool {
	switch c {
	case CategorySQLInjection, CategoryXSS, CategoryJailbreak, CategoryExfiltration:
		return true
	default:
		return false
	}
}

// RiskLevel classifies the overall risk of an analyzed text.
type RiskLevel string

const (
	// RiskLow indicates no findings and a zero anomaly score.
	RiskLow RiskLevel = "LOW"
	// RiskMedium indicates findings or bulk data without high-risk signals.
	RiskMedium RiskLevel = "MEDIUM"
	// RiskHigh indicates injection, secret material, or a high anomaly score.
	RiskHigh RiskLevel = "HIGH"
)

// Finding captures a single detected occurrence of a sensitive or risky
// pattern. Start and End form a half-open span over the original text, with
// 0 <= Start <= End <= len(text). Value holds the matched substring where the
// scanner captured one. Rows is populated only for BULK_DATA findings.
type Finding struct {
	Category Category `json:"category"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Value    string   `json:"value,omitempty"`
	Rows     int      `json:"rows,omitempty"`
}

// Analysis summarises a detection pass. Findings retain scan order and are
// never sorted, merged, or deduplicated: duplicate and overlapping spans
// across categories are legitimate raw signal for anomaly scoring.
type Analysis struct {
	RiskLevel    RiskLevel `json:"risk_level"`
	Findings     []Finding `json:"findings"`
	AnomalyScore int       `json:"anomaly_score"`
}

// HasCategory reports whether any finding carries the given category.
func (a Analysis) HasCategory(c Category) bool {
	for _, f := range a.Findings {
		if f.Category == c {
			return true
		}
	}
	return false
}

// HasPII reports whether any PII finding is present.
func (a Analysis) HasPII() bool {
	for _, f := range a.Findings {
		if f.Category.IsPII() {
			return true
		}
	}
	return false
}

// BulkRows returns the row count of the BULK_DATA finding, or zero when the
// analysis carries none.
func (a Analysis) BulkRows() int {
	for _, f := range a.Findings {
		if f.Category == CategoryBulkData {
			return f.Rows
		}
	}
	return 0
}
