// Package detect scans text for sensitive content before it is forwarded to
// an external language model. A scan applies the ordered library of pattern
// detectors, the bulk-data heuristic, and risk scoring in a single pass over
// the input.
package detect

import (
	"strings"
	"sync"
)

// Scanner applies the builtin detection tables to text. The zero value is not
// usable; construct instances with NewScanner or share the Default instance.
// Scanners hold no mutable state and are safe for concurrent use.
type Scanner struct {
	pii      []piiRule
	secrets  []secretRule
	families []familyRule
}

// NewScanner constructs a Scanner backed by the builtin pattern tables.
func NewScanner() *Scanner {
	return &Scanner{pii: piiRules, secrets: secretRules, families: familyRules}
}

var (
	defaultScanner     *Scanner
	defaultScannerOnce sync.Once
)

// Default returns the process-wide shared scanner.
func Default() *Scanner {
	defaultScannerOnce.Do(func() {
		defaultScanner = NewScanner()
	})
	return defaultScanner
}

// Analyze scans text and returns the ordered findings plus a risk
// classification. It is a pure function of its input: identical text always
// yields an identical Analysis, any input is accepted, and absence of matches
// is an empty result rather than an error.
//
// Findings are appended in scan order: PII families, secrets, then the SQL,
// XSS, jailbreak, and exfiltration families, then bulk data. They are never
// sorted or deduplicated; overlapping spans across categories are permitted.
func (s *Scanner) Analyze(text string) Analysis {
	var findings []Finding

	for _, rule := range s.pii {
		for _, span := range rule.expr.FindAllStringIndex(text, -1) {
			findings = append(findings, Finding{
				Category: rule.category,
				Start:    span[0],
				End:      span[1],
				Value:    text[span[0]:span[1]],
			})
		}
	}

	for _, rule := range s.secrets {
		for _, span := range rule.expr.FindAllStringIndex(text, -1) {
			findings = append(findings, Finding{
				Category: rule.category,
				Start:    span[0],
				End:      span[1],
				Value:    text[span[0]:span[1]],
			})
		}
	}

	// One finding per family at most; the first pattern in declaration order
	// that matches wins. Generalizing this to all matches would inflate the
	// downstream severity signal.
	for _, family := range s.families {
		for _, expr := range family.exprs {
			span := expr.FindStringIndex(text)
			if span == nil {
				continue
			}
			findings = append(findings, Finding{
				Category: family.category,
				Start:    span[0],
				End:      span[1],
				Value:    text[span[0]:span[1]],
			})
			break
		}
	}

	if bulk, ok := detectBulk(text); ok {
		findings = append(findings, bulk)
	}

	score, level := scoreFindings(text, findings)

	return Analysis{RiskLevel: level, Findings: findings, AnomalyScore: score}
}

// detectBulk applies the bulk-data heuristic: the text is bulk when more than
// 10 lines look like delimited rows, when explicit bulk phrasing appears, or
// when the total line count exceeds 50. The finding spans the whole text and
// carries the row-like line count (total line count when no line is
// row-like).
func detectBulk(text string) (Finding, bool) {
	if text == "" {
		return Finding{}, false
	}

	lines := strings.Split(text, "\n")
	rowLike := 0
	for _, line := range lines {
		if isRowLike(line) {
			rowLike++
		}
	}

	if rowLike <= 10 && !bulkPhrase.MatchString(text) && len(lines) <= 50 {
		return Finding{}, false
	}

	rows := rowLike
	if rows == 0 {
		rows = len(lines)
	}

	return Finding{
		Category: CategoryBulkData,
		Start:    0,
		End:      len(text),
		Rows:     rows,
	}, true
}

// isRowLike reports whether a line splits into more than 3 fields on commas,
// tabs, or multi-space column gaps.
func isRowLike(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.Count(trimmed, ",") >= 3 {
		return true
	}
	if strings.Count(trimmed, "\t") >= 3 {
		return true
	}
	return len(multiSpace.Split(trimmed, -1)) > 3
}
