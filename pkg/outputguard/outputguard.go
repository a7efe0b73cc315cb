// Package outputguard screens model responses before they reach the caller.
// It re-runs detection, checks for reversal of anonymized values, and flags
// meta-disclosure of the anonymization layer itself.
package outputguard

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/privata-ai/privata-oss/pkg/anonymize"
	"github.com/privata-ai/privata-oss/pkg/detect"
)

// Kind classifies an output finding.
type Kind string

const (
	// KindSensitiveInOutput marks raw sensitive data detected in the response.
	KindSensitiveInOutput Kind = "SENSITIVE_IN_OUTPUT"
	// KindReversalAttempt marks an anonymized original value, or a fragment of
	// one, reappearing in the response.
	KindReversalAttempt Kind = "REVERSAL_ATTEMPT"
	// KindSuspiciousPattern marks responses that talk about the anonymization
	// layer or echo placeholder tokens.
	KindSuspiciousPattern Kind = "SUSPICIOUS_PATTERN"
)

// Severity grades an output finding.
type Severity string

const (
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Finding is a single output-filter hit.
type Finding struct {
	Kind        Kind            `json:"kind"`
	Severity    Severity        `json:"severity"`
	Category    detect.Category `json:"category,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
	Partial     bool            `json:"partial,omitempty"`

	// match/replacement drive masking and never leave the package.
	match       string
	replacement string
}

// Report is the outcome of scanning one response. Text carries the original
// response when Safe, the masked rendition otherwise.
type Report struct {
	Safe     bool      `json:"safe"`
	Findings []Finding `json:"findings,omitempty"`
	Text     string    `json:"text"`
}

const redactedMark = "[REDACTED]"

// partialTokenMinLen drops short fragments (TLDs, initials) from the partial
// reversal check.
const partialTokenMinLen = 4

var (
	metaVocabulary = regexp.MustCompile(`(?i)\b(?:de-?anonymi[sz]\w*|anonymi[sz]\w*|pseudonymi[sz]\w*|placeholder(?:s)?|redact\w*|sanitiz\w*|original value(?:s)?)\b`)
	placeholderRef = regexp.MustCompile(`\b(?:EMAIL|PHONE|ID|CC|PASSPORT|CLIENT|COMPANY|ACCOUNT|ADDRESS|DATA|API_KEY)_[0-9]+\b`)
)

// ScanOutput runs all three checks against a model response. Checks always
// run to completion and accumulate findings; nothing short-circuits. The
// entity map snapshot comes from the session that anonymized the request.
func ScanOutput(text string, entities map[string]anonymize.Entry) Report {
	var findings []Finding

	analysis := detect.Default().Analyze(text)
	for _, f := range analysis.Findings {
		findings = append(findings, Finding{
			Kind:        KindSensitiveInOutput,
			Severity:    SeverityHigh,
			Category:    f.Category,
			match:       f.Value,
			replacement: redactedMark,
		})
	}

	findings = append(findings, reversalFindings(text, entities)...)

	if metaVocabulary.MatchString(text) || placeholderRef.MatchString(text) {
		findings = append(findings, Finding{
			Kind:     KindSuspiciousPattern,
			Severity: SeverityMedium,
		})
	}

	if len(findings) == 0 {
		return Report{Safe: true, Text: text}
	}

	masked := text
	for _, f := range findings {
		if f.match == "" {
			continue
		}
		masked = replaceFold(masked, f.match, f.replacement)
	}
	return Report{Safe: false, Findings: findings, Text: masked}
}

// reversalFindings walks entity map entries in placeholder order so the
// report and the masking sequence are deterministic.
func reversalFindings(text string, entities map[string]anonymize.Entry) []Finding {
	placeholders := make([]string, 0, len(entities))
	for placeholder := range entities {
		placeholders = append(placeholders, placeholder)
	}
	sort.Strings(placeholders)

	lower := strings.ToLower(text)

	var findings []Finding
	for _, placeholder := range placeholders {
		value := entities[placeholder].OriginalValue
		if value == "" {
			continue
		}

		if strings.Contains(lower, strings.ToLower(value)) {
			findings = append(findings, Finding{
				Kind:        KindReversalAttempt,
				Severity:    SeverityCritical,
				Placeholder: placeholder,
				match:       value,
				replacement: placeholder,
			})
		}

		for _, token := range valueTokens(value) {
			if strings.Contains(lower, strings.ToLower(token)) {
				findings = append(findings, Finding{
					Kind:        KindReversalAttempt,
					Severity:    SeverityCritical,
					Placeholder: placeholder,
					Partial:     true,
					match:       token,
					replacement: redactedMark,
				})
			}
		}
	}
	return findings
}

// valueTokens splits a value into the fragments the partial check looks for,
// deduplicated, in order of first appearance.
func valueTokens(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == '@' || r == '.' || r == '_' || r == '-' || unicode.IsSpace(r)
	})

	seen := make(map[string]bool, len(fields))
	var tokens []string
	for _, field := range fields {
		if len(field) < partialTokenMinLen {
			continue
		}
		key := strings.ToLower(field)
		if seen[key] {
			continue
		}
		seen[key] = true
		tokens = append(tokens, field)
	}
	return tokens
}

// replaceFold replaces every case-insensitive occurrence of literal. Folding
// relies on ToLower preserving byte offsets; if the text contains runes whose
// lowercase form changes length, it falls back to exact replacement.
func replaceFold(text, literal, replacement string) string {
	if literal == "" {
		return text
	}
	lowerText := strings.ToLower(text)
	lowerLit := strings.ToLower(literal)
	if len(lowerText) != len(text) {
		return strings.ReplaceAll(text, literal, replacement)
	}

	var b strings.Builder
	for {
		i := strings.Index(lowerText, lowerLit)
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		b.WriteString(replacement)
		text = text[i+len(lowerLit):]
		lowerText = lowerText[i+len(lowerLit):]
	}
}
