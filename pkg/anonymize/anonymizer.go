// Package anonymize rewrites text so that detected sensitive values are
// replaced with category placeholders before the text leaves the trust
// boundary, and maintains the session-scoped entity map that links
// placeholders back to original values.
package anonymize

import (
	"sort"
	"unicode"

	"github.com/privata-ai/privata-oss/pkg/detect"
)

// Summary describes what a sanitization pass removed.
type Summary struct {
	// RemovedCategories holds the categories that had at least one span
	// substituted.
	RemovedCategories map[detect.Category]bool `json:"removed_categories"`
	// BulkDataHandled is set when a BULK_DATA finding with a row count above
	// 10 was present. No partial redaction is performed for bulk data; full
	// blocking is the policy engine's responsibility.
	BulkDataHandled bool `json:"bulk_data_handled"`
}

// Result is the outcome of one sanitization pass.
type Result struct {
	SanitizedText string  `json:"sanitized_text"`
	Changed       bool    `json:"changed"`
	Summary       Summary `json:"summary"`
}

const bulkRowThreshold = 10

// Placeholder returns the literal bracket placeholder substituted for a
// category. Every key/secret variant collapses into [API_KEY]; any other
// category maps to its own name in brackets.
func Placeholder(c detect.Category) string {
	if c.IsSecret() {
		return "[API_KEY]"
	}
	return "[" + string(c) + "]"
}

// Anonymize substitutes data-disclosure findings in text with category
// placeholders. Spans are applied rightmost-first so the offsets of earlier,
// unprocessed findings stay valid. BULK_DATA and the injection families are
// report-only and never substituted.
//
// Malformed spans are clamped into range rather than rejected: silently
// forwarding unredacted text on bad finding data would defeat the purpose of
// the layer. Overlapping spans from different categories are not
// interval-merged; a later-processed span may corrupt the offsets of an
// unprocessed, spatially overlapping finding.
func Anonymize(text string, findings []detect.Finding) Result {
	result := Result{
		SanitizedText: text,
		Summary:       Summary{RemovedCategories: map[detect.Category]bool{}},
	}

	ordered := make([]detect.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	out := text
	for _, f := range ordered {
		if f.Category == detect.CategoryBulkData {
			if f.Rows > bulkRowThreshold {
				result.Summary.BulkDataHandled = true
			}
			continue
		}
		if f.Category.IsInjection() {
			continue
		}

		start, end := clampSpan(f.Start, f.End, len(out))
		if start == end {
			continue
		}

		replacement := Placeholder(f.Category)
		// Keep a space between the placeholder and a directly adjoining
		// token so substitutions do not fuse with trailing text.
		if end < len(out) && !unicode.IsSpace(rune(out[end])) {
			replacement += " "
		}

		out = out[:start] + replacement + out[end:]
		result.Summary.RemovedCategories[f.Category] = true
		result.Changed = true
	}

	result.SanitizedText = out
	return result
}

// clampSpan forces a half-open span into [0, limit].
func clampSpan(start, end, limit int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > limit {
		start = limit
	}
	if end < start {
		end = start
	}
	if end > limit {
		end = limit
	}
	return start, end
}
