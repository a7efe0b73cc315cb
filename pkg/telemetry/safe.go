package telemetry

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/privata-ai/privata-oss/pkg/detect"
	"github.com/privata-ai/privata-oss/pkg/outputguard"
	"github.com/privata-ai/privata-oss/pkg/policy"
)

// deniedAttributeKeys never leave the process regardless of where they were
// set; the filter is the last line of defense, not the primary control.
var deniedAttributeKeys = map[string]struct{}{
	"text":                 {},
	"request.text":         {},
	"response.text":        {},
	"finding.value":        {},
	"entity.value":         {},
	"entity.original":      {},
	"original_value":       {},
	"sanitized_text":       {},
	"user_message_content": {},
}

// SanitizeAttributes drops deny-listed keys and any key that names a raw
// value. It returns a fresh slice and leaves the input untouched.
func SanitizeAttributes(attrs []attribute.KeyValue) []attribute.KeyValue {
	if len(attrs) == 0 {
		return attrs
	}

	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		key := string(kv.Key)
		if _, denied := deniedAttributeKeys[key]; denied {
			continue
		}
		if strings.HasSuffix(key, ".value") || strings.HasSuffix(key, ".text") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// AnalysisAttributes summarizes a detection result as category tags and
// counts only.
func AnalysisAttributes(analysis detect.Analysis) []attribute.KeyValue {
	categories := make([]string, 0, len(analysis.Findings))
	seen := make(map[detect.Category]bool, len(analysis.Findings))
	for _, f := range analysis.Findings {
		if seen[f.Category] {
			continue
		}
		seen[f.Category] = true
		categories = append(categories, string(f.Category))
	}

	return []attribute.KeyValue{
		attribute.String("detect.risk_level", string(analysis.RiskLevel)),
		attribute.Int("detect.anomaly_score", analysis.AnomalyScore),
		attribute.Int("detect.findings.count", len(analysis.Findings)),
		attribute.StringSlice("detect.findings.categories", categories),
	}
}

// RecordDecision annotates a span with the policy outcome.
func RecordDecision(span trace.Span, decision policy.Decision) {
	if span == nil || !span.IsRecording() {
		return
	}

	reasons := make([]string, len(decision.ReasonCodes))
	for i, r := range decision.ReasonCodes {
		reasons[i] = string(r)
	}

	span.SetAttributes(
		attribute.String("policy.decision.action", string(decision.Action)),
		attribute.StringSlice("policy.decision.reasons", reasons),
	)
	if decision.Blocked() {
		span.AddEvent("policy.blocked")
	}
}

// RecordOutputReport annotates a span with output-filter results, kinds and
// counts only.
func RecordOutputReport(span trace.Span, report outputguard.Report) {
	if span == nil || !span.IsRecording() {
		return
	}

	kinds := make([]string, 0, len(report.Findings))
	seen := make(map[outputguard.Kind]bool, len(report.Findings))
	for _, f := range report.Findings {
		if seen[f.Kind] {
			continue
		}
		seen[f.Kind] = true
		kinds = append(kinds, string(f.Kind))
	}

	span.SetAttributes(
		attribute.Bool("output.safe", report.Safe),
		attribute.Int("output.findings.count", len(report.Findings)),
		attribute.StringSlice("output.findings.kinds", kinds),
	)
}
