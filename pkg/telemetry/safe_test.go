package telemetry

import (
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/privata-ai/privata-oss/pkg/detect"
)

func TestSanitizeAttributes_DropsDeniedKeys(t *testing.T) {
	attrs := []attribute.KeyValue{
		attribute.String("text", "raw request body"),
		attribute.String("finding.value", "jane@firm.com"),
		attribute.String("entity.original", "123-45-6789"),
		attribute.String("detect.risk_level", "MEDIUM"),
		attribute.Int("detect.findings.count", 2),
	}

	out := SanitizeAttributes(attrs)

	if len(out) != 2 {
		t.Fatalf("expected two surviving attributes, got %v", out)
	}
	for _, kv := range out {
		if kv.Key != "detect.risk_level" && kv.Key != "detect.findings.count" {
			t.Fatalf("unexpected survivor %s", kv.Key)
		}
	}
}

func TestSanitizeAttributes_DropsValueSuffixedKeys(t *testing.T) {
	out := SanitizeAttributes([]attribute.KeyValue{
		attribute.String("custom.entity.value", "secret"),
		attribute.String("upstream.response.text", "body"),
		attribute.String("custom.count", "3"),
	})

	if len(out) != 1 || out[0].Key != "custom.count" {
		t.Fatalf("suffix filter failed: %v", out)
	}
}

// Matched values must never appear in analysis attributes, whatever the
// finding contents are.
func TestAnalysisAttributes_CarryNoValues(t *testing.T) {
	analysis := detect.Analysis{
		RiskLevel:    detect.RiskMedium,
		AnomalyScore: 35,
		Findings: []detect.Finding{
			{Category: detect.CategoryEmail, Value: "jane@firm.com", Start: 0, End: 13},
			{Category: detect.CategorySSN, Value: "123-45-6789", Start: 20, End: 31},
		},
	}

	for _, kv := range AnalysisAttributes(analysis) {
		encoded := kv.Value.Emit()
		if strings.Contains(encoded, "jane@firm.com") || strings.Contains(encoded, "123-45-6789") {
			t.Fatalf("attribute %s leaked a finding value: %s", kv.Key, encoded)
		}
	}
}

func TestAnalysisAttributes_DeduplicateCategories(t *testing.T) {
	analysis := detect.Analysis{
		RiskLevel: detect.RiskMedium,
		Findings: []detect.Finding{
			{Category: detect.CategoryEmail, Value: "a@b.co"},
			{Category: detect.CategoryEmail, Value: "c@d.co"},
		},
	}

	for _, kv := range AnalysisAttributes(analysis) {
		if kv.Key == "detect.findings.categories" {
			if got := kv.Value.AsStringSlice(); len(got) != 1 || got[0] != "EMAIL" {
				t.Fatalf("expected single EMAIL tag, got %v", got)
			}
			return
		}
	}
	t.Fatal("missing categories attribute")
}
