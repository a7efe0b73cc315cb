package outputguard

import (
	"strings"
	"testing"

	"github.com/privata-ai/privata-oss/pkg/anonymize"
	"github.com/privata-ai/privata-oss/pkg/detect"
)

func TestScanOutput_CleanTextIsSafe(t *testing.T) {
	report := ScanOutput("The quarterly report looks fine.", nil)

	if !report.Safe {
		t.Fatalf("expected safe, got findings %v", report.Findings)
	}
	if report.Text != "The quarterly report looks fine." {
		t.Fatalf("safe reports must return the text unchanged, got %q", report.Text)
	}
}

func TestScanOutput_SensitiveDataRedacted(t *testing.T) {
	report := ScanOutput("Reach me at jane@firm.com tomorrow.", nil)

	if report.Safe {
		t.Fatal("expected unsafe report")
	}
	if len(report.Findings) != 1 {
		t.Fatalf("expected one finding, got %v", report.Findings)
	}
	f := report.Findings[0]
	if f.Kind != KindSensitiveInOutput || f.Severity != SeverityHigh || f.Category != detect.CategoryEmail {
		t.Fatalf("unexpected finding %+v", f)
	}
	if report.Text != "Reach me at [REDACTED] tomorrow." {
		t.Fatalf("unexpected masked text %q", report.Text)
	}
}

func TestScanOutput_FullReversalRestoresPlaceholder(t *testing.T) {
	entities := map[string]anonymize.Entry{
		"CLIENT_1": {OriginalValue: "Margaret Voss", Category: detect.CategoryPersonName},
	}

	report := ScanOutput("The client is MARGARET VOSS per our records.", entities)

	if report.Safe {
		t.Fatal("expected unsafe report")
	}
	var full *Finding
	for i := range report.Findings {
		if report.Findings[i].Kind == KindReversalAttempt && !report.Findings[i].Partial {
			full = &report.Findings[i]
		}
	}
	if full == nil {
		t.Fatalf("expected a full reversal finding, got %v", report.Findings)
	}
	if full.Severity != SeverityCritical || full.Placeholder != "CLIENT_1" {
		t.Fatalf("unexpected finding %+v", full)
	}
	if !strings.Contains(report.Text, "CLIENT_1") {
		t.Fatalf("full reversal must restore the placeholder, got %q", report.Text)
	}
	if strings.Contains(strings.ToLower(report.Text), "margaret") {
		t.Fatalf("original value leaked: %q", report.Text)
	}
}

func TestScanOutput_PartialReversalRedacted(t *testing.T) {
	entities := map[string]anonymize.Entry{
		"EMAIL_1": {OriginalValue: "margaret.voss@firm.com", Category: detect.CategoryEmail},
	}

	report := ScanOutput("I believe the user goes by Margaret.", entities)

	if report.Safe {
		t.Fatal("expected unsafe report")
	}
	f := report.Findings[0]
	if f.Kind != KindReversalAttempt || !f.Partial {
		t.Fatalf("expected partial reversal, got %+v", f)
	}
	if strings.Contains(strings.ToLower(report.Text), "margaret") {
		t.Fatalf("partial fragment leaked: %q", report.Text)
	}
	if !strings.Contains(report.Text, "[REDACTED]") {
		t.Fatalf("expected [REDACTED] mask, got %q", report.Text)
	}
}

func TestScanOutput_ShortTokensIgnored(t *testing.T) {
	entities := map[string]anonymize.Entry{
		"EMAIL_1": {OriginalValue: "a.bo@x.io", Category: detect.CategoryEmail},
	}

	report := ScanOutput("The tab above shows totals.", entities)

	if !report.Safe {
		t.Fatalf("tokens of three or fewer chars must not trigger, got %v", report.Findings)
	}
}

func TestScanOutput_MetaDisclosureFlagged(t *testing.T) {
	for _, text := range []string{
		"The value EMAIL_1 was provided in the prompt.",
		"Some details appear to have been anonymized before I saw them.",
	} {
		report := ScanOutput(text, nil)
		if report.Safe {
			t.Fatalf("%q: expected SUSPICIOUS_PATTERN", text)
		}
		f := report.Findings[0]
		if f.Kind != KindSuspiciousPattern || f.Severity != SeverityMedium {
			t.Fatalf("%q: unexpected finding %+v", text, f)
		}
		// Meta findings carry no mask target, so the text survives.
		if report.Text != text {
			t.Fatalf("%q: meta findings must not rewrite text, got %q", text, report.Text)
		}
	}
}

func TestScanOutput_ChecksAccumulate(t *testing.T) {
	entities := map[string]anonymize.Entry{
		"EMAIL_1": {OriginalValue: "john@example.com", Category: detect.CategoryEmail},
	}

	report := ScanOutput("The anonymized address was john@example.com.", entities)

	kinds := map[Kind]bool{}
	for _, f := range report.Findings {
		kinds[f.Kind] = true
	}
	for _, want := range []Kind{KindSensitiveInOutput, KindReversalAttempt, KindSuspiciousPattern} {
		if !kinds[want] {
			t.Fatalf("missing %s in %v", want, report.Findings)
		}
	}
}

func TestScanOutput_KnownOriginalValueIsUnsafe(t *testing.T) {
	entities := map[string]anonymize.Entry{
		"EMAIL_1": {OriginalValue: "john@example.com", Category: detect.CategoryEmail},
	}

	report := ScanOutput("Contact john@example.com", entities)

	if report.Safe {
		t.Fatal("expected safe=false")
	}
	// Detection masks first in accumulation order, so the reversal
	// replacement finds nothing left to restore.
	if report.Text != "Contact [REDACTED]" {
		t.Fatalf("unexpected masked text %q", report.Text)
	}
}

func TestScanOutput_MaskingIsCaseInsensitive(t *testing.T) {
	entities := map[string]anonymize.Entry{
		"COMPANY_1": {OriginalValue: "Initech", Category: detect.CategoryCompanyName},
	}

	report := ScanOutput("INITECH and initech and InItEcH", entities)

	if report.Text != "COMPANY_1 and COMPANY_1 and COMPANY_1" {
		t.Fatalf("unexpected masked text %q", report.Text)
	}
}
