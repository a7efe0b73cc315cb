package anonymize

import (
	"testing"

	"github.com/privata-ai/privata-oss/pkg/detect"
)

func TestBuildEntityMap_AssignsPrefixedCounters(t *testing.T) {
	findings := []detect.Finding{
		{Category: detect.CategoryEmail, Value: "jane@firm.com"},
		{Category: detect.CategoryEmail, Value: "bob@firm.com"},
		{Category: detect.CategorySSN, Value: "123-45-6789"},
		{Category: detect.CategoryCreditCard, Value: "4111 1111 1111 1111"},
		{Category: detect.CategoryTaxID, Value: "12-3456789"},
	}

	m := BuildEntityMap(findings)

	cases := map[string]string{
		"EMAIL_1": "jane@firm.com",
		"EMAIL_2": "bob@firm.com",
		"ID_1":    "123-45-6789",
		"CC_1":    "4111 1111 1111 1111",
		"DATA_1":  "12-3456789",
	}
	for placeholder, value := range cases {
		entry, ok := m.Lookup(placeholder)
		if !ok {
			t.Fatalf("missing placeholder %s", placeholder)
		}
		if entry.OriginalValue != value {
			t.Fatalf("%s: expected %q, got %q", placeholder, value, entry.OriginalValue)
		}
	}
}

func TestBuildEntityMap_IdenticalValuesShareOnePlaceholder(t *testing.T) {
	findings := []detect.Finding{
		{Category: detect.CategoryEmail, Value: "jane@firm.com"},
		{Category: detect.CategoryEmail, Value: "jane@firm.com"},
		{Category: detect.CategoryNumericID, Value: "jane@firm.com"},
	}

	m := BuildEntityMap(findings)

	if m.Len() != 1 {
		t.Fatalf("expected exactly one entry, got %d", m.Len())
	}
	placeholder, ok := m.PlaceholderFor("jane@firm.com")
	if !ok || placeholder != "EMAIL_1" {
		t.Fatalf("expected EMAIL_1, got %q", placeholder)
	}
}

func TestEntityMap_ExtendContinuesCounters(t *testing.T) {
	m := BuildEntityMap([]detect.Finding{
		{Category: detect.CategoryEmail, Value: "jane@firm.com"},
	})

	m.Extend([]detect.Finding{
		{Category: detect.CategoryEmail, Value: "bob@firm.com"},
		{Category: detect.CategoryEmail, Value: "jane@firm.com"},
	})

	placeholder, ok := m.PlaceholderFor("bob@firm.com")
	if !ok || placeholder != "EMAIL_2" {
		t.Fatalf("expected counter to continue at EMAIL_2, got %q", placeholder)
	}
	if m.Len() != 2 {
		t.Fatalf("expected two entries, got %d", m.Len())
	}
}

func TestEntityMap_SkipsValuelessFindings(t *testing.T) {
	m := BuildEntityMap([]detect.Finding{
		{Category: detect.CategoryBulkData, Rows: 60},
	})
	if m.Len() != 0 {
		t.Fatalf("expected empty map, got %d entries", m.Len())
	}
}

func TestEntityMap_SnapshotIsDetached(t *testing.T) {
	m := BuildEntityMap([]detect.Finding{
		{Category: detect.CategoryEmail, Value: "jane@firm.com"},
	})

	snapshot := m.Snapshot()
	m.Extend([]detect.Finding{
		{Category: detect.CategoryEmail, Value: "bob@firm.com"},
	})

	if len(snapshot) != 1 {
		t.Fatalf("snapshot must not observe later extensions, got %d entries", len(snapshot))
	}
}
