package anonymize

import (
	"fmt"

	"github.com/privata-ai/privata-oss/pkg/detect"
)

// Entry links a placeholder back to the value it replaced.
type Entry struct {
	OriginalValue string          `json:"original_value"`
	Category      detect.Category `json:"category"`
}

// EntityMap is the session-scoped table mapping placeholders (EMAIL_1,
// CC_2, ...) to original values so a Q&A flow can rehydrate context. It is
// value-keyed: identical value text always maps to the same placeholder, and
// per-prefix counters only ever increase for the lifetime of the map.
//
// An EntityMap is not synchronized; the owning session store serializes
// access.
type EntityMap struct {
	entries  map[string]Entry
	byValue  map[string]string
	counters map[string]int
}

// NewEntityMap returns an empty map.
func NewEntityMap() *EntityMap {
	return &EntityMap{
		entries:  make(map[string]Entry),
		byValue:  make(map[string]string),
		counters: make(map[string]int),
	}
}

// BuildEntityMap walks findings in scan order and assigns placeholders to
// every distinct matched value.
func BuildEntityMap(findings []detect.Finding) *EntityMap {
	m := NewEntityMap()
	m.Extend(findings)
	return m
}

// Extend registers any not-yet-seen values from findings, continuing the
// existing per-prefix counters. Findings without a matched value (such as
// BULK_DATA) contribute nothing.
func (m *EntityMap) Extend(findings []detect.Finding) {
	for _, f := range findings {
		if f.Value == "" {
			continue
		}
		if _, seen := m.byValue[f.Value]; seen {
			continue
		}
		prefix := counterPrefix(f.Category)
		m.counters[prefix]++
		placeholder := fmt.Sprintf("%s_%d", prefix, m.counters[prefix])
		m.entries[placeholder] = Entry{OriginalValue: f.Value, Category: f.Category}
		m.byValue[f.Value] = placeholder
	}
}

// Lookup resolves a placeholder.
func (m *EntityMap) Lookup(placeholder string) (Entry, bool) {
	entry, ok := m.entries[placeholder]
	return entry, ok
}

// PlaceholderFor returns the placeholder assigned to a value.
func (m *EntityMap) PlaceholderFor(value string) (string, bool) {
	placeholder, ok := m.byValue[value]
	return placeholder, ok
}

// Len returns the number of mapped values.
func (m *EntityMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Snapshot returns a copy of the placeholder table. Callers may hand the
// copy to the output filter without racing concurrent extensions.
func (m *EntityMap) Snapshot() map[string]Entry {
	if m == nil {
		return map[string]Entry{}
	}
	out := make(map[string]Entry, len(m.entries))
	for placeholder, entry := range m.entries {
		out[placeholder] = entry
	}
	return out
}

// counterPrefix selects the placeholder prefix for a category. Categories
// outside the fixed prefix table share the DATA prefix.
func counterPrefix(c detect.Category) string {
	switch c {
	case detect.CategoryEmail:
		return "EMAIL"
	case detect.CategoryPhone:
		return "PHONE"
	case detect.CategorySSN:
		return "ID"
	case detect.CategoryCreditCard:
		return "CC"
	case detect.CategoryPassport:
		return "PASSPORT"
	case detect.CategoryPersonName:
		return "CLIENT"
	case detect.CategoryCompanyName:
		return "COMPANY"
	case detect.CategoryIBAN:
		return "ACCOUNT"
	case detect.CategoryAddress:
		return "ADDRESS"
	default:
		return "DATA"
	}
}
