// Package policy turns a detection analysis plus tenant rules into a single
// enforcement decision via a deterministic priority cascade.
package policy

import "github.com/privata-ai/privata-oss/pkg/detect"

// Action is the enforcement outcome of a policy decision.
type Action string

const (
	// ActionAllow forwards the text untouched.
	ActionAllow Action = "ALLOW"
	// ActionWarnAndAllow forwards the text untouched but surfaces a warning.
	ActionWarnAndAllow Action = "WARN_AND_ALLOW"
	// ActionWarnAndSanitize forwards the anonymized text and surfaces a warning.
	ActionWarnAndSanitize Action = "WARN_AND_SANITIZE"
	// ActionBlock rejects the request outright.
	ActionBlock Action = "BLOCK"
)

// Reason identifies why a decision was taken. Decisions carry reasons in
// priority order.
type Reason string

const (
	ReasonExfilAttempt     Reason = "EXFIL_ATTEMPT"
	ReasonJailbreakPattern Reason = "JAILBREAK_PATTERN"
	ReasonHighRisk         Reason = "HIGH_RISK"
	ReasonBulkData         Reason = "BULK_DATA"
	ReasonPIIDetected      Reason = "PII_DETECTED"
	ReasonMediumRisk       Reason = "MEDIUM_RISK"
	ReasonTenantPolicy     Reason = "TENANT_POLICY"
)

// Decision is the outcome of the cascade for one request.
type Decision struct {
	Action      Action   `json:"action"`
	ReasonCodes []Reason `json:"reason_codes,omitempty"`
	UserMessage string   `json:"user_message,omitempty"`
}

// Blocked reports whether the decision rejects the request.
func (d Decision) Blocked() bool {
	return d.Action == ActionBlock
}

// Subject describes the requesting principal as supplied by the caller.
type Subject struct {
	TenantID string
	Role     string
}

// RoleEmployee receives sanitize-instead-of-allow treatment for PII.
const RoleEmployee = "employee"

// RuleAction is a tenant-level per-category directive, consumed read-only.
type RuleAction string

const (
	RuleAllow RuleAction = "allow"
	RuleWarn  RuleAction = "warn"
	RuleBlock RuleAction = "block"
)

// CategoryPolicy maps categories to tenant directives. Tenant rules can only
// tighten the baseline cascade, never loosen it.
type CategoryPolicy map[detect.Category]RuleAction

// userMessages carries the fixed per-reason user-facing text.
var userMessages = map[Reason]string{
	ReasonExfilAttempt:     "This request looks like an attempt to extract bulk data and was blocked.",
	ReasonJailbreakPattern: "This request contains instructions that attempt to override safety controls and was blocked.",
	ReasonHighRisk:         "This request was blocked because it contains high-risk content.",
	ReasonBulkData:         "Bulk data transfers are not permitted. Remove the records and try again.",
	ReasonPIIDetected:      "Personal data was detected. Sensitive values are masked before leaving the organization.",
	ReasonMediumRisk:       "This request contains potentially sensitive content. Proceed with care.",
	ReasonTenantPolicy:     "Your organization's policy restricts content in this request.",
}

// MessageFor returns the fixed user message for a reason.
func MessageFor(r Reason) string {
	return userMessages[r]
}
