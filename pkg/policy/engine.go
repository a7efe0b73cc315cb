package policy

import "github.com/privata-ai/privata-oss/pkg/detect"

const bulkRowThreshold = 10

// Decide applies the baseline priority cascade to an analysis. The first
// matching rule wins:
//
//  1. HIGH risk or an exfiltration/jailbreak finding blocks.
//  2. Bulk data above the row threshold blocks regardless of role.
//  3. Small bulk with PII warns; employees get sanitization.
//  4. PII without bulk warns the same way.
//  5. LOW risk passes.
//  6. Residual MEDIUM risk warns.
//
// Decide is pure: it reads the analysis and subject, touches no shared
// state, and is safe for concurrent use. Tenant category overrides are
// applied on top by Intersect.
func Decide(analysis detect.Analysis, subject Subject) Decision {
	exfil := analysis.HasCategory(detect.CategoryExfiltration)
	jailbreak := analysis.HasCategory(detect.CategoryJailbreak)

	if analysis.RiskLevel == detect.RiskHigh || exfil || jailbreak {
		var reasons []Reason
		if exfil {
			reasons = append(reasons, ReasonExfilAttempt)
		}
		if jailbreak {
			reasons = append(reasons, ReasonJailbreakPattern)
		}
		if analysis.RiskLevel == detect.RiskHigh {
			reasons = append(reasons, ReasonHighRisk)
		}
		return Decision{
			Action:      ActionBlock,
			ReasonCodes: reasons,
			UserMessage: MessageFor(reasons[0]),
		}
	}

	hasBulk := analysis.HasCategory(detect.CategoryBulkData)
	rows := analysis.BulkRows()

	if hasBulk && rows > bulkRowThreshold {
		return Decision{
			Action:      ActionBlock,
			ReasonCodes: []Reason{ReasonBulkData},
			UserMessage: MessageFor(ReasonBulkData),
		}
	}

	if analysis.HasPII() {
		action := ActionWarnAndAllow
		if subject.Role == RoleEmployee {
			action = ActionWarnAndSanitize
		}
		return Decision{
			Action:      action,
			ReasonCodes: []Reason{ReasonPIIDetected},
			UserMessage: MessageFor(ReasonPIIDetected),
		}
	}

	if analysis.RiskLevel == detect.RiskLow {
		return Decision{Action: ActionAllow}
	}

	return Decision{
		Action:      ActionWarnAndAllow,
		ReasonCodes: []Reason{ReasonMediumRisk},
		UserMessage: MessageFor(ReasonMediumRisk),
	}
}

// Intersect tightens a baseline decision with a tenant's category rules. A
// tenant block on any detected category escalates to BLOCK; a warn upgrades
// a plain ALLOW to WARN_AND_ALLOW. Allow rules never downgrade the baseline.
func Intersect(base Decision, analysis detect.Analysis, rules CategoryPolicy) Decision {
	if len(rules) == 0 || base.Action == ActionBlock {
		return base
	}

	warned := false
	for _, finding := range analysis.Findings {
		switch rules[finding.Category] {
		case RuleBlock:
			return Decision{
				Action:      ActionBlock,
				ReasonCodes: append(base.ReasonCodes, ReasonTenantPolicy),
				UserMessage: MessageFor(ReasonTenantPolicy),
			}
		case RuleWarn:
			warned = true
		}
	}

	if warned && base.Action == ActionAllow {
		return Decision{
			Action:      ActionWarnAndAllow,
			ReasonCodes: append(base.ReasonCodes, ReasonTenantPolicy),
			UserMessage: MessageFor(ReasonTenantPolicy),
		}
	}

	return base
}
