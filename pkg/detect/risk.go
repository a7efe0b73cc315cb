package detect

// Anomaly score weights. The score saturates at 100.
const (
	weightPerFinding    = 5
	findingCountCeiling = 6
	weightHighRisk      = 25
	weightManyCats      = 15
	weightLongDense     = 10

	highScoreThreshold   = 70
	mediumScoreThreshold = 40

	longTextThreshold     = 1000
	denseFindingThreshold = 5
	manyCategoryThreshold = 3
)

// scoreFindings computes the anomaly score and risk level for one scan.
func scoreFindings(text string, findings []Finding) (int, RiskLevel) {
	n := len(findings)

	capped := n
	if capped > findingCountCeiling {
		capped = findingCountCeiling
	}

	highRisk := 0
	hasBulk := false
	distinct := make(map[Category]struct{}, n)
	for _, f := range findings {
		distinct[f.Category] = struct{}{}
		if f.Category.IsInjection() || f.Category.IsSecret() {
			highRisk++
		}
		if f.Category == CategoryBulkData {
			hasBulk = true
		}
	}

	score := weightPerFinding*capped + weightHighRisk*highRisk
	if len(distinct) > manyCategoryThreshold {
		score += weightManyCats
	}
	if len(text) > longTextThreshold && n > denseFindingThreshold {
		score += weightLongDense
	}
	if score > 100 {
		score = 100
	}

	switch {
	case highRisk > 0 || score >= highScoreThreshold:
		return score, RiskHigh
	case n > 0 || hasBulk || score >= mediumScoreThreshold:
		return score, RiskMedium
	default:
		return score, RiskLow
	}
}
