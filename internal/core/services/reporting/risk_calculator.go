package reporting

import (
	"math"
	"sort"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

// RiskCalculator provides methods for calculating tracking risk scores
type RiskCalculator struct{}

// NewRiskCalculator creates a new risk calculator instance
func NewRiskCalculator() *RiskCalculator {
	return &RiskCalculator{}
}

// severity maps a threat level onto 0-10.
func severity(level domain.ThreatLevel) float64 {
	return float64(level) * 2.5
}

// Findings flattens the alerts and correlated threats of a report into
// findings, one per alert and one per lens on each correlated threat.
func (rc *RiskCalculator) Findings(report domain.IncidentReport) []domain.Finding {
	var out []domain.Finding
	for _, a := range report.Alerts {
		out = append(out, domain.Finding{Kind: string(a.Type), SubjectID: a.DeviceID, ThreatLevel: a.ThreatLevel})
	}
	for _, t := range report.CorrelatedThreats {
		kinds := map[string]bool{domain.FindingCorrelatedActivity: true}
		for _, d := range t.Detections {
			if p, ok := d.RF(); ok && p.GPSTracker {
				kinds[domain.FindingGPSTracker] = true
			}
			if p, ok := d.WiFi(); ok && p.Pattern != "" {
				kinds[domain.FindingSuspiciousHotspot] = true
			}
			if p, ok := d.Ultrasonic(); ok && p.Beacon != "" {
				kinds[domain.FindingUltrasonicBeacon] = true
			}
		}
		for k := range kinds {
			out = append(out, domain.Finding{Kind: k, SubjectID: t.ID, ThreatLevel: t.ThreatLevel})
		}
	}
	return out
}

// CalculateOverallRisk calculates the overall risk score (0-10) from the
// findings and the number of distinct subjects behind them.
func (rc *RiskCalculator) CalculateOverallRisk(findings []domain.Finding) float64 {
	if len(findings) == 0 {
		return 0.0
	}

	subjects := make(map[string]bool)
	var worst, total float64
	for _, f := range findings {
		s := severity(f.ThreatLevel)
		total += s
		worst = math.Max(worst, s)
		subjects[f.SubjectID] = true
	}

	// A single critical tracker is enough to dominate; the average only
	// tempers it.
	base := 0.7*worst + 0.3*(total/float64(len(findings)))

	// 1.0 for one subject, up to 1.5 for five or more.
	subjectFactor := 1.0 + math.Min(float64(len(subjects)-1)/8.0, 0.5)

	return math.Min(base*subjectFactor, 10.0)
}

// GetRiskLevel converts numeric score to human-readable level
func (rc *RiskCalculator) GetRiskLevel(score float64) string {
	switch {
	case score >= 8.0:
		return "Critical"
	case score >= 6.0:
		return "High"
	case score >= 4.0:
		return "Medium"
	default:
		return "Low"
	}
}

// CalculateTopRisks groups findings by kind and ranks the groups.
func (rc *RiskCalculator) CalculateTopRisks(findings []domain.Finding, limit int) []domain.RiskItem {
	type group struct {
		level    domain.ThreatLevel
		subjects map[string]bool
	}
	groups := make(map[string]*group)
	for _, f := range findings {
		g, ok := groups[f.Kind]
		if !ok {
			g = &group{subjects: make(map[string]bool)}
			groups[f.Kind] = g
		}
		g.level = domain.MaxThreatLevel(g.level, f.ThreatLevel)
		g.subjects[f.SubjectID] = true
	}

	risks := make([]domain.RiskItem, 0, len(groups))
	for kind, g := range groups {
		n := len(g.subjects)
		risks = append(risks, domain.RiskItem{
			Kind:            kind,
			ThreatLevel:     g.level,
			AffectedDevices: n,
			Impact:          rc.getImpactLevel(g.level),
			Likelihood:      rc.getLikelihoodLevel(n),
			RiskScore:       severity(g.level) * float64(n),
		})
	}

	sort.Slice(risks, func(i, j int) bool {
		if risks[i].RiskScore != risks[j].RiskScore {
			return risks[i].RiskScore > risks[j].RiskScore
		}
		return risks[i].Kind < risks[j].Kind
	})

	if limit > 0 && len(risks) > limit {
		risks = risks[:limit]
	}
	for i := range risks {
		risks[i].Rank = i + 1
	}
	return risks
}

func (rc *RiskCalculator) getImpactLevel(level domain.ThreatLevel) string {
	switch {
	case level >= domain.ThreatCritical:
		return "Severe - Location actively exposed"
	case level >= domain.ThreatHigh:
		return "High - Movements likely recorded"
	case level >= domain.ThreatMedium:
		return "Medium - Possible profiling"
	default:
		return "Low - Minimal exposure"
	}
}

func (rc *RiskCalculator) getLikelihoodLevel(affected int) string {
	switch {
	case affected >= 5:
		return "Very High - Many sources"
	case affected >= 3:
		return "High - Multiple sources"
	case affected >= 2:
		return "Medium - Several sources"
	default:
		return "Low - Single source"
	}
}
