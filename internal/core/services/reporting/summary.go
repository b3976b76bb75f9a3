package reporting

import "github.com/lcalzada-xor/tailwatch/internal/core/domain"

const topRiskLimit = 5

// Summarizer fills the risk overview of an incident report.
type Summarizer struct {
	riskCalc    *RiskCalculator
	recommender *RecommendationEngine
}

// NewSummarizer creates a summarizer.
func NewSummarizer() *Summarizer {
	return &Summarizer{
		riskCalc:    NewRiskCalculator(),
		recommender: NewRecommendationEngine(),
	}
}

// Summarize scores the report and attaches ranked risks and recommendations.
func (s *Summarizer) Summarize(report *domain.IncidentReport) {
	findings := s.riskCalc.Findings(*report)
	report.RiskScore = s.riskCalc.CalculateOverallRisk(findings)
	report.RiskLevel = s.riskCalc.GetRiskLevel(report.RiskScore)
	report.TopRisks = s.riskCalc.CalculateTopRisks(findings, topRiskLimit)
	report.Recommendations = s.recommender.GenerateRecommendations(report.TopRisks)
}
