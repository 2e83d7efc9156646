package analytics

import (
	"fmt"
	"sync"
	"time"

	"batch-health/internal/models"
	"batch-health/internal/zones"

	"github.com/google/uuid"
)

const defaultRiskWindow = 100

type Analyzer struct {
	riskWindow int
	risks      []models.ZoneResult
	stats      models.AnalyticsStats
	now        func() time.Time
	mu         sync.RWMutex
}

func NewAnalyzer(riskWindow int) *Analyzer {
	if riskWindow <= 0 {
		riskWindow = defaultRiskWindow
	}
	return &Analyzer{
		riskWindow: riskWindow,
		risks:      make([]models.ZoneResult, 0, riskWindow),
		now:        time.Now,
		stats: models.AnalyticsStats{
			ZoneCounts:    make(map[models.Zone]int64),
			RecentRiskCap: riskWindow,
		},
	}
}

// Analyze classifies one uploaded sheet and folds it into the running stats.
func (a *Analyzer) Analyze(title, ruleName string, rule models.ZoneRule, points []models.MetricPoint) (models.Report, error) {
	strategy, err := zones.NewStrategy(rule)
	if err != nil {
		return models.Report{}, fmt.Errorf("invalid rule %q: %w", ruleName, err)
	}

	results, err := zones.BuildComparisonSeries(points, strategy)
	if err != nil {
		return models.Report{}, err
	}

	report := models.Report{
		ID:        uuid.NewString(),
		Title:     title,
		RuleName:  ruleName,
		Rule:      strategy.Rule(),
		CreatedAt: a.now().UTC(),
		Results:   results,
		Summary:   Summarize(results),
	}

	a.record(report)
	return report, nil
}

func (a *Analyzer) record(report models.Report) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalReports++
	a.stats.LastReportID = report.ID

	for _, r := range report.Results {
		a.stats.TotalPoints++
		a.stats.ZoneCounts[r.Zone]++

		if r.Zone == models.ZoneRisk {
			a.stats.LastRiskTime = report.CreatedAt
			a.risks = append(a.risks, r)
			if len(a.risks) > a.riskWindow {
				a.risks = a.risks[1:]
			}
		}
	}

	if a.stats.TotalPoints > 0 {
		a.stats.RiskRate = float64(a.stats.ZoneCounts[models.ZoneRisk]) / float64(a.stats.TotalPoints)
	}
}

// Summarize counts zones and averages both weeks.
func Summarize(results []models.ZoneResult) models.ReportSummary {
	var s models.ReportSummary
	if len(results) == 0 {
		return s
	}

	prev := make([]float64, len(results))
	cur := make([]float64, len(results))
	for i, r := range results {
		switch r.Zone {
		case models.ZoneHealthy:
			s.Healthy++
		case models.ZoneWatch:
			s.Watch++
		case models.ZoneRisk:
			s.Risk++
		}
		prev[i] = r.Previous
		cur[i] = r.Current
	}
	s.MeanPrevious = zones.Mean(prev)
	s.MeanCurrent = zones.Mean(cur)
	return s
}

func (a *Analyzer) GetCurrentStats() models.AnalyticsStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	stats.ZoneCounts = make(map[models.Zone]int64, len(a.stats.ZoneCounts))
	for k, v := range a.stats.ZoneCounts {
		stats.ZoneCounts[k] = v
	}
	return stats
}

func (a *Analyzer) GetRecentRisks(limit int) []models.ZoneResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if limit <= 0 || limit > len(a.risks) {
		limit = len(a.risks)
	}

	start := len(a.risks) - limit
	out := make([]models.ZoneResult, limit)
	copy(out, a.risks[start:])
	return out
}
