package models

import (
	"fmt"
	"math"
	"time"
)

// MetricPoint is one category row: the share of batches for the prior
// and the current week.
type MetricPoint struct {
	Label    string  `json:"label" validate:"required"`
	Previous float64 `json:"previous" validate:"gte=0"`
	Current  float64 `json:"current" validate:"gte=0"`
}

// Sensitivity is the resolved trend band pair. Strong of zero means a
// single band.
type Sensitivity struct {
	Mild   float64 `json:"mild" yaml:"mild"`
	Strong float64 `json:"strong,omitempty" yaml:"strong,omitempty"`
}

// SensitivityRule is the configured form of Sensitivity. A nil field is
// unset and takes the default; an explicit 0 stays 0.
type SensitivityRule struct {
	Mild   *float64 `json:"mild,omitempty" yaml:"mild,omitempty"`
	Strong *float64 `json:"strong,omitempty" yaml:"strong,omitempty"`
}

// ZoneRule selects a classification strategy and carries its parameters.
// Fields that the chosen strategy does not use are ignored, and nil
// parameters take the engine defaults.
type ZoneRule struct {
	Strategy    StrategyKind    `json:"strategy" yaml:"strategy"`
	Direction   Direction       `json:"direction" yaml:"direction"`
	LowBound    *float64        `json:"low_bound,omitempty" yaml:"low_bound,omitempty"`
	HighBound   *float64        `json:"high_bound,omitempty" yaml:"high_bound,omitempty"`
	Sensitivity SensitivityRule `json:"sensitivity" yaml:"sensitivity,omitempty"`
	Band        *float64        `json:"band,omitempty" yaml:"band,omitempty"`
}

// Float returns a pointer to v, for filling optional rule parameters.
func Float(v float64) *float64 {
	return &v
}

type ZoneResult struct {
	Label      string       `json:"label"`
	Previous   float64      `json:"previous"`
	Current    float64      `json:"current"`
	Zone       Zone         `json:"zone"`
	Color      Color        `json:"color"`
	Trend      Trend        `json:"trend"`
	Delta      float64      `json:"delta"`
	DeltaLabel string       `json:"delta_label"`
	Magnitude  Magnitude    `json:"magnitude"`
	Strategy   StrategyKind `json:"strategy"`
}

// Arrow is the trend glyph, doubled for strong moves.
func (r ZoneResult) Arrow() string {
	if r.Magnitude == MagnitudeStrong {
		return r.Trend.Glyph() + r.Trend.Glyph()
	}
	return r.Trend.Glyph()
}

// Annotation labels a bar. Graded results use the tiered arrow, so a strong
// rise reads "↑↑ 6.00%"; others use DeltaLabel.
func (r ZoneResult) Annotation() string {
	if r.Magnitude == MagnitudeNone {
		return r.DeltaLabel
	}
	return fmt.Sprintf("%s %.2f%%", r.Arrow(), math.Abs(r.Delta))
}

type ReportSummary struct {
	Healthy      int     `json:"healthy"`
	Watch        int     `json:"watch"`
	Risk         int     `json:"risk"`
	MeanPrevious float64 `json:"mean_previous"`
	MeanCurrent  float64 `json:"mean_current"`
}

type Report struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	RuleName  string        `json:"rule_name,omitempty"`
	Rule      ZoneRule      `json:"rule"`
	CreatedAt time.Time     `json:"created_at"`
	Results   []ZoneResult  `json:"results"`
	Summary   ReportSummary `json:"summary"`
}

type AnalyticsStats struct {
	TotalReports  int64          `json:"total_reports"`
	TotalPoints   int64          `json:"total_points"`
	ZoneCounts    map[Zone]int64 `json:"zone_counts"`
	RiskRate      float64        `json:"risk_rate"`
	LastRiskTime  time.Time      `json:"last_risk_time,omitempty"`
	LastReportID  string         `json:"last_report_id,omitempty"`
	RecentRiskCap int            `json:"recent_risk_cap"`
}
