package zones

import (
	"fmt"

	"batch-health/internal/models"
)

// Strategy is one interchangeable classification policy. Implementations
// live in this package.
type Strategy interface {
	Kind() models.StrategyKind
	Rule() models.ZoneRule
	zone(p models.MetricPoint, s seriesStats) (models.Zone, models.Magnitude)
	needsSeries() bool
}

type seriesStats struct {
	meanCurrent float64
}

type AbsoluteStrategy struct {
	Direction models.Direction
	Bounds    Bounds
}

func NewAbsoluteStrategy(direction models.Direction, bounds Bounds) (AbsoluteStrategy, error) {
	if err := checkDirection(direction); err != nil {
		return AbsoluteStrategy{}, err
	}
	if err := bounds.validate(); err != nil {
		return AbsoluteStrategy{}, err
	}
	return AbsoluteStrategy{Direction: direction, Bounds: bounds}, nil
}

func (a AbsoluteStrategy) Kind() models.StrategyKind { return models.StrategyAbsolute }

func (a AbsoluteStrategy) Rule() models.ZoneRule {
	return models.ZoneRule{
		Strategy:  models.StrategyAbsolute,
		Direction: a.Direction,
		LowBound:  models.Float(a.Bounds.Low),
		HighBound: models.Float(a.Bounds.High),
	}
}

func (a AbsoluteStrategy) needsSeries() bool { return false }

func (a AbsoluteStrategy) zone(p models.MetricPoint, _ seriesStats) (models.Zone, models.Magnitude) {
	z, _ := ClassifyAbsolute(p.Current, a.Direction, a.Bounds)
	return z, models.MagnitudeNone
}

type TrendStrategy struct {
	Direction   models.Direction
	Sensitivity Sensitivity
}

func NewTrendStrategy(direction models.Direction, s Sensitivity) (TrendStrategy, error) {
	if err := checkDirection(direction); err != nil {
		return TrendStrategy{}, err
	}
	if err := validateSensitivity(s); err != nil {
		return TrendStrategy{}, err
	}
	return TrendStrategy{Direction: direction, Sensitivity: s}, nil
}

func (t TrendStrategy) Kind() models.StrategyKind { return models.StrategyTrend }

func (t TrendStrategy) Rule() models.ZoneRule {
	rule := models.ZoneRule{
		Strategy:    models.StrategyTrend,
		Direction:   t.Direction,
		Sensitivity: models.SensitivityRule{Mild: models.Float(t.Sensitivity.Mild)},
	}
	if t.Sensitivity.Strong > 0 {
		rule.Sensitivity.Strong = models.Float(t.Sensitivity.Strong)
	}
	return rule
}

func (t TrendStrategy) needsSeries() bool { return false }

func (t TrendStrategy) zone(p models.MetricPoint, _ seriesStats) (models.Zone, models.Magnitude) {
	return trendZone(p.Current-p.Previous, t.Direction, t.Sensitivity)
}

// DeviationStrategy compares each current value with the mean of all
// current values in the series.
type DeviationStrategy struct {
	Direction models.Direction
	Band      float64
}

func NewDeviationStrategy(direction models.Direction, band float64) (DeviationStrategy, error) {
	if err := checkDirection(direction); err != nil {
		return DeviationStrategy{}, err
	}
	if err := validateBand(band); err != nil {
		return DeviationStrategy{}, err
	}
	return DeviationStrategy{Direction: direction, Band: band}, nil
}

func (d DeviationStrategy) Kind() models.StrategyKind { return models.StrategyDeviationFromMean }

func (d DeviationStrategy) Rule() models.ZoneRule {
	return models.ZoneRule{
		Strategy:  models.StrategyDeviationFromMean,
		Direction: d.Direction,
		Band:      models.Float(d.Band),
	}
}

func (d DeviationStrategy) needsSeries() bool { return true }

func (d DeviationStrategy) zone(p models.MetricPoint, s seriesStats) (models.Zone, models.Magnitude) {
	return deviationZone(p.Current, s.meanCurrent, d.Direction, d.Band), models.MagnitudeNone
}

// NewStrategy builds a validated strategy from a rule. Unset (nil)
// parameters take the package defaults; explicit values, zero included,
// are used as given.
func NewStrategy(rule models.ZoneRule) (Strategy, error) {
	switch rule.Strategy {
	case models.StrategyAbsolute:
		b, err := NewBounds(valueOr(rule.LowBound, DefaultLowBound), valueOr(rule.HighBound, DefaultHighBound))
		if err != nil {
			return nil, err
		}
		a, err := NewAbsoluteStrategy(rule.Direction, b)
		if err != nil {
			return nil, err
		}
		return a, nil
	case models.StrategyTrend:
		t, err := NewTrendStrategy(rule.Direction, ResolveSensitivity(rule.Sensitivity))
		if err != nil {
			return nil, err
		}
		return t, nil
	case models.StrategyDeviationFromMean:
		d, err := NewDeviationStrategy(rule.Direction, valueOr(rule.Band, DefaultBand))
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(rule.Strategy))
}

// ResolveSensitivity fills an unset Mild with DefaultMild. An unset Strong
// means a single band.
func ResolveSensitivity(r models.SensitivityRule) Sensitivity {
	return Sensitivity{
		Mild:   valueOr(r.Mild, DefaultMild),
		Strong: valueOr(r.Strong, 0),
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// BuildComparisonSeries classifies every point with one strategy. Output
// order matches input order.
func BuildComparisonSeries(points []models.MetricPoint, strategy Strategy) ([]models.ZoneResult, error) {
	if strategy == nil {
		return nil, ErrUnknownStrategy
	}
	if len(points) == 0 {
		if strategy.needsSeries() {
			return nil, ErrEmptySeries
		}
		return []models.ZoneResult{}, nil
	}

	var stats seriesStats
	if strategy.needsSeries() {
		current := make([]float64, len(points))
		for i, p := range points {
			current[i] = p.Current
		}
		stats.meanCurrent = Mean(current)
	}

	results := make([]models.ZoneResult, len(points))
	for i, p := range points {
		zone, magnitude := strategy.zone(p, stats)
		res := newResult(p, zone, strategy.Kind())
		res.Magnitude = magnitude
		results[i] = res
	}
	return results, nil
}
