// Package zones classifies weekly percentage metrics into healthy, watch
// and risk zones. Every function is pure: the same input always gives the
// same result and nothing is retained between calls.
package zones

import (
	"fmt"
	"math"

	"batch-health/internal/models"
)

const (
	DefaultLowBound  = 10.0
	DefaultHighBound = 50.0
	DefaultMild      = 1.0
	DefaultStrong    = 5.0
	DefaultBand      = 5.0
)

// Bounds is a validated (low, high) threshold pair.
type Bounds struct {
	Low  float64
	High float64
}

func NewBounds(low, high float64) (Bounds, error) {
	b := Bounds{Low: low, High: high}
	if err := b.validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

func (b Bounds) validate() error {
	if math.IsNaN(b.Low) || math.IsNaN(b.High) || b.Low >= b.High {
		return fmt.Errorf("%w: low %.2f must be below high %.2f", ErrInvalidBounds, b.Low, b.High)
	}
	return nil
}

func checkDirection(d models.Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
	return nil
}

// ClassifyAbsolute places value against fixed bounds. Each bound belongs to
// the band above it: value == Low is Watch, value == High is the top band.
func ClassifyAbsolute(value float64, direction models.Direction, bounds Bounds) (models.Zone, error) {
	if err := checkDirection(direction); err != nil {
		return 0, err
	}
	if err := bounds.validate(); err != nil {
		return 0, err
	}

	var band int
	switch {
	case value < bounds.Low:
		band = 0
	case value < bounds.High:
		band = 1
	default:
		band = 2
	}
	return bandZone(band, direction), nil
}

// bandZone maps low/middle/high bands to zones for a direction.
func bandZone(band int, direction models.Direction) models.Zone {
	switch band {
	case 0:
		if direction == models.RisingIsRisk {
			return models.ZoneHealthy
		}
		return models.ZoneRisk
	case 2:
		if direction == models.RisingIsRisk {
			return models.ZoneRisk
		}
		return models.ZoneHealthy
	}
	return models.ZoneWatch
}

// Sensitivity bands for trend classification. Strong of zero means a
// single band.
type Sensitivity = models.Sensitivity

func validateSensitivity(s Sensitivity) error {
	if math.IsNaN(s.Mild) || s.Mild < 0 {
		return fmt.Errorf("%w: sensitivity %.2f must not be negative", ErrInvalidBounds, s.Mild)
	}
	if s.Strong != 0 && !(s.Strong > s.Mild) {
		return fmt.Errorf("%w: strong sensitivity %.2f must exceed mild %.2f", ErrInvalidBounds, s.Strong, s.Mild)
	}
	return nil
}

// ClassifyByTrend classifies the week-over-week delta. Moves strictly
// outside ±Mild leave the watch zone.
func ClassifyByTrend(previous, current float64, direction models.Direction, s Sensitivity) (models.ZoneResult, error) {
	if err := checkDirection(direction); err != nil {
		return models.ZoneResult{}, err
	}
	if err := validateSensitivity(s); err != nil {
		return models.ZoneResult{}, err
	}

	delta := current - previous
	zone, magnitude := trendZone(delta, direction, s)
	res := newResult(models.MetricPoint{Previous: previous, Current: current}, zone, models.StrategyTrend)
	res.Magnitude = magnitude
	return res, nil
}

func trendZone(delta float64, direction models.Direction, s Sensitivity) (models.Zone, models.Magnitude) {
	band := 1
	switch {
	case delta > s.Mild:
		band = 2
	case delta < -s.Mild:
		band = 0
	}
	if band == 1 {
		return models.ZoneWatch, models.MagnitudeNone
	}

	magnitude := models.MagnitudeNone
	if s.Strong > 0 {
		magnitude = models.MagnitudeMild
		if math.Abs(delta) > s.Strong {
			magnitude = models.MagnitudeStrong
		}
	}
	return bandZone(band, direction), magnitude
}

// ClassifyByDeviationFromMean compares value with the mean of series. The
// band around the mean is closed and reads as Watch.
func ClassifyByDeviationFromMean(value float64, series []float64, direction models.Direction, band float64) (models.Zone, error) {
	if err := checkDirection(direction); err != nil {
		return 0, err
	}
	if err := validateBand(band); err != nil {
		return 0, err
	}
	if len(series) == 0 {
		return 0, ErrEmptySeries
	}
	return deviationZone(value, Mean(series), direction, band), nil
}

func validateBand(band float64) error {
	if math.IsNaN(band) || band < 0 {
		return fmt.Errorf("%w: band %.2f must not be negative", ErrInvalidBounds, band)
	}
	return nil
}

func deviationZone(value, avg float64, direction models.Direction, band float64) models.Zone {
	switch {
	case value > avg+band:
		return bandZone(2, direction)
	case value >= avg-band:
		return models.ZoneWatch
	}
	return bandZone(0, direction)
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// DeltaLabel formats a delta as "↑ 1.23%". A zero delta is "→ 0.00%".
func DeltaLabel(delta float64) string {
	return fmt.Sprintf("%s %.2f%%", trendOf(delta).Glyph(), math.Abs(delta))
}

func trendOf(delta float64) models.Trend {
	switch {
	case delta > 0:
		return models.TrendUp
	case delta < 0:
		return models.TrendDown
	}
	return models.TrendFlat
}

func newResult(p models.MetricPoint, zone models.Zone, kind models.StrategyKind) models.ZoneResult {
	delta := p.Current - p.Previous
	return models.ZoneResult{
		Label:      p.Label,
		Previous:   p.Previous,
		Current:    p.Current,
		Zone:       zone,
		Color:      zone.Color(),
		Trend:      trendOf(delta),
		Delta:      delta,
		DeltaLabel: DeltaLabel(delta),
		Strategy:   kind,
	}
}
