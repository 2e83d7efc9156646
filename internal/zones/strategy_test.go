package zones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batch-health/internal/models"
)

// belowTen is the "BH < 10%" sample from the weekly sheet.
var belowTen = []models.MetricPoint{
	{Label: "Commerce", Previous: 6.49, Current: 6.25},
	{Label: "Technical", Previous: 0, Current: 0},
	{Label: "Digital Marketing", Previous: 14.71, Current: 18.52},
	{Label: "Coding", Previous: 56.78, Current: 55.88},
	{Label: "Hospital Administration", Previous: 6.67, Current: 0},
	{Label: "Teaching", Previous: 21.74, Current: 10.98},
}

func zonesOf(results []models.ZoneResult) []models.Zone {
	out := make([]models.Zone, len(results))
	for i, r := range results {
		out[i] = r.Zone
	}
	return out
}

func TestBuildComparisonSeriesTrend(t *testing.T) {
	s, err := NewStrategy(models.ZoneRule{Strategy: models.StrategyTrend, Direction: models.RisingIsRisk})
	require.NoError(t, err)

	results, err := BuildComparisonSeries(belowTen, s)
	require.NoError(t, err)
	require.Len(t, results, len(belowTen))

	assert.Equal(t, []models.Zone{
		models.ZoneWatch,
		models.ZoneWatch,
		models.ZoneRisk,
		models.ZoneWatch,
		models.ZoneHealthy,
		models.ZoneHealthy,
	}, zonesOf(results))

	for i, r := range results {
		assert.Equal(t, belowTen[i].Label, r.Label)
		assert.Equal(t, r.Zone.Color(), r.Color)
		assert.Equal(t, models.StrategyTrend, r.Strategy)
	}
}

func TestBuildComparisonSeriesAbsoluteUsesCurrent(t *testing.T) {
	s, err := NewStrategy(models.ZoneRule{
		Strategy:  models.StrategyAbsolute,
		Direction: models.RisingIsRisk,
		LowBound:  models.Float(10),
		HighBound: models.Float(50),
	})
	require.NoError(t, err)

	results, err := BuildComparisonSeries(belowTen, s)
	require.NoError(t, err)

	assert.Equal(t, []models.Zone{
		models.ZoneHealthy,
		models.ZoneHealthy,
		models.ZoneWatch,
		models.ZoneRisk,
		models.ZoneHealthy,
		models.ZoneWatch,
	}, zonesOf(results))
	assert.Equal(t, "↑ 3.81%", results[2].DeltaLabel)
}

func TestBuildComparisonSeriesDeviation(t *testing.T) {
	s, err := NewStrategy(models.ZoneRule{Strategy: models.StrategyDeviationFromMean, Direction: models.RisingIsRisk})
	require.NoError(t, err)
	assert.Equal(t, models.Float(DefaultBand), s.Rule().Band)

	results, err := BuildComparisonSeries(belowTen, s)
	require.NoError(t, err)

	// mean of current values is 15.27
	assert.Equal(t, []models.Zone{
		models.ZoneHealthy,
		models.ZoneHealthy,
		models.ZoneWatch,
		models.ZoneRisk,
		models.ZoneHealthy,
		models.ZoneWatch,
	}, zonesOf(results))
}

func TestBuildComparisonSeriesPreservesOrder(t *testing.T) {
	s, err := NewStrategy(models.ZoneRule{Strategy: models.StrategyTrend, Direction: models.RisingIsHealthy})
	require.NoError(t, err)

	reversed := make([]models.MetricPoint, len(belowTen))
	for i, p := range belowTen {
		reversed[len(belowTen)-1-i] = p
	}

	results, err := BuildComparisonSeries(reversed, s)
	require.NoError(t, err)
	for i, r := range results {
		assert.Equal(t, reversed[i].Label, r.Label)
	}
}

func TestBuildComparisonSeriesEmpty(t *testing.T) {
	trend, err := NewStrategy(models.ZoneRule{Strategy: models.StrategyTrend, Direction: models.RisingIsRisk})
	require.NoError(t, err)
	results, err := BuildComparisonSeries(nil, trend)
	require.NoError(t, err)
	assert.Empty(t, results)

	abs, err := NewStrategy(models.ZoneRule{Strategy: models.StrategyAbsolute, Direction: models.RisingIsRisk})
	require.NoError(t, err)
	results, err = BuildComparisonSeries([]models.MetricPoint{}, abs)
	require.NoError(t, err)
	assert.Empty(t, results)

	dev, err := NewStrategy(models.ZoneRule{Strategy: models.StrategyDeviationFromMean, Direction: models.RisingIsRisk})
	require.NoError(t, err)
	_, err = BuildComparisonSeries(nil, dev)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestNewStrategyValidatesAtConfigurationTime(t *testing.T) {
	_, err := NewStrategy(models.ZoneRule{
		Strategy:  models.StrategyAbsolute,
		Direction: models.RisingIsRisk,
		LowBound:  models.Float(50),
		HighBound: models.Float(10),
	})
	assert.ErrorIs(t, err, ErrInvalidBounds)

	_, err = NewStrategy(models.ZoneRule{Strategy: models.StrategyTrend})
	assert.ErrorIs(t, err, ErrUnknownDirection)

	_, err = NewStrategy(models.ZoneRule{Direction: models.RisingIsRisk})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNewStrategyDefaults(t *testing.T) {
	s, err := NewStrategy(models.ZoneRule{Strategy: models.StrategyAbsolute, Direction: models.RisingIsHealthy})
	require.NoError(t, err)
	assert.Equal(t, models.Float(DefaultLowBound), s.Rule().LowBound)
	assert.Equal(t, models.Float(DefaultHighBound), s.Rule().HighBound)

	s, err = NewStrategy(models.ZoneRule{Strategy: models.StrategyTrend, Direction: models.RisingIsHealthy})
	require.NoError(t, err)
	assert.Equal(t, Sensitivity{Mild: DefaultMild}, s.(TrendStrategy).Sensitivity)
	assert.Nil(t, s.Rule().Sensitivity.Strong)

	s, err = NewStrategy(models.ZoneRule{
		Strategy:  models.StrategyAbsolute,
		Direction: models.RisingIsRisk,
		HighBound: models.Float(30),
	})
	require.NoError(t, err)
	assert.Equal(t, Bounds{Low: DefaultLowBound, High: 30}, s.(AbsoluteStrategy).Bounds)
}

func TestNewStrategyKeepsExplicitZero(t *testing.T) {
	point := []models.MetricPoint{{Label: "Commerce", Previous: 10, Current: 10.5}}

	s, err := NewStrategy(models.ZoneRule{
		Strategy:    models.StrategyTrend,
		Direction:   models.RisingIsRisk,
		Sensitivity: models.SensitivityRule{Mild: models.Float(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, Sensitivity{}, s.(TrendStrategy).Sensitivity)
	results, err := BuildComparisonSeries(point, s)
	require.NoError(t, err)
	assert.Equal(t, models.ZoneRisk, results[0].Zone)

	s, err = NewStrategy(models.ZoneRule{
		Strategy:  models.StrategyDeviationFromMean,
		Direction: models.RisingIsRisk,
		Band:      models.Float(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.(DeviationStrategy).Band)
	results, err = BuildComparisonSeries([]models.MetricPoint{
		{Label: "a", Previous: 0, Current: 10},
		{Label: "b", Previous: 0, Current: 13},
	}, s)
	require.NoError(t, err)
	// mean 11.5, no band around it
	assert.Equal(t, []models.Zone{models.ZoneHealthy, models.ZoneRisk}, zonesOf(results))

	s, err = NewStrategy(models.ZoneRule{
		Strategy:  models.StrategyAbsolute,
		Direction: models.RisingIsRisk,
		LowBound:  models.Float(0),
		HighBound: models.Float(5),
	})
	require.NoError(t, err)
	assert.Equal(t, Bounds{Low: 0, High: 5}, s.(AbsoluteStrategy).Bounds)
}

func TestNewStrategyStrongOnlyDefaultsMild(t *testing.T) {
	s, err := NewStrategy(models.ZoneRule{
		Strategy:    models.StrategyTrend,
		Direction:   models.RisingIsRisk,
		Sensitivity: models.SensitivityRule{Strong: models.Float(5)},
	})
	require.NoError(t, err)
	assert.Equal(t, Sensitivity{Mild: DefaultMild, Strong: 5}, s.(TrendStrategy).Sensitivity)

	results, err := BuildComparisonSeries([]models.MetricPoint{
		{Label: "small", Previous: 10, Current: 10.5},
		{Label: "mild", Previous: 10, Current: 12},
		{Label: "strong", Previous: 10, Current: 16},
	}, s)
	require.NoError(t, err)
	assert.Equal(t, []models.Zone{models.ZoneWatch, models.ZoneRisk, models.ZoneRisk}, zonesOf(results))
	assert.Equal(t, models.MagnitudeMild, results[1].Magnitude)
	assert.Equal(t, models.MagnitudeStrong, results[2].Magnitude)
	assert.Equal(t, "↑ 2.00%", results[1].Annotation())
	assert.Equal(t, "↑↑ 6.00%", results[2].Annotation())
	assert.Equal(t, "↑ 6.00%", results[2].DeltaLabel)

	rule := s.Rule()
	require.NotNil(t, rule.Sensitivity.Mild)
	assert.Equal(t, DefaultMild, *rule.Sensitivity.Mild)
	assert.Equal(t, models.Float(5), rule.Sensitivity.Strong)
}

func TestResolveSensitivity(t *testing.T) {
	tests := []struct {
		name string
		rule models.SensitivityRule
		want Sensitivity
	}{
		{"unset", models.SensitivityRule{}, Sensitivity{Mild: DefaultMild}},
		{"explicit zero", models.SensitivityRule{Mild: models.Float(0)}, Sensitivity{}},
		{"strong only", models.SensitivityRule{Strong: models.Float(DefaultStrong)}, Sensitivity{Mild: DefaultMild, Strong: DefaultStrong}},
		{"both", models.SensitivityRule{Mild: models.Float(2), Strong: models.Float(8)}, Sensitivity{Mild: 2, Strong: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSensitivity(tt.rule))
		})
	}
}
