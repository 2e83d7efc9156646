package models

import (
	"fmt"
	"strings"
)

type Zone int

const (
	ZoneHealthy Zone = iota + 1
	ZoneWatch
	ZoneRisk
)

var zoneNames = map[Zone]string{
	ZoneHealthy: "healthy",
	ZoneWatch:   "watch",
	ZoneRisk:    "risk",
}

func (z Zone) String() string {
	if s, ok := zoneNames[z]; ok {
		return s
	}
	return fmt.Sprintf("zone(%d)", int(z))
}

// Color is the only place a zone turns into a color.
func (z Zone) Color() Color {
	switch z {
	case ZoneHealthy:
		return ColorGreen
	case ZoneWatch:
		return ColorOrange
	case ZoneRisk:
		return ColorRed
	}
	return ColorUnknown
}

func (z Zone) MarshalText() ([]byte, error) {
	s, ok := zoneNames[z]
	if !ok {
		return nil, fmt.Errorf("unknown zone %d", int(z))
	}
	return []byte(s), nil
}

func (z *Zone) UnmarshalText(b []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(b)))
	for k, name := range zoneNames {
		if name == v {
			*z = k
			return nil
		}
	}
	return fmt.Errorf("unknown zone %q", v)
}

type Color int

const (
	ColorUnknown Color = iota
	ColorGreen
	ColorOrange
	ColorRed
)

func (c Color) String() string {
	switch c {
	case ColorGreen:
		return "green"
	case ColorOrange:
		return "orange"
	case ColorRed:
		return "red"
	}
	return "unknown"
}

// Hex is the chart fill for the color.
func (c Color) Hex() string {
	switch c {
	case ColorGreen:
		return "008000"
	case ColorOrange:
		return "ffa500"
	case ColorRed:
		return "ff0000"
	}
	return "808080"
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "green":
		*c = ColorGreen
	case "orange":
		*c = ColorOrange
	case "red":
		*c = ColorRed
	default:
		*c = ColorUnknown
	}
	return nil
}

type Trend int

const (
	TrendFlat Trend = iota
	TrendUp
	TrendDown
)

func (t Trend) Glyph() string {
	switch t {
	case TrendUp:
		return "↑"
	case TrendDown:
		return "↓"
	}
	return "→"
}

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	}
	return "flat"
}

func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Trend) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "up":
		*t = TrendUp
	case "down":
		*t = TrendDown
	case "flat", "":
		*t = TrendFlat
	default:
		return fmt.Errorf("unknown trend %q", string(b))
	}
	return nil
}

// Magnitude grades a Healthy or Risk trend result when a two-tier
// sensitivity is configured. It never changes the zone.
type Magnitude int

const (
	MagnitudeNone Magnitude = iota
	MagnitudeMild
	MagnitudeStrong
)

func (m Magnitude) String() string {
	switch m {
	case MagnitudeMild:
		return "mild"
	case MagnitudeStrong:
		return "strong"
	}
	return "none"
}

func (m Magnitude) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Magnitude) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "mild":
		*m = MagnitudeMild
	case "strong":
		*m = MagnitudeStrong
	case "none", "":
		*m = MagnitudeNone
	default:
		return fmt.Errorf("unknown magnitude %q", string(b))
	}
	return nil
}

// Direction says which way a metric family is read.
type Direction int

const (
	// RisingIsRisk is the "BH < 10%" family: a larger share is worse.
	RisingIsRisk Direction = iota + 1
	// RisingIsHealthy is the "BH > 50%" family: a larger share is better.
	RisingIsHealthy
)

func (d Direction) Valid() bool {
	return d == RisingIsRisk || d == RisingIsHealthy
}

func (d Direction) String() string {
	switch d {
	case RisingIsRisk:
		return "rising-is-risk"
	case RisingIsHealthy:
		return "rising-is-healthy"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rising-is-risk", "below", "below-is-bad", "below_10":
		return RisingIsRisk, nil
	case "rising-is-healthy", "above", "above-is-bad", "above_50":
		return RisingIsHealthy, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unknown direction %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

type StrategyKind int

const (
	StrategyAbsolute StrategyKind = iota + 1
	StrategyTrend
	StrategyDeviationFromMean
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyAbsolute:
		return "absolute"
	case StrategyTrend:
		return "trend"
	case StrategyDeviationFromMean:
		return "deviation"
	}
	return fmt.Sprintf("strategy(%d)", int(k))
}

func ParseStrategyKind(s string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absolute", "threshold":
		return StrategyAbsolute, nil
	case "trend", "delta":
		return StrategyTrend, nil
	case "deviation", "mean", "deviation-from-mean":
		return StrategyDeviationFromMean, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

func (k StrategyKind) MarshalText() ([]byte, error) {
	switch k {
	case StrategyAbsolute, StrategyTrend, StrategyDeviationFromMean:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown strategy %d", int(k))
}

func (k *StrategyKind) UnmarshalText(b []byte) error {
	v, err := ParseStrategyKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
