package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"batch-health/internal/ingest"
	"batch-health/internal/models"
	"batch-health/internal/zones"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrUnknownRule = errors.New("unknown rule")

type Config struct {
	Addr         string
	RedisAddr    string
	ReportTTL    time.Duration
	KafkaBrokers []string
	KafkaTopic   string
	LogLevel     string
	ChartsFile   string
	Rules        map[string]RuleConfig
}

// RuleConfig is one named chart rule as written in the charts file.
// Omitted parameters stay nil and take the engine defaults; a written 0
// is kept.
type RuleConfig struct {
	Title       string         `yaml:"title" json:"title"`
	Strategy    string         `yaml:"strategy" json:"strategy" validate:"required"`
	Direction   string         `yaml:"direction" json:"direction" validate:"required"`
	LowBound    *float64       `yaml:"low_bound" json:"low_bound,omitempty" validate:"omitempty,gte=0"`
	HighBound   *float64       `yaml:"high_bound" json:"high_bound,omitempty" validate:"omitempty,gte=0"`
	Sensitivity SensitivityCfg `yaml:"sensitivity" json:"sensitivity"`
	Band        *float64       `yaml:"band" json:"band,omitempty" validate:"omitempty,gte=0"`
	Columns     ingest.Columns `yaml:"columns" json:"columns"`
}

type SensitivityCfg struct {
	Mild   *float64 `yaml:"mild" json:"mild,omitempty" validate:"omitempty,gte=0"`
	Strong *float64 `yaml:"strong" json:"strong,omitempty" validate:"omitempty,gte=0"`
}

type chartsFile struct {
	Charts map[string]RuleConfig `yaml:"charts"`
}

var validate = validator.New()

// ZoneRule converts the file form into the engine rule. Strategy and
// direction accept the same aliases as the HTTP API.
func (rc RuleConfig) ZoneRule() (models.ZoneRule, error) {
	kind, err := models.ParseStrategyKind(rc.Strategy)
	if err != nil {
		return models.ZoneRule{}, fmt.Errorf("%w: %v", zones.ErrUnknownStrategy, err)
	}
	dir, err := models.ParseDirection(rc.Direction)
	if err != nil {
		return models.ZoneRule{}, fmt.Errorf("%w: %v", zones.ErrUnknownDirection, err)
	}
	return models.ZoneRule{
		Strategy:    kind,
		Direction:   dir,
		LowBound:    rc.LowBound,
		HighBound:   rc.HighBound,
		Sensitivity: models.SensitivityRule{Mild: rc.Sensitivity.Mild, Strong: rc.Sensitivity.Strong},
		Band:        rc.Band,
	}, nil
}

// DefaultRules mirrors the weekly sheets: the "BH < 10%" family where a
// rise is bad and the "BH > 50%" family where a rise is good.
func DefaultRules() map[string]RuleConfig {
	return map[string]RuleConfig{
		"bh-below-10": {
			Title:       "Vertical-wise BH < 10%",
			Strategy:    "trend",
			Direction:   "rising-is-risk",
			Sensitivity: SensitivityCfg{Mild: models.Float(zones.DefaultMild)},
		},
		"bh-above-50": {
			Title:       "Vertical-wise BH > 50%",
			Strategy:    "trend",
			Direction:   "rising-is-healthy",
			Sensitivity: SensitivityCfg{Mild: models.Float(zones.DefaultMild)},
		},
		"bh-below-10-tiered": {
			Title:       "Vertical-wise BH < 10% (trend strength)",
			Strategy:    "trend",
			Direction:   "rising-is-risk",
			Sensitivity: SensitivityCfg{Mild: models.Float(zones.DefaultMild), Strong: models.Float(zones.DefaultStrong)},
		},
		"bh-below-10-absolute": {
			Title:     "Category-wise BH < 10%",
			Strategy:  "absolute",
			Direction: "rising-is-risk",
			LowBound:  models.Float(10),
			HighBound: models.Float(50),
		},
		"bh-above-50-absolute": {
			Title:     "Category-wise BH > 50%",
			Strategy:  "absolute",
			Direction: "rising-is-healthy",
			LowBound:  models.Float(10),
			HighBound: models.Float(50),
		},
		"bh-below-10-mean": {
			Title:     "Vertical-wise BH < 10% vs average",
			Strategy:  "deviation",
			Direction: "rising-is-risk",
			Band:      models.Float(zones.DefaultBand),
		},
	}
}

func FromEnv() (Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	ttl := 24 * time.Hour
	if s := os.Getenv("REPORT_TTL"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REPORT_TTL %q: %w", s, err)
		}
		ttl = d
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "batch-health.reports"
	}
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	cfg := Config{
		Addr:         ":" + port,
		RedisAddr:    redisAddr,
		ReportTTL:    ttl,
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   topic,
		LogLevel:     level,
		ChartsFile:   os.Getenv("CHARTS_FILE"),
		Rules:        DefaultRules(),
	}

	if cfg.ChartsFile != "" {
		rules, err := LoadRules(cfg.ChartsFile)
		if err != nil {
			return Config{}, err
		}
		for name, rc := range rules {
			cfg.Rules[name] = rc
		}
	}

	if err := ValidateRules(cfg.Rules); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadRules reads a charts file. Rules are checked before they are
// returned, so a bad threshold pair fails here rather than on upload.
func LoadRules(path string) (map[string]RuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read charts file: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (map[string]RuleConfig, error) {
	var f chartsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse charts file: %w", err)
	}
	if err := ValidateRules(f.Charts); err != nil {
		return nil, err
	}
	return f.Charts, nil
}

func ValidateRules(rules map[string]RuleConfig) error {
	for _, name := range RuleNames(rules) {
		rc := rules[name]
		if err := validate.Struct(rc); err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
		rule, err := rc.ZoneRule()
		if err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
		if _, err := zones.NewStrategy(rule); err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
	}
	return nil
}

// Rule looks up a named rule.
func (c Config) Rule(name string) (RuleConfig, models.ZoneRule, error) {
	rc, ok := c.Rules[name]
	if !ok {
		return RuleConfig{}, models.ZoneRule{}, fmt.Errorf("%w: %q", ErrUnknownRule, name)
	}
	rule, err := rc.ZoneRule()
	if err != nil {
		return RuleConfig{}, models.ZoneRule{}, err
	}
	return rc, rule, nil
}

func RuleNames(rules map[string]RuleConfig) []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
