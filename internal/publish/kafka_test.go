package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"batch-health/internal/models"
)

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *stubWriter) Close() error { return nil }

func sampleReport() models.Report {
	return models.Report{
		ID:       "r-1",
		Title:    "Vertical-wise BH < 10%",
		RuleName: "bh-below-10",
		Rule:     models.ZoneRule{Strategy: models.StrategyTrend, Direction: models.RisingIsRisk, Sensitivity: models.SensitivityRule{Mild: models.Float(1)}},
		Results: []models.ZoneResult{{
			Label: "Coding", Previous: 56.78, Current: 55.88,
			Zone: models.ZoneWatch, Color: models.ColorOrange, Trend: models.TrendDown,
			Delta: -0.9, DeltaLabel: "↓ 0.90%", Strategy: models.StrategyTrend,
		}},
		Summary: models.ReportSummary{Watch: 1},
	}
}

func TestNewMessage(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	msg, err := newMessage(sampleReport(), now)
	require.NoError(t, err)

	assert.Equal(t, []byte("r-1"), msg.Key)
	assert.Equal(t, "rule", msg.Headers[0].Key)
	assert.Equal(t, "trend", string(msg.Headers[1].Value))

	var ev struct {
		Type   string `json:"type"`
		Report struct {
			Results []struct {
				Zone  string `json:"zone"`
				Color string `json:"color"`
			} `json:"results"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "zone_report", ev.Type)
	assert.Equal(t, "watch", ev.Report.Results[0].Zone)
	assert.Equal(t, "orange", ev.Report.Results[0].Color)
}

func TestPublish(t *testing.T) {
	w := &stubWriter{}
	p := &Publisher{writer: w, topic: "t", log: zap.NewNop()}

	require.NoError(t, p.Publish(context.Background(), sampleReport()))
	assert.Len(t, w.msgs, 1)

	w.err = errors.New("broker down")
	err := p.Publish(context.Background(), sampleReport())
	assert.ErrorContains(t, err, "broker down")
}
