package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"batch-health/internal/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends every classified report to one topic, keyed by report ID.
type Publisher struct {
	writer messageWriter
	topic  string
	log    *zap.Logger
}

func NewPublisher(brokers []string, topic string, log *zap.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		topic: topic,
		log:   log.With(zap.String("component", "kafka-publisher")),
	}
}

type reportEvent struct {
	Type        string               `json:"type"`
	PublishedAt time.Time            `json:"published_at"`
	Report      models.Report        `json:"report"`
	Summary     models.ReportSummary `json:"summary"`
}

func newMessage(report models.Report, now time.Time) (kafka.Message, error) {
	b, err := json.Marshal(reportEvent{
		Type:        "zone_report",
		PublishedAt: now.UTC(),
		Report:      report,
		Summary:     report.Summary,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal report event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(report.ID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "rule", Value: []byte(report.RuleName)},
			{Key: "strategy", Value: []byte(report.Rule.Strategy.String())},
		},
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, report models.Report) error {
	msg, err := newMessage(report, time.Now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish report %s to %s: %w", report.ID, p.topic, err)
	}
	p.log.Debug("report published", zap.String("report_id", report.ID), zap.Int("results", len(report.Results)))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
