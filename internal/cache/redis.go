package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"batch-health/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	recentReportsKey = "reports:recent"
	recentReportsMax = 100
)

var ErrReportNotFound = errors.New("report not found")

type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(ctx context.Context, addr string, ttl time.Duration) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisClient{
		client: client,
		ttl:    ttl,
	}, nil
}

func ReportKey(id string) string {
	return fmt.Sprintf("report:%s", id)
}

func (r *RedisClient) StoreReport(ctx context.Context, report models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := ReportKey(report.ID)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, r.ttl)
	pipe.LPush(ctx, recentReportsKey, report.ID)
	pipe.LTrim(ctx, recentReportsKey, 0, recentReportsMax-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store report in Redis: %w", err)
	}
	return nil
}

func (r *RedisClient) GetReport(ctx context.Context, id string) (models.Report, error) {
	data, err := r.client.Get(ctx, ReportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return models.Report{}, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return report, nil
}

// GetRecentReports returns up to count reports, newest first. Reports whose
// key has expired are skipped.
func (r *RedisClient) GetRecentReports(ctx context.Context, count int64) ([]models.Report, error) {
	if count <= 0 {
		return []models.Report{}, nil
	}
	ids, err := r.client.LRange(ctx, recentReportsKey, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent report ids: %w", err)
	}

	reports := make([]models.Report, 0, len(ids))
	for _, id := range ids {
		report, err := r.GetReport(ctx, id)
		if err != nil {
			continue // expired
		}
		reports = append(reports, report)
	}

	return reports, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
