package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batch-health/internal/models"
)

func TestReportKey(t *testing.T) {
	assert.Equal(t, "report:abc", ReportKey("abc"))
}

func newTestClient(t *testing.T, ttl time.Duration) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), mr.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func testReport(id string) models.Report {
	return models.Report{
		ID:       id,
		Title:    "Vertical-wise BH < 10%",
		RuleName: "bh-below-10",
		Rule: models.ZoneRule{
			Strategy:    models.StrategyTrend,
			Direction:   models.RisingIsRisk,
			Sensitivity: models.SensitivityRule{Mild: models.Float(1)},
		},
		CreatedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Results: []models.ZoneResult{{
			Label:      "Digital Marketing",
			Previous:   14.71,
			Current:    18.52,
			Zone:       models.ZoneRisk,
			Color:      models.ColorRed,
			Trend:      models.TrendUp,
			Delta:      3.81,
			DeltaLabel: "↑ 3.81%",
			Strategy:   models.StrategyTrend,
		}},
		Summary: models.ReportSummary{Risk: 1, MeanPrevious: 14.71, MeanCurrent: 18.52},
	}
}

func TestStoreAndGetReport(t *testing.T) {
	client, mr := newTestClient(t, 2*time.Hour)
	ctx := context.Background()

	want := testReport("r-1")
	require.NoError(t, client.StoreReport(ctx, want))

	assert.Equal(t, 2*time.Hour, mr.TTL(ReportKey("r-1")))

	got, err := client.GetReport(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Rule, got.Rule)
	assert.Equal(t, want.Results, got.Results)
	assert.Equal(t, want.Summary, got.Summary)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestGetReportNotFound(t *testing.T) {
	client, _ := newTestClient(t, time.Hour)

	_, err := client.GetReport(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestGetReportCorrupt(t *testing.T) {
	client, mr := newTestClient(t, time.Hour)
	require.NoError(t, mr.Set(ReportKey("bad"), "not json"))

	_, err := client.GetReport(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReportNotFound)
}

func TestRecentListIsTrimmed(t *testing.T) {
	client, mr := newTestClient(t, time.Hour)
	ctx := context.Background()

	for i := 0; i < recentReportsMax+5; i++ {
		require.NoError(t, client.StoreReport(ctx, testReport(fmt.Sprintf("r-%03d", i))))
	}

	ids, err := mr.List(recentReportsKey)
	require.NoError(t, err)
	require.Len(t, ids, recentReportsMax)
	assert.Equal(t, fmt.Sprintf("r-%03d", recentReportsMax+4), ids[0])
	assert.Equal(t, "r-005", ids[len(ids)-1])

	reports, err := client.GetRecentReports(ctx, 3)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "r-104", reports[0].ID)
	assert.Equal(t, "r-102", reports[2].ID)

	reports, err = client.GetRecentReports(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestGetRecentReportsSkipsExpired(t *testing.T) {
	client, mr := newTestClient(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, client.StoreReport(ctx, testReport("old")))
	mr.FastForward(30 * time.Minute)
	require.NoError(t, client.StoreReport(ctx, testReport("new")))
	mr.FastForward(45 * time.Minute)

	reports, err := client.GetRecentReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "new", reports[0].ID)

	_, err = client.GetReport(ctx, "old")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisClient(ctx, addr, time.Hour)
	assert.Error(t, err)
}
