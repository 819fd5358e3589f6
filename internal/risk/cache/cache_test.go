package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"solana-sniper/internal/domain"
)

func verdict(asset string) *domain.SafetyVerdict {
	score := 80.0
	return &domain.SafetyVerdict{
		AssetID:        asset,
		Accepted:       true,
		CompositeScore: 45,
		Checks: map[string]domain.RiskCheckResult{
			domain.CheckRiskReport: {CheckName: domain.CheckRiskReport, Outcome: domain.OutcomePass, Score: &score},
			domain.CheckMarketPresence: {
				CheckName: domain.CheckMarketPresence,
				Outcome:   domain.OutcomePass,
				Details:   map[string]string{"bonding_curve": "curve", "graduated": "false"},
			},
		},
		EvaluatedAt: 1700000000000,
	}
}

func TestMemory_HitThenExpire(t *testing.T) {
	c := NewMemory(16, 50*time.Millisecond)
	ctx := context.Background()

	c.Put(ctx, verdict("A"))
	got, ok := c.Get(ctx, "A")
	require.True(t, ok)
	assert.Equal(t, verdict("A"), got)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get(ctx, "A")
	assert.False(t, ok, "expected miss after TTL")
}

func TestMemory_ReturnsCopies(t *testing.T) {
	c := NewMemory(16, time.Minute)
	ctx := context.Background()
	c.Put(ctx, verdict("A"))

	got, _ := c.Get(ctx, "A")
	got.Accepted = false
	*got.Checks[domain.CheckRiskReport].Score = 0

	again, _ := c.Get(ctx, "A")
	assert.True(t, again.Accepted)
	assert.Equal(t, 80.0, *again.Checks[domain.CheckRiskReport].Score)
}

func TestMemory_CapacityEvictsOldest(t *testing.T) {
	c := NewMemory(2, time.Minute)
	ctx := context.Background()

	c.Put(ctx, verdict("A"))
	c.Put(ctx, verdict("B"))
	c.Put(ctx, verdict("C"))

	_, ok := c.Get(ctx, "A")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestRedis_HitThenExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewRedis(rdb, 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	c.Put(ctx, verdict("A"))
	got, ok := c.Get(ctx, "A")
	require.True(t, ok)
	assert.Equal(t, verdict("A"), got)
	assert.True(t, mr.Exists(keyPrefix+"A"))

	mr.FastForward(5*time.Minute + time.Second)
	_, ok = c.Get(ctx, "A")
	assert.False(t, ok, "expected miss after TTL")
}

func TestRedis_UnavailableIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	c := NewRedis(rdb, time.Minute, nil)

	mr.Close()
	c.Put(context.Background(), verdict("A"))
	_, ok := c.Get(context.Background(), "A")
	assert.False(t, ok)
}

func TestRedis_RejectedVerdictRoundTrips(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewRedis(rdb, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	first := &domain.SafetyVerdict{
		AssetID:         "B",
		CompositeScore:  0,
		RejectionReason: "risk_report: danger: mint authority",
		Checks: map[string]domain.RiskCheckResult{
			domain.CheckRiskReport: {
				CheckName: domain.CheckRiskReport,
				Outcome:   domain.OutcomeFail,
				Hard:      true,
				Reason:    "danger: mint authority",
				Details:   map[string]string{"dangers": "mint authority,freeze authority"},
			},
		},
		EvaluatedAt: 1700000000000,
	}
	c.Put(ctx, first)

	got, ok := c.Get(ctx, "B")
	require.True(t, ok)
	assert.Equal(t, first, got)
}
