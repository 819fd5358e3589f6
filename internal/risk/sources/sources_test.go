package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/errkind"
)

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRugCheck_Report(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{
			"score": 42,
			"risks": []map[string]interface{}{
				{"name": "Low liquidity", "level": "warn"},
				{"name": "Mint authority still enabled", "level": "danger"},
			},
			"rugged": false,
		})
	}))
	defer srv.Close()

	report, err := NewRugCheck(srv.URL, 0, time.Second, nil).Report(context.Background(), "Mint111")
	require.NoError(t, err)
	assert.Equal(t, "/Mint111/report", path)
	assert.Equal(t, 42.0, report.Score)
	require.Len(t, report.Dangers(), 1)
	assert.Equal(t, "Mint authority still enabled", report.Dangers()[0].Name)
}

func TestRugCheck_ErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   errkind.Kind
	}{
		{http.StatusTooManyRequests, errkind.RateLimited},
		{http.StatusServiceUnavailable, errkind.Unavailable},
		{http.StatusNotFound, errkind.Fatal},
	}
	for _, tt := range tests {
		srv := jsonServer(t, tt.status, `{}`)
		_, err := NewRugCheck(srv.URL, 0, time.Second, nil).Report(context.Background(), "m")
		require.Error(t, err)
		assert.Equal(t, tt.want, errkind.Of(err), "status %d", tt.status)
	}

	srv := jsonServer(t, http.StatusOK, `not json`)
	_, err := NewRugCheck(srv.URL, 0, time.Second, nil).Report(context.Background(), "m")
	assert.Equal(t, errkind.Fatal, errkind.Of(err))
}

func TestDexScreener_Pairs(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{
		"pairs": [{
			"chainId": "solana",
			"priceUsd": "0.00012",
			"liquidity": {"usd": 25000.5},
			"info": {"socials": [{"type": "twitter", "url": "https://x.com/t"}]}
		}]
	}`)

	pairs, err := NewDexScreener(srv.URL, 0, time.Second, nil).Pairs(context.Background(), "m")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, 25000.5, pairs[0].LiquidityUSD())
	assert.True(t, pairs[0].HasSocials())
	price, ok := pairs[0].Price()
	assert.True(t, ok)
	assert.Equal(t, 0.00012, price)
}

func TestDexScreener_NoPairs(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"schemaVersion":"1.0.0","pairs":null}`)

	pairs, err := NewDexScreener(srv.URL, 0, time.Second, nil).Pairs(context.Background(), "m")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestPair_MissingFields(t *testing.T) {
	var p Pair
	assert.Zero(t, p.LiquidityUSD())
	assert.False(t, p.HasSocials())
	_, ok := p.Price()
	assert.False(t, ok)
}

func TestGoPlus_TokenSecurity(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{
		"code": 1,
		"result": {
			"MintA": {
				"is_honeypot": "0",
				"is_blacklisted": {"status": "1"},
				"owner_change_balance": 0,
				"cannot_sell_all": null
			}
		}
	}`)
	c := NewGoPlus(srv.URL, 0, time.Second, nil)

	sec, err := c.TokenSecurity(context.Background(), "MintA")
	require.NoError(t, err)
	require.NotNil(t, sec)
	assert.False(t, bool(sec.Honeypot))
	assert.True(t, bool(sec.Blacklisted))
	assert.False(t, bool(sec.OwnerChangeBalance))
	assert.False(t, bool(sec.CannotSellAll))

	missing, err := c.TokenSecurity(context.Background(), "MintB")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClient_Spacing(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"pairs":[]}`)
	c := NewDexScreener(srv.URL, 100*time.Millisecond, time.Second, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Pairs(ctx, "m")
		require.NoError(t, err)
	}
	// First call is free; the next two each wait out the spacing.
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestClient_SpacingHonoursContext(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"pairs":[]}`)
	c := NewDexScreener(srv.URL, time.Hour, time.Second, nil)

	_, err := c.Pairs(context.Background(), "m")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Pairs(ctx, "m")
	assert.Error(t, err)
}

func TestClient_DeadHostIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRugCheck(url, 0, time.Second, nil).Report(context.Background(), "m")
	require.Error(t, err)
	assert.Equal(t, errkind.Unavailable, errkind.Of(err))
}
