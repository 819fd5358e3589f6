package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Pair is the subset of a DexScreener pair the sniper uses.
type Pair struct {
	ChainID     string     `json:"chainId"`
	DexID       string     `json:"dexId"`
	PairAddress string     `json:"pairAddress"`
	PriceUSD    string     `json:"priceUsd"`
	PriceNative string     `json:"priceNative"`
	Liquidity   *Liquidity `json:"liquidity"`
	Volume      struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Info *PairInfo `json:"info"`
}

// Liquidity is the pool depth of a pair.
type Liquidity struct {
	USD float64 `json:"usd"`
}

// PairInfo carries the project links DexScreener knows about.
type PairInfo struct {
	Websites []Link `json:"websites"`
	Socials  []Link `json:"socials"`
}

// Link is a website or social profile.
type Link struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url"`
}

// LiquidityUSD returns the pool depth in USD, zero when unknown.
func (p *Pair) LiquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

// HasSocials reports whether the pair lists any social link or website.
func (p *Pair) HasSocials() bool {
	return p.Info != nil && (len(p.Info.Socials) > 0 || len(p.Info.Websites) > 0)
}

// Price parses priceUsd. ok is false when the field is absent or malformed.
func (p *Pair) Price() (float64, bool) {
	if p.PriceUSD == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(p.PriceUSD, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// DexScreener queries api.dexscreener.com token pairs.
type DexScreener struct {
	client
}

// NewDexScreener creates a DexScreener client. hc may be nil.
func NewDexScreener(baseURL string, spacing, timeout time.Duration, hc *http.Client) *DexScreener {
	return &DexScreener{client: newClient("dexscreener", baseURL, spacing, timeout, hc)}
}

// Pairs returns the trading pairs of mint; an unindexed token has none.
func (c *DexScreener) Pairs(ctx context.Context, mint string) ([]Pair, error) {
	var resp struct {
		Pairs []Pair `json:"pairs"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/"+url.PathEscape(mint), &resp); err != nil {
		return nil, err
	}
	return resp.Pairs, nil
}
