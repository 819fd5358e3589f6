package trading

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-sniper/internal/config"
	"solana-sniper/internal/errkind"
)

// PumpPortalBackend trades through the PumpPortal Lightning API, which signs
// and submits server-side. Holdings are read from the ledger.
type PumpPortalBackend struct {
	endpoint    string
	apiKey      string
	slippagePct float64
	priorityFee float64
	pool        string
	holdings    HoldingsReader
	client      *http.Client
	logger      *zap.Logger
}

// HoldingsReader returns the wallet's token balance. Implemented by RPCHoldings.
type HoldingsReader interface {
	HeldQuantity(ctx context.Context, assetID string) (decimal.Decimal, error)
}

// NewPumpPortalBackend creates a backend from trading config.
func NewPumpPortalBackend(cfg config.TradingCfg, holdings HoldingsReader, client *http.Client, logger *zap.Logger) *PumpPortalBackend {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PumpPortalBackend{
		endpoint:    cfg.PumpPortalURL,
		apiKey:      cfg.PumpPortalKey,
		slippagePct: float64(cfg.SlippageBps) / 100,
		priorityFee: cfg.PriorityFeeSOL,
		pool:        cfg.Pool,
		holdings:    holdings,
		client:      client,
		logger:      logger.Named("pumpportal"),
	}
}

type tradeRequest struct {
	Action           string      `json:"action"`
	Mint             string      `json:"mint"`
	Amount           interface{} `json:"amount"`
	DenominatedInSol string      `json:"denominatedInSol"`
	Slippage         float64     `json:"slippage"`
	PriorityFee      float64     `json:"priorityFee"`
	Pool             string      `json:"pool"`
}

type tradeResponse struct {
	Signature string   `json:"signature"`
	Error     string   `json:"error"`
	Errors    []string `json:"errors"`
}

// Acquire buys with capital SOL.
func (b *PumpPortalBackend) Acquire(ctx context.Context, assetID string, capital decimal.Decimal) (Fill, error) {
	amount, _ := capital.Float64()
	return b.trade(ctx, tradeRequest{
		Action:           "buy",
		Mint:             assetID,
		Amount:           amount,
		DenominatedInSol: "true",
		Slippage:         b.slippagePct,
		PriorityFee:      b.priorityFee,
		Pool:             b.pool,
	})
}

// Dispose sells a token quantity or a percentage of holdings.
func (b *PumpPortalBackend) Dispose(ctx context.Context, assetID string, amount Amount) (Fill, error) {
	var qty interface{}
	if amount.Percent > 0 {
		qty = decimal.NewFromFloat(amount.Percent).String() + "%"
	} else {
		f, _ := amount.Quantity.Float64()
		qty = f
	}
	fill, err := b.trade(ctx, tradeRequest{
		Action:           "sell",
		Mint:             assetID,
		Amount:           qty,
		DenominatedInSol: "false",
		Slippage:         b.slippagePct,
		PriorityFee:      b.priorityFee,
		Pool:             b.pool,
	})
	if err == nil && amount.Percent <= 0 {
		q := amount.Quantity
		fill.Quantity = &q
	}
	return fill, err
}

// HeldQuantity delegates to the ledger reader.
func (b *PumpPortalBackend) HeldQuantity(ctx context.Context, assetID string) (decimal.Decimal, error) {
	if b.holdings == nil {
		return decimal.Zero, errors.New("pumpportal: no holdings reader configured")
	}
	return b.holdings.HeldQuantity(ctx, assetID)
}

func (b *PumpPortalBackend) trade(ctx context.Context, req tradeRequest) (Fill, error) {
	op := "pumpportal." + req.Action
	body, err := json.Marshal(req)
	if err != nil {
		return Fill{}, errkind.New(errkind.Fatal, op, err)
	}

	u := b.endpoint
	if b.apiKey != "" {
		u += "?api-key=" + url.QueryEscape(b.apiKey)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return Fill{}, errkind.New(errkind.Fatal, op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Fill{}, ctxErr
		}
		return Fill{}, errkind.New(errkind.Unavailable, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Fill{}, errkind.New(errkind.Unavailable, op, err)
	}
	if err := errkind.FromStatus(op, resp.StatusCode, string(raw)); err != nil {
		return Fill{}, err
	}

	sig, err := parseSignature(raw)
	if err != nil {
		return Fill{}, errkind.New(errkind.Fatal, op, err)
	}

	b.logger.Info("trade submitted",
		zap.String("action", req.Action),
		zap.String("mint", req.Mint),
		zap.String("signature", sig),
		zap.Duration("elapsed", time.Since(start)))
	return Fill{Ref: sig}, nil
}

// parseSignature accepts {"signature": ...}, an error object, or a bare
// JSON string. An empty signature is not an error; the caller decides.
func parseSignature(raw []byte) (string, error) {
	var resp tradeResponse
	if err := json.Unmarshal(raw, &resp); err == nil {
		if resp.Error != "" {
			return "", fmt.Errorf("rejected: %s", resp.Error)
		}
		if len(resp.Errors) > 0 {
			return "", fmt.Errorf("rejected: %s", strings.Join(resp.Errors, "; "))
		}
		return resp.Signature, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("unexpected response: %.120s", raw)
}

var _ Backend = (*PumpPortalBackend)(nil)
