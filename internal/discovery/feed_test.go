package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/errkind"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage/memory"
)

const (
	payer    = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	wsolMint = "So11111111111111111111111111111111111111112"
)

var createLogs = []string{
	"Program " + solana.PumpFunProgram + " invoke [1]",
	"Program log: Instruction: Create",
	"Program " + solana.PumpFunProgram + " success",
}

type fakeWS struct {
	ch     chan solana.LogNotification
	filter solana.LogsFilter
}

func (w *fakeWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	w.filter = filter
	return w.ch, nil
}

func (w *fakeWS) Close() error { return nil }

type fakeTxs struct {
	mu    sync.Mutex
	txs   map[string]*solana.Transaction
	err   error
	calls int
}

func (f *fakeTxs) Transaction(_ context.Context, sig string) (*solana.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.txs[sig], nil
}

func launchTx(t *testing.T, mint string) *solana.Transaction {
	t.Helper()
	curve, err := solana.BondingCurveAddress(mint)
	require.NoError(t, err)
	return &solana.Transaction{
		Meta:    &solana.TransactionMeta{},
		Message: &solana.TransactionMessage{AccountKeys: []string{payer, usdcMint, mint, curve, solana.PumpFunProgram}},
	}
}

func newTestFeed(t *testing.T, txs *fakeTxs, ws *fakeWS) *LaunchFeed {
	t.Helper()
	d, err := NewDetector(16, memory.NewDiscoveryProgressStore())
	require.NoError(t, err)
	clock := func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return NewLaunchFeed(ws, txs, d, WithFeedClock(clock), WithResolveRetry(2, time.Millisecond))
}

func TestIsCreate(t *testing.T) {
	assert.True(t, IsCreate(createLogs))
	assert.True(t, IsCreate([]string{"Program log: Instruction: CreateV2"}))
	assert.False(t, IsCreate([]string{"Program log: Instruction: Buy"}))
	assert.False(t, IsCreate([]string{"Program log: Instruction: CreateIdempotent"}))
	assert.False(t, IsCreate(nil))
}

func TestResolveMint(t *testing.T) {
	curve, err := solana.BondingCurveAddress(wsolMint)
	require.NoError(t, err)

	mint, ok := ResolveMint([]string{payer, usdcMint, wsolMint, curve})
	require.True(t, ok)
	assert.Equal(t, wsolMint, mint, "bonding curve PDA identifies the mint")

	mint, ok = ResolveMint([]string{payer, solana.PumpFunProgram, usdcMint})
	require.True(t, ok)
	assert.Equal(t, usdcMint, mint, "fallback skips programs")

	_, ok = ResolveMint([]string{payer, "not-base58!"})
	assert.False(t, ok)
}

func TestLaunchFeed_Process(t *testing.T) {
	txs := &fakeTxs{txs: map[string]*solana.Transaction{"sig1": launchTx(t, wsolMint)}}
	feed := newTestFeed(t, txs, &fakeWS{})
	ctx := context.Background()

	ev, ok := feed.Process(ctx, solana.LogNotification{Signature: "sig1", Slot: 99, Logs: createLogs})
	require.True(t, ok)
	assert.Equal(t, domain.CandidateEvent{
		AssetID:         wsolMint,
		OriginSignature: "sig1",
		DetectedAtSlot:  99,
		DetectedAt:      1_700_000_000_000,
		Source:          domain.SourceLaunchFeed,
	}, ev)

	// Same mint again is not re-admitted.
	_, ok = feed.Process(ctx, solana.LogNotification{Signature: "sig1", Slot: 100, Logs: createLogs})
	assert.False(t, ok)

	// Non-launch logs are ignored without fetching.
	calls := txs.calls
	_, ok = feed.Process(ctx, solana.LogNotification{Signature: "sig2", Logs: []string{"Program log: Instruction: Sell"}})
	assert.False(t, ok)
	assert.Equal(t, calls, txs.calls)

	// Failed transactions are ignored.
	_, ok = feed.Process(ctx, solana.LogNotification{Signature: "sig3", Logs: createLogs, Err: map[string]any{"InstructionError": 1}})
	assert.False(t, ok)
}

func TestLaunchFeed_UnresolvedRetries(t *testing.T) {
	txs := &fakeTxs{err: errkind.New(errkind.Unavailable, "getTransaction", assert.AnError)}
	feed := newTestFeed(t, txs, &fakeWS{})

	_, ok := feed.Process(context.Background(), solana.LogNotification{Signature: "sig1", Logs: createLogs})
	assert.False(t, ok)
	assert.Equal(t, 2, txs.calls)

	_, err := feed.resolve(context.Background(), "sig1")
	assert.ErrorIs(t, err, ErrTransactionUnavailable)
}

func TestLaunchFeed_OnChainFailure(t *testing.T) {
	tx := launchTx(t, wsolMint)
	tx.Meta.Err = map[string]any{"InstructionError": []any{0, "Custom"}}
	feed := newTestFeed(t, &fakeTxs{txs: map[string]*solana.Transaction{"sig1": tx}}, &fakeWS{})

	_, err := feed.resolve(context.Background(), "sig1")
	assert.ErrorIs(t, err, ErrLaunchFailed)
}

func TestLaunchFeed_StartOrdersEvents(t *testing.T) {
	curve, err := solana.BondingCurveAddress(usdcMint)
	require.NoError(t, err)
	txs := &fakeTxs{txs: map[string]*solana.Transaction{
		"sigA": launchTx(t, wsolMint),
		"sigB": {Message: &solana.TransactionMessage{AccountKeys: []string{payer, usdcMint, curve}}},
	}}

	ws := &fakeWS{ch: make(chan solana.LogNotification, 3)}
	feed := newTestFeed(t, txs, ws)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := feed.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{solana.PumpFunProgram}, ws.filter.Mentions)

	ws.ch <- solana.LogNotification{Signature: "sigA", Slot: 1, Logs: createLogs}
	ws.ch <- solana.LogNotification{Signature: "noise", Slot: 2, Logs: []string{"Program log: Instruction: Buy"}}
	ws.ch <- solana.LogNotification{Signature: "sigB", Slot: 3, Logs: createLogs}
	close(ws.ch)

	var got []string
	for ev := range events {
		got = append(got, ev.AssetID)
	}
	assert.Equal(t, []string{wsolMint, usdcMint}, got)
}

func TestDetector_PersistsAcrossInstances(t *testing.T) {
	store := memory.NewDiscoveryProgressStore()
	ctx := context.Background()

	d1, err := NewDetector(4, store)
	require.NoError(t, err)
	fresh, err := d1.Admit(ctx, wsolMint)
	require.NoError(t, err)
	assert.True(t, fresh)
	require.NoError(t, d1.Checkpoint(ctx, 42, "sig"))

	d2, err := NewDetector(4, store)
	require.NoError(t, err)
	n, err := d2.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	fresh, err = d2.Admit(ctx, wsolMint)
	require.NoError(t, err)
	assert.False(t, fresh)

	p, err := store.GetLastProcessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.Slot)

	// Without a store the detector still deduplicates in memory.
	d3, err := NewDetector(0, nil)
	require.NoError(t, err)
	fresh, _ = d3.Admit(ctx, usdcMint)
	assert.True(t, fresh)
	fresh, _ = d3.Admit(ctx, usdcMint)
	assert.False(t, fresh)
}
