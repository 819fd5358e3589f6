// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"sync"

	"solana-sniper/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// FailWith, when set, is consulted before every call; a non-nil result is returned as the error.
type RPCClient struct {
	mu            sync.Mutex
	Accounts      map[string]*solana.AccountInfo
	Statuses      map[string]*solana.SignatureStatus
	Balances      map[string]uint64
	TokenAccounts map[string][]solana.TokenAccount // keyed by owner+"/"+mint
	Transactions  map[string]*solana.Transaction
	FailWith      func(method string) error

	calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:      make(map[string]*solana.AccountInfo),
		Statuses:      make(map[string]*solana.SignatureStatus),
		Balances:      make(map[string]uint64),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Transactions:  make(map[string]*solana.Transaction),
		calls:         make(map[string]int),
	}
}

func (c *RPCClient) enter(method string) error {
	c.mu.Lock()
	c.calls[method]++
	fail := c.FailWith
	c.mu.Unlock()
	if fail != nil {
		return fail(method)
	}
	return nil
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.enter("getAccountInfo"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// GetSignatureStatuses returns stored statuses; unknown signatures are nil.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	if err := c.enter("getSignatureStatuses"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.Statuses[sig]; ok {
			cp := *st
			out[i] = &cp
		}
	}
	return out, nil
}

// GetBalance returns the stored lamport balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	if err := c.enter("getBalance"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[pubkey], nil
}

// GetTokenAccountsByOwner returns stored token accounts for owner and mint.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	if err := c.enter("getTokenAccountsByOwner"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]solana.TokenAccount(nil), c.TokenAccounts[owner+"/"+mint]...), nil
}

// GetTransaction returns the stored transaction or nil.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.enter("getTransaction"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transactions[signature], nil
}

// SetAccount stores account info for pubkey.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// SetStatus stores the settlement status of signature.
func (c *RPCClient) SetStatus(signature string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[signature] = status
}

// SetBalance stores the lamport balance of pubkey.
func (c *RPCClient) SetBalance(pubkey string, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[pubkey] = lamports
}

// SetTokenAccounts stores token accounts of owner for mint.
func (c *RPCClient) SetTokenAccounts(owner, mint string, accounts []solana.TokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenAccounts[owner+"/"+mint] = accounts
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

var _ solana.RPCClient = (*RPCClient)(nil)
