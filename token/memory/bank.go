// Package memory provides an in-memory token service for tests and the
// demo CLI.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/streampay/id"
	"github.com/xraph/streampay/token"
	"github.com/xraph/streampay/types"
)

// compile-time interface check
var _ token.Service = (*Bank)(nil)

// Receipt records one completed transfer.
type Receipt struct {
	ID     id.ReceiptID       `json:"id"`
	Token  types.TokenAddress `json:"token"`
	From   types.Identity     `json:"from"`
	To     types.Identity     `json:"to"`
	Amount types.Amount       `json:"amount"`
}

// Bank is a thread-safe, in-memory token.Service. Tokens must be
// registered before use; balances start at zero and are funded via Mint.
type Bank struct {
	mu       sync.RWMutex
	decimals map[types.TokenAddress]uint32
	balances map[types.TokenAddress]map[types.Identity]types.Amount
	receipts []Receipt
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{
		decimals: make(map[types.TokenAddress]uint32),
		balances: make(map[types.TokenAddress]map[types.Identity]types.Amount),
	}
}

// Register makes a token address known to the bank with the given
// decimal precision.
func (b *Bank) Register(tok types.TokenAddress, decimals uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.balances[tok]; !ok {
		b.balances[tok] = make(map[types.Identity]types.Amount)
	}
	b.decimals[tok] = decimals
}

// Mint credits an identity with new tokens. The token must be registered.
func (b *Bank) Mint(tok types.TokenAddress, to types.Identity, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	accounts, ok := b.balances[tok]
	if !ok {
		return token.ErrUnknownToken
	}
	if !amount.IsPositive() {
		return token.ErrInvalidTransfer
	}
	accounts[to] = accounts[to].Add(amount)
	return nil
}

// Transfer implements token.Service.
func (b *Bank) Transfer(_ context.Context, tok types.TokenAddress, from, to types.Identity, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	accounts, ok := b.balances[tok]
	if !ok {
		return token.ErrUnknownToken
	}
	if !amount.IsPositive() {
		return token.ErrInvalidTransfer
	}
	if accounts[from] < amount {
		return token.ErrInsufficientFunds
	}

	accounts[from] -= amount
	accounts[to] = accounts[to].Add(amount)

	b.receipts = append(b.receipts, Receipt{
		ID:     id.NewReceiptID(),
		Token:  tok,
		From:   from,
		To:     to,
		Amount: amount,
	})
	return nil
}

// Decimals implements token.Service.
func (b *Bank) Decimals(_ context.Context, tok types.TokenAddress) (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	d, ok := b.decimals[tok]
	if !ok {
		return 0, token.ErrUnknownToken
	}
	return d, nil
}

// Balance returns the current balance of an identity for a token.
func (b *Bank) Balance(tok types.TokenAddress, who types.Identity) types.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[tok][who]
}

// Receipts returns a copy of all transfer receipts in order.
func (b *Bank) Receipts() []Receipt {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Receipt, len(b.receipts))
	copy(out, b.receipts)
	return out
}
