// Package token defines the fungible-token collaborator contract.
//
// The engine never holds balances itself; it instructs an external token
// service to move funds between identities and uses a decimals query as
// a cheap capability probe when a stream is created. Implementations
// must make Transfer atomic per call: either the full amount moves or an
// error is returned and nothing moved.
package token

import (
	"context"
	"errors"

	"github.com/xraph/streampay/types"
)

// Service is the consumed token collaborator interface.
type Service interface {
	// Transfer moves amount of the given token from one identity to
	// another. It fails without side effects if the sender's balance is
	// insufficient or the token is unknown.
	Transfer(ctx context.Context, tok types.TokenAddress, from, to types.Identity, amount types.Amount) error

	// Decimals returns the token's decimal precision. It doubles as the
	// capability probe at stream creation: an address that cannot answer
	// it is not a token service.
	Decimals(ctx context.Context, tok types.TokenAddress) (uint32, error)
}

// Sentinel errors returned by token service implementations.
var (
	ErrUnknownToken      = errors.New("token: unknown token address")
	ErrInsufficientFunds = errors.New("token: insufficient funds")
	ErrInvalidTransfer   = errors.New("token: invalid transfer")
)
