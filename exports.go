package streampay

import (
	"github.com/xraph/streampay/id"
	"github.com/xraph/streampay/types"
)

// Re-export common types for convenience so users don't have to import
// the types package.

// Amount is re-exported from the types package.
type Amount = types.Amount

// Identity is re-exported from the types package.
type Identity = types.Identity

// TokenAddress is re-exported from the types package.
type TokenAddress = types.TokenAddress

// Entity is re-exported from the types package.
type Entity = types.Entity

// ID is re-exported from the id package.
type ID = id.ID

// MaxAmount is re-exported from the types package.
const MaxAmount = types.MaxAmount

// Re-export Entity constructor
var NewEntity = types.NewEntity
