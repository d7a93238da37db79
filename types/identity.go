package types

// Identity names a party known to the external authentication oracle:
// a stream sender, a recipient, the protocol admin, the treasury, or the
// engine's own custody account.
type Identity string

// String returns the identity as a plain string.
func (i Identity) String() string { return string(i) }

// IsZero returns true if the identity is empty.
func (i Identity) IsZero() bool { return i == "" }

// TokenAddress locates a fungible-token service instance. The engine
// treats it as opaque; only the token collaborator can interpret it.
type TokenAddress string

// String returns the address as a plain string.
func (t TokenAddress) String() string { return string(t) }

// IsZero returns true if the address is empty.
func (t TokenAddress) IsZero() bool { return t == "" }
