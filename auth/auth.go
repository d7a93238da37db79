// Package auth models the caller-identity oracle as an explicit
// capability. The engine asks it to verify exactly one identity per
// mutating operation, before touching any state; the accounting logic
// itself never inspects ambient caller information.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/streampay/types"
)

// ErrCallerMismatch is returned when the verified caller does not match
// the identity an operation claims to act as.
var ErrCallerMismatch = errors.New("auth: caller mismatch")

// Authenticator verifies that the operation's actual caller is the named
// identity. An error aborts the whole operation before any state change.
type Authenticator interface {
	RequireCaller(ctx context.Context, identity types.Identity) error
}

// AuthenticatorFunc adapts a plain function to an Authenticator.
type AuthenticatorFunc func(ctx context.Context, identity types.Identity) error

// RequireCaller implements Authenticator.
func (f AuthenticatorFunc) RequireCaller(ctx context.Context, identity types.Identity) error {
	return f(ctx, identity)
}

type callerKey struct{}

// WithCaller returns a context carrying the verified caller identity.
// The value is expected to be set by the hosting transport after it has
// authenticated the request.
func WithCaller(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, identity)
}

// Caller extracts the verified caller identity from the context.
func Caller(ctx context.Context) (types.Identity, bool) {
	v, ok := ctx.Value(callerKey{}).(types.Identity)
	return v, ok
}

// FromContext returns an Authenticator that compares the context caller
// (see WithCaller) against the required identity. This is the engine's
// default.
func FromContext() Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, identity types.Identity) error {
		caller, ok := Caller(ctx)
		if !ok {
			return fmt.Errorf("%w: no caller in context", ErrCallerMismatch)
		}
		if caller != identity {
			return fmt.Errorf("%w: caller %q is not %q", ErrCallerMismatch, caller, identity)
		}
		return nil
	})
}

// AllowAll returns an Authenticator that accepts every caller. Test use
// only.
func AllowAll() Authenticator {
	return AuthenticatorFunc(func(context.Context, types.Identity) error { return nil })
}
