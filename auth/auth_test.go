package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/streampay/types"
)

func TestFromContext(t *testing.T) {
	authn := FromContext()

	tests := []struct {
		name    string
		ctx     context.Context
		require string
		wantErr bool
	}{
		{"matching caller", WithCaller(context.Background(), "alice"), "alice", false},
		{"wrong caller", WithCaller(context.Background(), "mallory"), "alice", true},
		{"no caller", context.Background(), "alice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authn.RequireCaller(tt.ctx, types.Identity(tt.require))
			if (err != nil) != tt.wantErr {
				t.Errorf("RequireCaller error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrCallerMismatch) {
				t.Errorf("error %v is not ErrCallerMismatch", err)
			}
		})
	}
}

func TestCallerRoundTrip(t *testing.T) {
	ctx := WithCaller(context.Background(), "bob")

	got, ok := Caller(ctx)
	if !ok {
		t.Fatal("Caller not found in context")
	}
	if got != "bob" {
		t.Errorf("Caller = %q, want %q", got, "bob")
	}

	if _, ok := Caller(context.Background()); ok {
		t.Error("Caller found in empty context")
	}
}
