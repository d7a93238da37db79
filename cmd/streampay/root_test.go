package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/xraph/streampay/token"
)

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCommand()

	want := []string{"init-config", "config", "create", "top-up", "withdraw", "cancel", "show", "claimable"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestCallerContextRequiresAs(t *testing.T) {
	if _, err := callerContext(&RootOptions{}); err == nil {
		t.Error("callerContext() without --as succeeded, want error")
	}
	ctx, err := callerContext(&RootOptions{As: "alice"})
	if err != nil {
		t.Fatalf("callerContext() error = %v", err)
	}
	if ctx == nil {
		t.Fatal("callerContext() returned nil context")
	}
}

func TestSimTokens(t *testing.T) {
	s := newSimTokens(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	if _, err := s.Decimals(ctx, ""); !errors.Is(err, token.ErrUnknownToken) {
		t.Errorf("Decimals(\"\") error = %v, want ErrUnknownToken", err)
	}
	if dec, err := s.Decimals(ctx, "token:usdc"); err != nil || dec != 7 {
		t.Errorf("Decimals() = %d, %v, want 7, nil", dec, err)
	}
	if err := s.Transfer(ctx, "token:usdc", "a", "b", 0); !errors.Is(err, token.ErrInvalidTransfer) {
		t.Errorf("Transfer(0) error = %v, want ErrInvalidTransfer", err)
	}
	if err := s.Transfer(ctx, "token:usdc", "a", "b", 100); err != nil {
		t.Errorf("Transfer(100) error = %v", err)
	}
}
