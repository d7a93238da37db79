package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xraph/streampay"
)

func identity(s string) streampay.Identity { return streampay.Identity(s) }

func parseStreamID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stream id %q", arg)
	}
	return id, nil
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		recipient string
		tok       string
		amount    int64
		duration  uint64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new payment stream",
		Long: `Lock a deposit that unlocks linearly to the recipient over the given
duration. The unlocking rate is fixed at creation as deposit/duration
and never changes, even after top-ups.

Example:
  streampay --as alice create --to bob --token token:usdc --amount 10000 --duration 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := callerContext(rootOpts)
			if err != nil {
				return err
			}
			eng, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			defer eng.Stop()

			id, err := eng.CreateStream(ctx, identity(rootOpts.As), identity(recipient),
				streampay.TokenAddress(tok), streampay.Amount(amount), duration)
			if err != nil {
				return err
			}

			rec, err := eng.GetStream(context.Background(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stream %d created: %s units at %s/s to %s\n",
				id, formatAmount(rec.Deposited), formatAmount(rec.RatePerSecond), recipient)
			return nil
		},
	}

	cmd.Flags().StringVar(&recipient, "to", "", "recipient identity (required)")
	cmd.Flags().StringVar(&tok, "token", "", "token address (required)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "deposit amount in token units (required)")
	cmd.Flags().Uint64Var(&duration, "duration", 0, "vesting duration in seconds (required)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("duration")

	return cmd
}

// NewTopUpCommand creates the top-up command.
func NewTopUpCommand(rootOpts *RootOptions) *cobra.Command {
	var amount int64

	cmd := &cobra.Command{
		Use:   "top-up <stream-id>",
		Short: "Add funds to an active stream",
		Long: `Add funds to an active stream. The unlocking rate stays fixed; the
top-up extends the runway. The accrual base resets to the top-up
instant, so the recipient should withdraw first if they want accrued
funds reflected before the reset.

Example:
  streampay --as alice top-up 1 --amount 5000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStreamID(args[0])
			if err != nil {
				return err
			}
			ctx, err := callerContext(rootOpts)
			if err != nil {
				return err
			}
			eng, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			defer eng.Stop()

			if err := eng.TopUpStream(ctx, identity(rootOpts.As), id, streampay.Amount(amount)); err != nil {
				return err
			}
			rec, err := eng.GetStream(context.Background(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stream %d topped up: deposited now %s\n",
				id, formatAmount(rec.Deposited))
			return nil
		},
	}

	cmd.Flags().Int64Var(&amount, "amount", 0, "top-up amount in token units (required)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw <stream-id>",
		Short: "Withdraw everything accrued so far",
		Long: `Pay out everything that has streamed to the caller since the last
accounting event. A fully drained stream closes automatically.

Example:
  streampay --as bob withdraw 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStreamID(args[0])
			if err != nil {
				return err
			}
			ctx, err := callerContext(rootOpts)
			if err != nil {
				return err
			}
			eng, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			defer eng.Stop()

			amount, err := eng.Withdraw(ctx, identity(rootOpts.As), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrew %s from stream %d\n", formatAmount(amount), id)
			return nil
		},
	}

	return cmd
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <stream-id>",
		Short: "Cancel a stream with fair settlement",
		Long: `Cancel an active stream. The recipient is settled up to the
cancellation instant first; the sender then receives exactly the
un-streamed remainder.

Example:
  streampay --as alice cancel 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStreamID(args[0])
			if err != nil {
				return err
			}
			ctx, err := callerContext(rootOpts)
			if err != nil {
				return err
			}
			eng, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			defer eng.Stop()

			if err := eng.CancelStream(ctx, identity(rootOpts.As), id); err != nil {
				return err
			}

			rec, err := eng.GetStream(context.Background(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stream %d cancelled: %s paid out in total, %s refunded\n",
				id, formatAmount(rec.Withdrawn), formatAmount(rec.Remaining()))
			return nil
		},
	}

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <stream-id>",
		Short: "Show a stream record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStreamID(args[0])
			if err != nil {
				return err
			}
			eng, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			defer eng.Stop()

			rec, err := eng.GetStream(context.Background(), id)
			if err != nil {
				return err
			}

			status := "active"
			if !rec.Active {
				status = "closed"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stream:       %d (%s)\n", id, status)
			fmt.Fprintf(out, "sender:       %s\n", rec.Sender)
			fmt.Fprintf(out, "recipient:    %s\n", rec.Recipient)
			fmt.Fprintf(out, "token:        %s\n", rec.Token)
			fmt.Fprintf(out, "rate:         %s/s\n", formatAmount(rec.RatePerSecond))
			fmt.Fprintf(out, "deposited:    %s\n", formatAmount(rec.Deposited))
			fmt.Fprintf(out, "withdrawn:    %s\n", formatAmount(rec.Withdrawn))
			fmt.Fprintf(out, "remaining:    %s\n", formatAmount(rec.Remaining()))
			fmt.Fprintf(out, "started:      %s\n", humanize.Time(time.Unix(int64(rec.StartTime), 0)))
			fmt.Fprintf(out, "last update:  %s\n", humanize.Time(time.Unix(int64(rec.LastUpdate), 0)))
			return nil
		},
	}

	return cmd
}

// NewClaimableCommand creates the claimable command.
func NewClaimableCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claimable <stream-id>",
		Short: "Show how much the recipient could withdraw right now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStreamID(args[0])
			if err != nil {
				return err
			}
			eng, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			defer eng.Stop()

			amount, err := eng.ClaimableAmount(context.Background(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatAmount(amount))
			return nil
		},
	}

	return cmd
}
