package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewInitConfigCommand creates the init-config command.
func NewInitConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		admin      string
		treasury   string
		feeRateBps uint32
	)

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Initialize the protocol fee configuration",
		Long: `Initialize the singleton protocol configuration: the admin identity,
the treasury that receives fees, and the fee rate in basis points
(1/10000, at most 1000). This can succeed exactly once per ledger.

Example:
  streampay --as admin init-config --admin admin --treasury treasury --fee-bps 250`,
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

			if err := eng.Initialize(ctx, identity(admin), identity(treasury), feeRateBps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "protocol initialized: admin=%s treasury=%s fee=%d bps\n",
				admin, treasury, feeRateBps)
			return nil
		},
	}

	cmd.Flags().StringVar(&admin, "admin", "", "admin identity (required)")
	cmd.Flags().StringVar(&treasury, "treasury", "", "treasury identity (required)")
	cmd.Flags().Uint32Var(&feeRateBps, "fee-bps", 0, "fee rate in basis points (0-1000)")
	_ = cmd.MarkFlagRequired("admin")
	_ = cmd.MarkFlagRequired("treasury")

	return cmd
}

// NewConfigCommand creates the config command, which also handles
// updates via --treasury/--fee-bps.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		treasury   string
		feeRateBps uint32
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update the protocol fee configuration",
		Long: `Without flags, prints the current configuration. With --treasury and
--fee-bps, replaces both (admin only; the stored admin identity is
preserved).

Example:
  streampay config
  streampay --as admin config --treasury treasury2 --fee-bps 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			defer eng.Stop()

			if cmd.Flags().Changed("treasury") || cmd.Flags().Changed("fee-bps") {
				ctx, err := callerContext(rootOpts)
				if err != nil {
					return err
				}
				if err := eng.UpdateFeeConfig(ctx, identity(rootOpts.As), identity(treasury), feeRateBps); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "fee config updated")
			}

			cfg, err := eng.FeeConfig(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "admin:     %s\n", cfg.Admin)
			fmt.Fprintf(out, "treasury:  %s\n", cfg.Treasury)
			fmt.Fprintf(out, "fee rate:  %d bps\n", cfg.FeeRateBps)
			return nil
		},
	}

	cmd.Flags().StringVar(&treasury, "treasury", "", "new treasury identity")
	cmd.Flags().Uint32Var(&feeRateBps, "fee-bps", 0, "new fee rate in basis points (0-1000)")

	return cmd
}
