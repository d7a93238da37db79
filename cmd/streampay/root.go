package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xraph/streampay"
	"github.com/xraph/streampay/auth"
	"github.com/xraph/streampay/store/sqlite"
	"github.com/xraph/streampay/token"
	"github.com/xraph/streampay/types"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Store   string // SQLite database path
	As      string // caller identity
	Config  string // optional config file
	Verbose bool
}

// NewRootCommand creates the root command for the streampay CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "streampay",
		Short: "Continuous payment-streaming ledger",
		Long: `streampay drives a payment-streaming engine against a local SQLite
ledger. A stream locks a deposit that unlocks linearly over time to a
recipient; the recipient withdraws what has accrued, and the sender can
top up or cancel with fair settlement.

Token transfers are simulated in process: this tool inspects and
exercises the accounting ledger, it does not hold funds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Store, "store", "streampay.db", "path to SQLite ledger database")
	cmd.PersistentFlags().StringVar(&opts.As, "as", "", "caller identity for authenticated operations")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default: none, flags and env only)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewInitConfigCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewTopUpCommand(opts))
	cmd.AddCommand(NewWithdrawCommand(opts))
	cmd.AddCommand(NewCancelCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewClaimableCommand(opts))

	return cmd
}

// loadConfig layers the optional config file and STREAMPAY_* environment
// variables under the flag values.
func loadConfig(opts *RootOptions) error {
	v := viper.New()
	v.SetEnvPrefix("STREAMPAY")
	v.AutomaticEnv()

	if opts.Config != "" {
		v.SetConfigFile(opts.Config)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", opts.Config, err)
		}
	}

	if opts.Store == "streampay.db" && v.IsSet("store") {
		opts.Store = v.GetString("store")
	}
	if opts.As == "" && v.IsSet("as") {
		opts.As = v.GetString("as")
	}
	return nil
}

// newEngine opens the ledger and wires up a started engine. The caller
// must Stop() it.
func newEngine(opts *RootOptions) (*streampay.Engine, error) {
	store, err := sqlite.Open(opts.Store)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	eng := streampay.New(store, newSimTokens(logger),
		streampay.WithLogger(logger),
	)
	if err := eng.Start(context.Background()); err != nil {
		store.Close()
		return nil, err
	}
	return eng, nil
}

// callerContext returns a context authenticated as the --as identity.
func callerContext(opts *RootOptions) (context.Context, error) {
	if opts.As == "" {
		return nil, fmt.Errorf("--as is required for this operation")
	}
	return auth.WithCaller(context.Background(), streampay.Identity(opts.As)), nil
}

// simTokens simulates the external token service: every transfer
// succeeds and is logged. The decimals probe rejects empty addresses so
// the engine's token validation still has teeth.
type simTokens struct {
	logger *slog.Logger
}

func newSimTokens(logger *slog.Logger) *simTokens {
	return &simTokens{logger: logger}
}

func (s *simTokens) Transfer(_ context.Context, tok types.TokenAddress, from, to types.Identity, amount types.Amount) error {
	if !amount.IsPositive() {
		return token.ErrInvalidTransfer
	}
	s.logger.Debug("simulated transfer",
		"token", tok,
		"from", from,
		"to", to,
		"amount", amount,
	)
	return nil
}

func (s *simTokens) Decimals(_ context.Context, tok types.TokenAddress) (uint32, error) {
	if tok.IsZero() {
		return 0, token.ErrUnknownToken
	}
	return 7, nil
}

// formatAmount renders a token amount with thousands separators.
func formatAmount(a streampay.Amount) string {
	return humanize.Comma(a.Int64())
}
