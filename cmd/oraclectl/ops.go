package main

import (
	"context"
	"fmt"
	"io"

	sdkmath "cosmossdk.io/math"
	"github.com/spf13/cobra"

	"weighted-oracle/internal/api"
	"weighted-oracle/internal/client"
	"weighted-oracle/internal/config"
	"weighted-oracle/internal/domain"
)

func (a *app) createCmd() *cobra.Command {
	cfg := domain.DefaultOracleConfig("", "", "")
	var tokenArg, owner string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an oracle owned by the signer",
		Long: `Create an oracle owned by the signer (or --owner).

--token accepts a token symbol or address. Unset parameters use the defaults:
reward 1000/100000, half-life 3600s, quorum 2000 bps, both locks 3600s, alpha 1.

Examples:
  $ oraclectl create --name ETH/USD --token WGT
  $ oraclectl create --name BTC/USD --token WGT --half-life 600 --quorum 5000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.signer()
			if err != nil {
				return err
			}
			if cfg.Name == "" {
				return fmt.Errorf("--name is required")
			}
			if cfg.WeightToken, err = resolveToken(cmd.Context(), c, tokenArg); err != nil {
				return err
			}
			if owner != "" {
				if cfg.Owner, err = parseAddress("owner", owner); err != nil {
					return err
				}
			}
			info, err := c.CreateOracle(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), info, func(w io.Writer) {
				fmt.Fprintf(w, "created %s (%s), index %d\n", info.Oracle, info.Config.Name, info.Index)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Name, "name", "", "display name")
	f.StringVar(&cfg.Description, "description", "", "description")
	f.StringVar(&tokenArg, "token", "", "weight token symbol or address")
	f.StringVar(&owner, "owner", "", "initial owner (default: signer)")
	f.Uint64Var(&cfg.Reward, "reward", cfg.Reward, "reward rate out of 100000")
	f.Uint64Var(&cfg.HalfLifeSeconds, "half-life", cfg.HalfLifeSeconds, "EWMA half-life in seconds")
	f.Uint64Var(&cfg.Quorum, "quorum", cfg.Quorum, "participation quorum in basis points")
	f.Uint64Var(&cfg.DepositLockingPeriod, "deposit-lock", cfg.DepositLockingPeriod, "seconds before a deposit carries weight")
	f.Uint64Var(&cfg.WithdrawalLockingPeriod, "withdrawal-lock", cfg.WithdrawalLockingPeriod, "seconds after the last operation before withdrawal")
	f.Uint64Var(&cfg.Alpha, "alpha", cfg.Alpha, "reward weight multiplier")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

// resolveToken finds a hosted token by symbol or address.
func resolveToken(ctx context.Context, c *client.Client, s string) (domain.Address, error) {
	tokens, err := c.Tokens(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range tokens {
		if t.Symbol == s || string(t.Address) == s {
			return t.Address, nil
		}
	}
	return "", fmt.Errorf("unknown token %q", s)
}

func (a *app) submitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit [oracle] [value]",
		Short: "Submit an integer value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("oracle", args[0])
			if err != nil {
				return err
			}
			value, ok := sdkmath.NewIntFromString(args[1])
			if !ok {
				return fmt.Errorf("invalid value %q: must be an integer", args[1])
			}
			c, err := a.signer()
			if err != nil {
				return err
			}
			rec, err := c.Submit(cmd.Context(), addr, value)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), rec, func(w io.Writer) {
				fmt.Fprintf(w, "submission %d: value %s, aggregate %s, weight %s, reward %s, final %v\n",
					rec.Index, rec.Value, rec.AggregatedPrice, rec.Weight, rec.RewardPaid, rec.Final)
			})
		},
	}
}

func (a *app) readCmd() *cobra.Command {
	var latest bool
	cmd := &cobra.Command{
		Use:   "read [oracle]",
		Short: "Read the aggregated value (or the latest submission with --latest)",
		Long: `Read the aggregated value as the signer.

Reads are recorded: they settle the reader's stake and emit a ValueRead event.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("oracle", args[0])
			if err != nil {
				return err
			}
			c, err := a.signer()
			if err != nil {
				return err
			}
			v, err := c.Read(cmd.Context(), addr, latest)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), api.ReadResponse{Value: v}, func(w io.Writer) {
				fmt.Fprintln(w, v)
			})
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "return the latest submitted value")
	return cmd
}

type amountFunc func(*client.Client, context.Context, domain.Address, sdkmath.Int) error

// amountCmd builds the signed [oracle] [amount] commands.
func (a *app) amountCmd(use, short string, fn amountFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [oracle] [amount]",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("oracle", args[0])
			if err != nil {
				return err
			}
			amount, err := config.ParseAmount(args[1])
			if err != nil {
				return err
			}
			c, err := a.signer()
			if err != nil {
				return err
			}
			if err := fn(c, cmd.Context(), addr, amount); err != nil {
				return err
			}
			return a.ok(cmd.OutOrStdout(), fmt.Sprintf("%s %s on %s", use, amount, addr))
		},
	}
}

func (a *app) approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve [token] [spender] [amount]",
		Short: "Set the signer's allowance for spender (usually an oracle)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			spender, err := parseAddress("spender", args[1])
			if err != nil {
				return err
			}
			amount, err := config.ParseAmount(args[2])
			if err != nil {
				return err
			}
			c, err := a.signer()
			if err != nil {
				return err
			}
			if err := c.Approve(cmd.Context(), args[0], spender, amount); err != nil {
				return err
			}
			return a.ok(cmd.OutOrStdout(), fmt.Sprintf("approved %s %s for %s", amount, args[0], spender))
		},
	}
}

func (a *app) voteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vote [oracle] [blacklist|whitelist] [target]",
		Short: "Cast a stake-weighted blacklist or whitelist vote",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("oracle", args[0])
			if err != nil {
				return err
			}
			kind, err := domain.ParseBallotKind(args[1])
			if err != nil {
				return err
			}
			target, err := parseAddress("target", args[2])
			if err != nil {
				return err
			}
			c, err := a.signer()
			if err != nil {
				return err
			}
			if err := c.Vote(cmd.Context(), addr, kind, target); err != nil {
				return err
			}
			return a.ok(cmd.OutOrStdout(), fmt.Sprintf("voted %s %s", kind, target))
		},
	}
}

func (a *app) ownerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Owner-only operations",
	}

	simple := func(use, short string, fn func(*client.Client, context.Context, domain.Address) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " [oracle]",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				addr, err := parseAddress("oracle", args[0])
				if err != nil {
					return err
				}
				c, err := a.signer()
				if err != nil {
					return err
				}
				if err := fn(c, cmd.Context(), addr); err != nil {
					return err
				}
				return a.ok(cmd.OutOrStdout(), use+" "+string(addr))
			},
		}
	}

	cmd.AddCommand(
		simple("pause", "Pause the oracle", (*client.Client).Pause),
		simple("unpause", "Resume a paused oracle", (*client.Client).Unpause),
		simple("renounce", "Give up ownership for good", (*client.Client).RenounceOwnership),
		&cobra.Command{
			Use:   "transfer [oracle] [new-owner]",
			Short: "Transfer ownership",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				addr, err := parseAddress("oracle", args[0])
				if err != nil {
					return err
				}
				newOwner, err := parseAddress("new owner", args[1])
				if err != nil {
					return err
				}
				c, err := a.signer()
				if err != nil {
					return err
				}
				if err := c.TransferOwnership(cmd.Context(), addr, newOwner); err != nil {
					return err
				}
				return a.ok(cmd.OutOrStdout(), fmt.Sprintf("ownership of %s transferred to %s", addr, newOwner))
			},
		},
	)
	return cmd
}

func (a *app) ok(w io.Writer, msg string) error {
	return a.print(w, api.OKResponse{OK: true}, func(w io.Writer) {
		fmt.Fprintln(w, msg)
	})
}
