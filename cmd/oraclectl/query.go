package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"weighted-oracle/internal/api"
	"weighted-oracle/internal/domain"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.reader().Status(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), st, func(w io.Writer) {
				fmt.Fprintf(w, "factory:    %s\n", st.Factory)
				fmt.Fprintf(w, "oracles:    %d\n", st.Oracles)
				fmt.Fprintf(w, "tokens:     %d\n", st.Tokens)
				fmt.Fprintf(w, "ws clients: %d\n", st.WSClients)
				fmt.Fprintf(w, "uptime:     %ds\n", st.UptimeSeconds)
			})
		},
	}
}

func (a *app) tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List hosted token ledgers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := a.reader().Tokens(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), tokens, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SYMBOL\tADDRESS\tSUPPLY")
				for _, t := range tokens {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Symbol, t.Address, t.TotalSupply)
				}
				tw.Flush()
			})
		},
	}
}

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [token] [owner]",
		Short: "Show a token balance (token by symbol or address; owner defaults to the key)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var owner domain.Address
			if len(args) == 2 {
				var err error
				if owner, err = parseAddress("owner", args[1]); err != nil {
					return err
				}
			} else {
				kp, err := a.key()
				if err != nil {
					return err
				}
				owner = kp.Address
			}
			bal, err := a.reader().Balance(cmd.Context(), args[0], owner)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), bal, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s\n", bal.Balance, bal.Symbol)
			})
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every oracle in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := a.reader().Oracles(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), infos, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "INDEX\tNAME\tORACLE\tTOKEN\tCREATOR")
				for _, info := range infos {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", info.Index, info.Config.Name, info.Oracle, info.Token, info.Creator)
				}
				tw.Flush()
			})
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [oracle]",
		Short: "Show the state of an oracle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("oracle", args[0])
			if err != nil {
				return err
			}
			v, err := a.reader().Oracle(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), v, func(w io.Writer) { printOracle(w, v) })
		},
	}
}

func printOracle(w io.Writer, v *api.OracleView) {
	cfg := v.Info.Config
	fmt.Fprintf(w, "oracle:          %s\n", v.Info.Oracle)
	fmt.Fprintf(w, "name:            %s\n", cfg.Name)
	if cfg.Description != "" {
		fmt.Fprintf(w, "description:     %s\n", cfg.Description)
	}
	fmt.Fprintf(w, "owner:           %s\n", v.Owner)
	fmt.Fprintf(w, "paused:          %v\n", v.Paused)
	fmt.Fprintf(w, "weight token:    %s\n", cfg.WeightToken)
	fmt.Fprintf(w, "half-life:       %ds\n", cfg.HalfLifeSeconds)
	fmt.Fprintf(w, "quorum:          %d bps\n", cfg.Quorum)
	fmt.Fprintf(w, "locks:           deposit %ds, withdrawal %ds\n", cfg.DepositLockingPeriod, cfg.WithdrawalLockingPeriod)
	fmt.Fprintf(w, "reward:          %d/%d, alpha %d\n", cfg.Reward, domain.RewardDenominator, cfg.Alpha)
	fmt.Fprintf(w, "aggregated:      %s\n", v.Consensus.AggregatedPrice)
	fmt.Fprintf(w, "latest value:    %s\n", v.Consensus.LatestValue)
	fmt.Fprintf(w, "last finalized:  %s at %s\n", v.Consensus.LastFinalizedPrice, formatUnix(v.Consensus.LastFinalizedTime))
	fmt.Fprintf(w, "total deposited: %s\n", v.TotalDeposited)
	fmt.Fprintf(w, "reward balance:  %s\n", v.Balance)
	fmt.Fprintf(w, "submissions:     %d\n", v.HistoryLength)
}

func (a *app) historyCmd() *cobra.Command {
	var start, end uint64
	cmd := &cobra.Command{
		Use:   "history [oracle]",
		Short: "Show the submission history of an oracle",
		Long: `Show the submission history of an oracle.

--start and --end select positions [start, end) of the history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("oracle", args[0])
			if err != nil {
				return err
			}
			c := a.reader()
			var h *domain.PriceHistory
			if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") {
				h, err = c.HistoryRange(cmd.Context(), addr, start, end)
			} else {
				h, err = c.History(cmd.Context(), addr)
			}
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), h, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "#\tTIME\tVALUE\tAGGREGATE")
				for i := range h.Timestamps {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", start+uint64(i), formatUnix(h.Timestamps[i]), h.LatestValues[i], h.AggregatedPrices[i])
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().Uint64Var(&start, "start", 0, "first position")
	cmd.Flags().Uint64Var(&end, "end", 0, "end position (exclusive)")
	return cmd
}

func (a *app) eventsCmd() *cobra.Command {
	var from, to uint64
	cmd := &cobra.Command{
		Use:   "events [oracle]",
		Short: "List stored events of an oracle by sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("oracle", args[0])
			if err != nil {
				return err
			}
			events, err := a.reader().Events(cmd.Context(), addr, from, to)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), events, func(w io.Writer) {
				for i := range events {
					printEvent(w, &events[i])
				}
			})
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 1, "first sequence")
	cmd.Flags().Uint64Var(&to, "to", 1<<63, "last sequence")
	return cmd
}

func (a *app) participantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "participant [oracle] [account]",
		Short: "Show the stake, weight and submission state of an account",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("oracle", args[0])
			if err != nil {
				return err
			}
			account, err := a.accountArg(args, 1)
			if err != nil {
				return err
			}
			p, err := a.reader().Participant(cmd.Context(), addr, account)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), p, func(w io.Writer) {
				fmt.Fprintf(w, "account:               %s\n", p.Participant.Address)
				fmt.Fprintf(w, "locked:                %s\n", p.Participant.LockedTokens)
				fmt.Fprintf(w, "unlocked:              %s\n", p.Participant.UnlockedTokens)
				fmt.Fprintf(w, "locked for withdrawal: %s\n", p.Participant.LockedForWithdrawal)
				fmt.Fprintf(w, "weight:                %s\n", p.Weight)
				fmt.Fprintf(w, "unlock time:           %s\n", formatUnix(p.UnlockTime))
				fmt.Fprintf(w, "last submission:       %s at %s\n", p.Submitter.LastSubmittedPrice, formatUnix(p.Submitter.LastSubmittedTime))
				fmt.Fprintf(w, "blacklisted:           %v\n", p.Blacklisted)
			})
		},
	}
}

func (a *app) votesCmd() *cobra.Command {
	var voter string
	cmd := &cobra.Command{
		Use:   "votes [oracle] [target]",
		Short: "Show blacklist and whitelist tallies for a target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("oracle", args[0])
			if err != nil {
				return err
			}
			target, err := parseAddress("target", args[1])
			if err != nil {
				return err
			}
			var voterAddr domain.Address
			if voter != "" {
				if voterAddr, err = parseAddress("voter", voter); err != nil {
					return err
				}
			}
			v, err := a.reader().Votes(cmd.Context(), addr, target, voterAddr)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), v, func(w io.Writer) {
				fmt.Fprintf(w, "target:          %s\n", v.Target)
				fmt.Fprintf(w, "blacklisted:     %v\n", v.Blacklisted)
				fmt.Fprintf(w, "blacklist votes: %s\n", v.BlacklistVotes)
				fmt.Fprintf(w, "whitelist votes: %s\n", v.WhitelistVotes)
				if v.Voter != nil {
					fmt.Fprintf(w, "voter %s: blacklist %s on %d target(s), whitelist %s on %d target(s)\n",
						v.Voter.Voter, v.Voter.BlacklistWeight, len(v.Voter.BlacklistTargets),
						v.Voter.WhitelistWeight, len(v.Voter.WhitelistTargets))
				}
			})
		},
	}
	cmd.Flags().StringVar(&voter, "voter", "", "also show the ballots of this voter")
	return cmd
}

// accountArg returns args[i] as an address, or the key's address when absent.
func (a *app) accountArg(args []string, i int) (domain.Address, error) {
	if len(args) > i {
		return parseAddress("account", args[i])
	}
	kp, err := a.key()
	if err != nil {
		return "", err
	}
	return kp.Address, nil
}

func printEvent(w io.Writer, e *domain.Event) {
	line := "[" + formatUnix(e.Timestamp) + "] seq=" + strconv.FormatUint(e.Sequence, 10) + " " + string(e.Type)
	if e.Account != "" {
		line += " account=" + string(e.Account)
	}
	if e.Target != "" {
		line += " target=" + string(e.Target)
	}
	switch e.Type {
	case domain.EventPriceSubmitted:
		line += fmt.Sprintf(" value=%s aggregate=%s weight=%s reward=%s final=%v", e.Value, e.Aggregate, e.Weight, e.Amount, e.Flag)
	case domain.EventTokenDeposited, domain.EventTokenWithdrawn, domain.EventFunded:
		line += " amount=" + e.Amount.String()
	case domain.EventVoted:
		line += fmt.Sprintf(" kind=%s weight=%s", e.Kind, e.Weight)
	case domain.EventBlacklistStatusChanged:
		line += fmt.Sprintf(" blacklisted=%v", e.Flag)
	case domain.EventValueRead:
		line += fmt.Sprintf(" value=%s latest=%v", e.Value, e.Flag)
	}
	fmt.Fprintln(w, line)
}
