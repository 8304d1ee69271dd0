// Command oraclectl talks to an oracle server: it manages keys, creates and
// inspects oracles, signs state changes and streams events.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"weighted-oracle/internal/client"
	"weighted-oracle/internal/config"
	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/signing"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app holds the persistent flags shared by every subcommand.
type app struct {
	endpoint   string
	secret     string
	keyFile    string
	timeout    time.Duration
	maxRetries int
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "oraclectl",
		Short:        "Command line client for the weighted oracle service",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.endpoint, "endpoint", config.Env("ORACLE_ENDPOINT", "http://localhost:8080"), "server base URL")
	pf.StringVar(&a.secret, "key", config.Env("ORACLE_KEY", ""), "base58 signing key secret")
	pf.StringVar(&a.keyFile, "key-file", config.Env("ORACLE_KEY_FILE", ""), "file holding the signing key secret")
	pf.DurationVar(&a.timeout, "timeout", config.EnvDuration("ORACLE_TIMEOUT", client.DefaultTimeout), "per-request timeout")
	pf.IntVar(&a.maxRetries, "max-retries", config.EnvInt("ORACLE_MAX_RETRIES", client.DefaultMaxRetries), "retries on transport errors, 429 and 5xx")
	pf.BoolVar(&a.jsonOutput, "json", false, "print JSON")

	root.AddCommand(
		a.keygenCmd(),
		a.addressCmd(),
		a.statusCmd(),
		a.tokensCmd(),
		a.balanceCmd(),
		a.createCmd(),
		a.listCmd(),
		a.showCmd(),
		a.historyCmd(),
		a.eventsCmd(),
		a.participantCmd(),
		a.votesCmd(),
		a.submitCmd(),
		a.readCmd(),
		a.amountCmd("deposit", "Stake weight tokens (approve the oracle first)", (*client.Client).Deposit),
		a.amountCmd("withdraw", "Withdraw unlocked stake", (*client.Client).Withdraw),
		a.amountCmd("fund", "Fund the reward balance with native tokens", (*client.Client).Fund),
		a.approveCmd(),
		a.voteCmd(),
		a.ownerCmd(),
		a.watchCmd(),
	)
	return root
}

// key loads the signing key from --key or --key-file.
func (a *app) key() (*signing.KeyPair, error) {
	secret := a.secret
	if secret == "" && a.keyFile != "" {
		data, err := os.ReadFile(a.keyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		secret = strings.TrimSpace(string(data))
	}
	if secret == "" {
		return nil, fmt.Errorf("a signing key is required (--key, --key-file or ORACLE_KEY)")
	}
	return signing.KeyPairFromSecret(secret)
}

func (a *app) reader() *client.Client {
	return client.New(a.endpoint,
		client.WithTimeout(a.timeout),
		client.WithMaxRetries(a.maxRetries),
	)
}

func (a *app) signer() (*client.Client, error) {
	kp, err := a.key()
	if err != nil {
		return nil, err
	}
	return client.New(a.endpoint,
		client.WithTimeout(a.timeout),
		client.WithMaxRetries(a.maxRetries),
		client.WithKey(kp),
	), nil
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (a *app) print(w io.Writer, v any, text func(io.Writer)) error {
	if a.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func parseAddress(name, s string) (domain.Address, error) {
	addr, err := domain.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", name, err)
	}
	return addr, nil
}

func formatUnix(ts uint64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}
