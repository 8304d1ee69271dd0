package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"weighted-oracle/internal/signing"
)

type keyOutput struct {
	Address string `json:"address"`
	Secret  string `json:"secret,omitempty"`
}

func (a *app) keygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 signing key",
		Long: `Generate a new signing key and print its address.

With --out the secret is written to a file (mode 0600) instead of stdout.

Examples:
  $ oraclectl keygen --out alice.key
  $ ORACLE_KEY_FILE=alice.key oraclectl address`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := signing.GenerateKey()
			if err != nil {
				return err
			}
			res := keyOutput{Address: string(kp.Address)}
			if out != "" {
				if err := os.WriteFile(out, []byte(kp.Secret()+"\n"), 0o600); err != nil {
					return fmt.Errorf("write key file: %w", err)
				}
			} else {
				res.Secret = kp.Secret()
			}
			return a.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "address: %s\n", res.Address)
				if res.Secret != "" {
					fmt.Fprintf(w, "secret:  %s\n", res.Secret)
				} else {
					fmt.Fprintf(w, "secret written to %s\n", out)
				}
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the secret to this file")
	return cmd
}

func (a *app) addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the address of the configured signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := a.key()
			if err != nil {
				return err
			}
			res := keyOutput{Address: string(kp.Address)}
			return a.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintln(w, res.Address)
			})
		},
	}
}
