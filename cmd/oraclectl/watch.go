package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"weighted-oracle/internal/api"
	"weighted-oracle/internal/client"
)

func (a *app) watchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "watch [oracle]",
		Short: "Stream live events of one oracle (or all oracles when omitted)",
		Long: `Stream committed events over WebSocket until interrupted.

The stream reconnects and resubscribes on connection loss. Events committed
while disconnected are not replayed; use "oraclectl events" to fill gaps.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := api.AllOracles
			if len(args) == 1 {
				addr, err := parseAddress("oracle", args[0])
				if err != nil {
					return err
				}
				target = string(addr)
			}

			ctx := cmd.Context()
			w, err := client.NewWatcher(ctx, client.WSURL(a.endpoint), nil)
			if err != nil {
				return err
			}
			defer w.Close()

			events, err := w.Subscribe(ctx, target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			for n := 0; limit == 0 || n < limit; n++ {
				select {
				case <-ctx.Done():
					return nil
				case e, ok := <-events:
					if !ok {
						return fmt.Errorf("event stream closed")
					}
					if a.jsonOutput {
						if err := enc.Encode(e); err != nil {
							return err
						}
						continue
					}
					fmt.Fprintf(out, "%s ", e.Oracle)
					printEvent(out, &e)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "exit after this many events (0: unlimited)")
	return cmd
}
