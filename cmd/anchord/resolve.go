package main

import (
	"encoding/json"
	"fmt"
	"os"

	"meta-anchor/indexer"

	"github.com/spf13/cobra"
)

func resolveCommand() *cobra.Command {
	var window uint64
	cmd := &cobra.Command{
		Use:   "resolve <fingerprint|tx_hash>",
		Short: "Find the anchor transaction of a fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			resolver := a.resolver
			if window > 0 {
				resolver = indexer.NewProvenanceResolver(a.client, a.contract, window)
			}
			resolver.Scanner().EnableProgressBar()

			var result interface{}
			if indexer.IsTxHash(args[0]) {
				result, err = resolver.ResolveTx(cmd.Context(), args[0])
			} else {
				result, err = resolver.Resolve(cmd.Context(), args[0])
			}
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().Uint64Var(&window, "window", 0, "blocks to scan below the head, 0 uses the configured window")
	return cmd
}
