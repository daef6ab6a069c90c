package main

import (
	"encoding/json"
	"errors"
	"os"

	"meta-anchor/common"

	"github.com/spf13/cobra"
)

func registerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register <user_id>",
		Short: "Register a user and print its wallet and private key",
		Long:  "Register a user, grant the initial token amount and print the identity as JSON. The private key is not stored and cannot be shown again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			identity, err := a.users.Register(cmd.Context(), args[0])
			if identity == nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(identity); encErr != nil {
				return encErr
			}
			// the identity exists even when the grant failed
			if err != nil && !errors.Is(err, common.ErrRewardFailed) {
				return err
			}
			return nil
		},
	}
}
