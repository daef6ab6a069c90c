package main

import (
	"fmt"
	"log"
	"os"

	"meta-anchor/conf"

	"github.com/spf13/cobra"
)

const programName = "anchord"

var globalFlags = struct {
	env    string
	config string
}{}

// @title           Meta Anchor API
// @version         1.0
// @description     Content anchoring service: store content, anchor its fingerprint on the ledger, reward submitters and resolve provenance
// @termsOfService  http://swagger.io/terms/

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:5000
// @BasePath  /api/v1

// @schemes https http

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Content anchoring service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().
		StringVar(&globalFlags.env, "env", "mainnet", "Environment: loc/dev/testnet/mainnet")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.config, "config", "", "path to config file, overrides --env")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initEnv()
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(registerCommand())
	rootCmd.AddCommand(resolveCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initEnv select environment and load configuration
func initEnv() error {
	env, err := conf.ParseEnvironment(globalFlags.env)
	if err != nil {
		return err
	}
	conf.SystemEnvironmentEnum = env
	conf.ConfigPath = globalFlags.config

	if err := conf.InitConfig(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	log.Printf("Configuration loaded: env=%s, config=%s, port=%s", globalFlags.env, conf.GetYaml(), conf.Cfg.Port)
	return nil
}
