package main

import (
	"github.com/spf13/cobra"

	"core-ledger/internal/config"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "ledgerctl drives the core ledger and fraud detector",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "set the config file path")

	loadConfig := func() (*config.Config, error) {
		return config.Load(cfgFile)
	}

	rootCmd.AddCommand(newDemoCmd(loadConfig))
	rootCmd.AddCommand(newServeCmd(loadConfig))

	return rootCmd
}
