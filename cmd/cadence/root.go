package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type app struct {
	cfgFile string
	cfg     Config
	logger  zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "cadence",
		Short:         "Inspect and simulate retry policies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.logger(cmd)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (yaml, json or toml)")
	root.PersistentFlags().String("policies", "", "Policy document to load")
	root.PersistentFlags().String("env", "production", "Environment: development logs debug output to the console")
	root.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(newSimulateCmd(a), newValidateCmd(a))
	return root
}
