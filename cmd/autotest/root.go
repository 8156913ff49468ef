package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose    bool
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "autotest",
		Short:         "autotest audits web pages for accessibility and scores the deficits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the settings file (default autotest.yaml)")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newDocCmd(flags))
	cmd.AddCommand(newRescoreCmd(flags))
	cmd.AddCommand(newAddTestCmd(flags))
	cmd.AddCommand(newCompareCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
