package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/autotest/internal/scoring"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display build information and the built-in scoring profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := scoring.DefaultProfile()
			fmt.Fprintf(cmd.OutOrStdout(), "autotest %s\ncommit: %s\nbuilt: %s\nscoring: %s %s\n",
				version, commit, date, profile.ScoreProc, profile.Version)
			return nil
		},
	}

	return cmd
}
