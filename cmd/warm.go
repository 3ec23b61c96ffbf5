package cmd

import (
	"fmt"

	"github.com/asaidimu/go-ninja/ninja"
	"github.com/spf13/cobra"
)

func newWarmCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "warm [league...]",
		Short: "Refresh stale snapshots of the given leagues",
		Long: `Build the currency and item snapshots of each league unless a fresh one is
already stored. Without arguments the warm.leagues from config are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			leagues := args
			if len(leagues) == 0 {
				leagues = a.warmLeagues()
			}
			job := &ninja.WarmJob{Collections: a.collections, Leagues: leagues, Timeout: warmTimeout, Logger: a.logger}
			if err := job.Run(); err != nil {
				return err
			}
			for _, league := range leagues {
				fmt.Fprintf(cmd.OutOrStdout(), "Warmed %s.\n", league)
			}
			return nil
		},
	}
}
