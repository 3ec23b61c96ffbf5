package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/asaidimu/go-ninja/core/cache"
	"github.com/asaidimu/go-ninja/sqlite"
	"github.com/spf13/cobra"
)

func newSnapshotsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect snapshots kept in a sqlite store",
	}

	withStore := func(run func(cmd *cobra.Command, args []string, s *sqlite.Store) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			s, ok := a.store.(*sqlite.Store)
			if !ok {
				return fmt.Errorf("snapshots requires cache.store sqlite, configured store is %s", a.cfg.Cache.Store)
			}
			return run(cmd, args, s)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		RunE: withStore(func(cmd *cobra.Command, args []string, s *sqlite.Store) error {
			entries, err := s.Entries(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshots.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tBYTES\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\n", e.Key, e.Bytes, e.UpdatedAt.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "drop <collection> <league>",
		Short: "Delete one snapshot so the next query rebuilds it",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, args []string, s *sqlite.Store) error {
			key := cache.Key(args[0], args[1])
			removed, err := s.Delete(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no snapshot stored under %s", key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped %s.\n", key)
			return nil
		}),
	})
	return cmd
}
