package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/asaidimu/go-ninja/server"
	"github.com/spf13/cobra"
)

func newQueryCmd(opts *options) *cobra.Command {
	var (
		league  string
		where   string
		orderby string
		count   bool
	)
	cmd := &cobra.Command{
		Use:   "query <collection>",
		Short: "Run one query and print the matching records as JSON",
		Example: `  go-ninja query currency --where '{"chaos_value":{"_gt":100}}' --orderby '[{"chaos_value":"desc"}]'
  go-ninja query item --league Hardcore --where '{"and":[{"links":{"_eq":6}},{"corrupted":{"_eq":false}}]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var target server.Collection
			var names []string
			for _, c := range a.bindings() {
				names = append(names, c.Name())
				if c.Name() == args[0] {
					target = c
				}
			}
			if target == nil {
				return fmt.Errorf("unknown collection %q (available: %s)", args[0], strings.Join(names, ", "))
			}

			req := server.Request{League: league}
			if where != "" {
				req.Where = json.RawMessage(where)
			}
			if orderby != "" {
				req.OrderBy = json.RawMessage(orderby)
			}

			data, n, err := target.Query(cmd.Context(), req)
			if err != nil {
				return err
			}
			if count {
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		},
	}
	cmd.Flags().StringVar(&league, "league", "", "league to query (default: the configured league)")
	cmd.Flags().StringVar(&where, "where", "", "filter expression as JSON")
	cmd.Flags().StringVar(&orderby, "orderby", "", "order specification as a JSON array (default: name ascending)")
	cmd.Flags().BoolVar(&count, "count", false, "print only the number of matching records")
	return cmd
}
