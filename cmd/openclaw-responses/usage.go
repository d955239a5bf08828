package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/young1lin/openclaw-responses/internal/storage"
)

var usageFlags struct {
	prefix string
	limit  int
}

var usageCmd = &cobra.Command{
	Use:   "usage [id]",
	Short: "Show recorded token usage",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewUsageStore(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		var records []storage.Record
		if len(args) == 1 {
			rec, found := store.Get(args[0])
			if !found {
				return fmt.Errorf("no usage record %q", args[0])
			}
			records = []storage.Record{*rec}
		} else {
			records, err = store.List(usageFlags.prefix, usageFlags.limit)
			if err != nil {
				return err
			}
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tMODEL\tMODE\tFINISH\tINPUT\tOUTPUT\tTOTAL\tCREATED")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.ID, r.Model, r.Mode, r.FinishReason,
				r.InputTokens, r.OutputTokens, r.TotalTokens,
				r.CreatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

func init() {
	usageCmd.Flags().StringVar(&usageFlags.prefix, "prefix", "", "only ids with this prefix")
	usageCmd.Flags().IntVarP(&usageFlags.limit, "limit", "n", 0, "maximum records (0 = all)")
}
