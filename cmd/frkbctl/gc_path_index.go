package frkbctl

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coderdj/frkb-engine/internal/api"
)

func gcPathIndexCommand() *cobra.Command {
	var storePath string
	var ttlDays int

	cmd := &cobra.Command{
		Use:   "gc-path-index",
		Short: "Manually trigger the path-index TTL/overflow garbage collection pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := api.GCSelectionPathIndex(context.Background(), storePath, time.Now().UnixMilli(), api.PathIndexGCOptions{
				TTLDays: ttlDays,
			})
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "skipped: debounce interval not yet elapsed")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "before=%d after=%d deletedOld=%d deletedOverflow=%d\n",
				res.Before, res.After, res.DeletedOld, res.DeletedOverflow)
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "path to the path-index store (.db file or library directory)")
	cmd.Flags().IntVar(&ttlDays, "ttl-days", 30, "rows not seen in this many days are eligible for deletion")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}
