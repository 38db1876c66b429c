package frkbctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderdj/frkb-engine/internal/api"
)

func setLabelsCommand() *cobra.Command {
	var storePath, label string

	cmd := &cobra.Command{
		Use:   "set-labels [songID...]",
		Short: "Bulk-assign a label (liked/disliked/neutral) to song ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := api.SetSelectionLabels(context.Background(), storePath, args, label)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d changed=%d sampleChangeCount=%d\n",
				res.Total, res.Changed, res.SampleChangeCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "path to the label store (.db file or library directory)")
	cmd.Flags().StringVar(&label, "label", "", "liked, disliked, or neutral")
	_ = cmd.MarkFlagRequired("store")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}
