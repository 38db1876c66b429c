package frkbctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderdj/frkb-engine/internal/api"
)

func featureStatusCommand() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "feature-status [songID...]",
		Short: "Report whether each song id already has feature data on file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := api.GetSelectionFeatureStatus(context.Background(), storePath, args)
			if err != nil {
				return err
			}
			for _, item := range status {
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %t\n", item.SongID, item.HasFeatures)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "path to the feature store (.db file or library directory)")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}
