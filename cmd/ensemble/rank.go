package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/ensemble/ensemble"
	"github.com/c360studio/ensemble/ranking"
)

func rankCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank ensemble members from a snapshot",
	}
	cmd.AddCommand(rankDataCmd(c))
	cmd.AddCommand(rankMisfitCmd(c))
	return cmd
}

func rankDataCmd(c *cli) *cobra.Command {
	var (
		snapshotPath string
		node         string
		userKey      string
		index        string
		step         int
		decreasing   bool
		exportPath   string
	)

	cmd := &cobra.Command{
		Use:   "data KEY",
		Short: "Rank members by a simulated value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, reg, err := loadSnapshotRegistry(snapshotPath)
			if err != nil {
				return err
			}
			nodeKey := node
			if nodeKey == "" {
				nodeKey = userKey
			}

			key := args[0]
			if err := reg.AddDataRanking(key, !decreasing, userKey, index, snap, snap.Node(nodeKey), step); err != nil {
				return err
			}
			return showRanking(cmd, reg, key, exportPath)
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Ensemble snapshot file")
	cmd.Flags().StringVar(&userKey, "user-key", "", "User key of the ranked value")
	cmd.Flags().StringVar(&node, "node", "", "Snapshot node (default: the user key)")
	cmd.Flags().StringVar(&index, "index", "", "Index key narrowing the value")
	cmd.Flags().IntVar(&step, "step", 0, "Report step")
	cmd.Flags().BoolVar(&decreasing, "decreasing", false, "Sort largest value first")
	cmd.Flags().StringVar(&exportPath, "export", "", "Also write the ranking table to this file")
	_ = cmd.MarkFlagRequired("snapshot")
	_ = cmd.MarkFlagRequired("user-key")
	return cmd
}

func rankMisfitCmd(c *cli) *cobra.Command {
	var (
		snapshotPath string
		obs          []string
		steps        []int
		exportPath   string
	)

	cmd := &cobra.Command{
		Use:   "misfit KEY",
		Short: "Rank members by total misfit against observations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, reg, err := loadSnapshotRegistry(snapshotPath)
			if err != nil {
				return err
			}
			obsKeys := obs
			if len(obsKeys) == 0 {
				obsKeys = snap.ObsKeys()
			}

			key := args[0]
			if err := reg.AddMisfitRanking(key, snap, obsKeys, steps); err != nil {
				return err
			}
			return showRanking(cmd, reg, key, exportPath)
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Ensemble snapshot file")
	cmd.Flags().StringSliceVar(&obs, "obs", nil, "Observation keys (default: all in the snapshot)")
	cmd.Flags().IntSliceVar(&steps, "steps", nil, "Report steps (default: all)")
	cmd.Flags().StringVar(&exportPath, "export", "", "Also write the ranking table to this file")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func loadSnapshotRegistry(path string) (*ensemble.Snapshot, *ranking.Registry, error) {
	snap, err := ensemble.Load(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := ranking.NewRegistry(snap.EnsembleSize())
	if err != nil {
		return nil, nil, err
	}
	return snap, reg, nil
}

func showRanking(cmd *cobra.Command, reg *ranking.Registry, key, exportPath string) error {
	if err := reg.Display(key, cmd.OutOrStdout()); err != nil {
		return err
	}
	if exportPath == "" {
		return nil
	}
	if err := reg.ExportToFile(key, exportPath); err != nil {
		return fmt.Errorf("export ranking: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported ranking %q to %s\n", key, exportPath)
	return nil
}
