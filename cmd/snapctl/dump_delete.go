package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapctl/snapctl/internal/restore"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

func newDumpDeleteCmd() *cobra.Command {
	var (
		olderThan string
		keepLast  int
	)

	cmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a snapshot by name, by age, or by count",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := buildStore(cfg)
			if err != nil {
				return snaperrors.New(snaperrors.KindObjectStore, err)
			}

			switch {
			case len(args) == 1:
				return restore.DeleteByName(cmd.Context(), store, args[0])
			case olderThan != "":
				age, err := parseDays(olderThan)
				if err != nil {
					return snaperrors.New(snaperrors.KindConfig, err)
				}
				return restore.DeleteOlderThan(cmd.Context(), store, age)
			case keepLast > 0:
				return restore.DeleteKeepLast(cmd.Context(), store, keepLast)
			default:
				return snaperrors.New(snaperrors.KindConfig,
					fmt.Errorf("dump delete: specify a name, --older-than, or --keep-last"))
			}
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "", "delete snapshots older than N days, e.g. 30d")
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep only the N most recent snapshots")
	return cmd
}
