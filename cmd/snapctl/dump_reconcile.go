package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

func newDumpReconcileCmd() *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Delete orphaned chunks not referenced by any catalog entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := buildStore(cfg)
			if err != nil {
				return snaperrors.New(snaperrors.KindObjectStore, err)
			}
			age, err := parseDays(olderThan)
			if err != nil {
				return snaperrors.New(snaperrors.KindConfig, err)
			}
			deleted, err := catalog.Reconcile(cmd.Context(), store, age)
			if err != nil {
				return snaperrors.New(snaperrors.KindObjectStore, err)
			}
			for _, key := range deleted {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "snapctl: reconciled %d orphaned object(s)\n", len(deleted))
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "1d", "delete orphaned objects older than N days, e.g. 1d")
	return cmd
}
