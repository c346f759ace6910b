package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

func newDumpListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots: type, name, size, age, compressed, encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := buildStore(cfg)
			if err != nil {
				return snaperrors.New(snaperrors.KindObjectStore, err)
			}
			cat, _, err := catalog.Load(cmd.Context(), store)
			if err != nil {
				return snaperrors.New(snaperrors.KindObjectStore, err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ENGINE\tNAME\tSIZE\tAGE\tCOMPRESSED\tENCRYPTED")
			for _, snap := range cat.Snapshots {
				age := time.Since(time.UnixMilli(snap.CreatedAtMs)).Round(time.Second)
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%t\t%t\n",
					snap.Engine, snap.Name, snap.SizeBytes, age, snap.Compressed, snap.Encrypted)
			}
			return w.Flush()
		},
	}
}
