package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapctl/snapctl/internal/transform"
)

func newTransformerCmd() *cobra.Command {
	root := &cobra.Command{Use: "transformer", Short: "Inspect available value transformers"}
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the registered transformer names",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range transform.List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})
	return root
}
