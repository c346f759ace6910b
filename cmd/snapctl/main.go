// Command snapctl creates, lists, and restores sanitized database
// snapshots, per spec.md §6's command surface. Each verb resolves its
// configuration and calls straight into internal/pipeline, internal/restore,
// or internal/objectstore/catalog — this file and its siblings are wiring
// only, never business logic.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapctl/snapctl/internal/logging"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

var configPath string

func main() {
	logging.Init()

	root := &cobra.Command{
		Use:           "snapctl",
		Short:         "Sanitized, subsettable database snapshots",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "snapctl.yaml", "path to the YAML configuration file")

	dump := &cobra.Command{Use: "dump", Short: "Create, list, restore, and delete snapshots"}
	dump.AddCommand(newDumpCreateCmd())
	dump.AddCommand(newDumpListCmd())
	dump.AddCommand(newDumpRestoreCmd())
	dump.AddCommand(newDumpDeleteCmd())
	dump.AddCommand(newDumpReconcileCmd())
	root.AddCommand(dump)
	root.AddCommand(newTransformerCmd())

	err := root.Execute()
	if code := snaperrors.ExitCode(err); code != 0 {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}
}
