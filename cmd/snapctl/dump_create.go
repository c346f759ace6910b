package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/snapctl/snapctl/internal/engine"
	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/pipeline"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

func newDumpCreateCmd() *cobra.Command {
	var (
		engineFlag       string
		fromStdin        bool
		fromFile         string
		name             string
		promptPassphrase bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a snapshot from the configured source, standard input, or a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if promptPassphrase {
				key, err := readPassphrase("Encryption passphrase: ")
				if err != nil {
					return snaperrors.New(snaperrors.KindConfig, err)
				}
				cfg.EncryptionKey = key
			}
			store, err := buildStore(cfg)
			if err != nil {
				return snaperrors.New(snaperrors.KindObjectStore, err)
			}

			var (
				eng  engine.Engine
				open pipeline.SourceOpener
			)
			switch {
			case fromStdin:
				eng, err = resolveEngine(engineFlag, "")
				if err != nil {
					return snaperrors.New(snaperrors.KindConfig, err)
				}
				open, err = bufferedOpener(os.Stdin)
				if err != nil {
					return snaperrors.New(snaperrors.KindSource, err)
				}
			case fromFile != "":
				eng, err = resolveEngine(engineFlag, "")
				if err != nil {
					return snaperrors.New(snaperrors.KindConfig, err)
				}
				open = fileOpener(fromFile)
			default:
				eng, err = resolveEngine(engineFlag, cfg.Source.ConnectionURI)
				if err != nil {
					return snaperrors.New(snaperrors.KindConfig, err)
				}
				conn, err := engine.ParseConnectionURI(eng, cfg.Source.ConnectionURI)
				if err != nil {
					return snaperrors.New(snaperrors.KindConfig, err)
				}
				if err := conn.Ping(cmd.Context()); err != nil {
					return snaperrors.New(snaperrors.KindSource, err)
				}
				open = liveOpener(conn)
			}

			if name == "" {
				name = fmt.Sprintf("%s-%s", eng.String(), uuid.NewString())
			}

			snap, err := pipeline.Backup(cmd.Context(), pipeline.BackupOptions{
				SnapshotName:     name,
				Engine:           eng,
				Open:             open,
				Source:           cfg.Source,
				Store:            store,
				Compress:         true,
				EncryptionKey:    cfg.EncryptionKey,
				ProgressInterval: 5 * time.Second,
				OnProgress: func(bytesIn, bytesOut int64) {
					fmt.Fprintf(os.Stderr, "snapctl: %s bytes in=%d out=%d\n", name, bytesIn, bytesOut)
				},
			})
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap)
		},
	}

	cmd.Flags().StringVarP(&engineFlag, "source-engine", "s", "", "source database engine (postgres, mysql, mongodb)")
	cmd.Flags().BoolVarP(&fromStdin, "stdin", "i", false, "read the dump from standard input instead of connecting to the configured source")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "read the dump from a local file instead of connecting to the configured source")
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default: <engine>-<uuid>)")
	cmd.Flags().BoolVar(&promptPassphrase, "prompt-passphrase", false, "prompt for the encryption passphrase instead of reading encryption_key from the config file")
	return cmd
}

func printSnapshot(cmd *cobra.Command, snap catalog.Snapshot) error {
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d bytes\tcompressed=%t\tencrypted=%t\n",
		snap.Name, snap.Engine, snap.SizeBytes, snap.Compressed, snap.Encrypted)
	return nil
}
