package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/snapctl/snapctl/internal/engine"
	"github.com/snapctl/snapctl/internal/restore"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

func newDumpRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "restore", Short: "Restore a snapshot"}
	cmd.AddCommand(newDumpRestoreLocalCmd())
	cmd.AddCommand(newDumpRestoreRemoteCmd())
	return cmd
}

func newDumpRestoreRemoteCmd() *cobra.Command {
	var (
		snapshotName     string
		promptPassphrase bool
	)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Restore a snapshot into the configured destination",
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
			eng, err := resolveEngine("", cfg.Destination.ConnectionURI)
			if err != nil {
				return snaperrors.New(snaperrors.KindConfig, err)
			}
			conn, err := engine.ParseConnectionURI(eng, cfg.Destination.ConnectionURI)
			if err != nil {
				return snaperrors.New(snaperrors.KindConfig, err)
			}
			if err := conn.Ping(cmd.Context()); err != nil {
				return snaperrors.New(snaperrors.KindDestination, err)
			}

			snap, err := restore.Restore(cmd.Context(), restore.Options{
				SnapshotName:     snapshotName,
				Store:            store,
				EncryptionKey:    cfg.EncryptionKey,
				Connection:       &conn,
				ProgressInterval: 5 * time.Second,
				OnProgress: func(bytesOut int64) {
					fmt.Fprintf(os.Stderr, "snapctl: restore %s bytes out=%d\n", snapshotName, bytesOut)
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s into %s\n", snap.Name, conn.Database)
			return nil
		},
	}
	cmd.Flags().StringVarP(&snapshotName, "snapshot", "v", "latest", "snapshot name, or \"latest\"")
	cmd.Flags().BoolVar(&promptPassphrase, "prompt-passphrase", false, "prompt for the encryption passphrase instead of reading encryption_key from the config file")
	return cmd
}

func newDumpRestoreLocalCmd() *cobra.Command {
	var (
		snapshotName     string
		image            string
		port             int
		toStdout         bool
		promptPassphrase bool
	)

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Restore a snapshot into a locally spawned container, or to standard output",
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

			if toStdout {
				snap, err := restore.Restore(cmd.Context(), restore.Options{
					SnapshotName:  snapshotName,
					Store:         store,
					EncryptionKey: cfg.EncryptionKey,
					Dest:          cmd.OutOrStdout(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "snapctl: wrote %s to standard output\n", snap.Name)
				return nil
			}

			if port == 0 {
				return snaperrors.New(snaperrors.KindConfig, fmt.Errorf("dump restore local: --port is required unless --stdout is set"))
			}
			eng, err := resolveEngine("", cfg.Destination.ConnectionURI)
			if err != nil {
				return snaperrors.New(snaperrors.KindConfig, err)
			}
			if image == "" {
				image = defaultContainerImage(eng)
			}

			conn, err := spawnLocalContainer(cmd.Context(), eng, image, port)
			if err != nil {
				return snaperrors.New(snaperrors.KindDestination, err)
			}

			snap, err := restore.Restore(cmd.Context(), restore.Options{
				SnapshotName:  snapshotName,
				Store:         store,
				EncryptionKey: cfg.EncryptionKey,
				Connection:    &conn,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s into %s on port %d\n", snap.Name, image, port)
			return nil
		},
	}

	cmd.Flags().StringVarP(&snapshotName, "snapshot", "v", "latest", "snapshot name, or \"latest\"")
	cmd.Flags().StringVarP(&image, "image", "i", "", "container image to spawn (default per destination engine)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "host port to publish the spawned container on")
	cmd.Flags().BoolVarP(&toStdout, "stdout", "o", false, "write the reconstructed dump to standard output instead of spawning a container")
	cmd.Flags().BoolVar(&promptPassphrase, "prompt-passphrase", false, "prompt for the encryption passphrase instead of reading encryption_key from the config file")
	return cmd
}

func defaultContainerImage(e engine.Engine) string {
	switch e {
	case engine.Postgres:
		return "postgres:16"
	case engine.MySQL:
		return "mysql:8"
	case engine.MongoDB:
		return "mongo:7"
	default:
		return ""
	}
}

// spawnLocalContainer starts image via `docker run`, publishing its
// engine's native port on the host as port, and waits for that port to
// accept connections before returning a Connection pointing at it.
func spawnLocalContainer(ctx context.Context, e engine.Engine, image string, port int) (engine.Connection, error) {
	conn := engine.Connection{Engine: e, Host: "127.0.0.1", Port: port, Database: "postgres", User: "postgres"}
	switch e {
	case engine.MySQL:
		conn.Database = "mysql"
		conn.User = "root"
	case engine.MongoDB:
		conn.Database = "admin"
		conn.User = ""
	}

	containerPort := defaultPortFor(e)
	runCmd := exec.CommandContext(ctx, "docker", "run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:%d", port, containerPort),
		"-e", "POSTGRES_HOST_AUTH_METHOD=trust",
		"-e", "MYSQL_ALLOW_EMPTY_PASSWORD=yes",
		image)
	if err := runCmd.Run(); err != nil {
		return engine.Connection{}, fmt.Errorf("docker run %s: %w", image, err)
	}

	if err := waitForPort(ctx, conn.Host, port); err != nil {
		return engine.Connection{}, fmt.Errorf("waiting for %s to accept connections: %w", image, err)
	}
	return conn, nil
}

func defaultPortFor(e engine.Engine) int {
	switch e {
	case engine.Postgres:
		return 5432
	case engine.MySQL:
		return 3306
	case engine.MongoDB:
		return 27017
	default:
		return 0
	}
}

// waitForPort retries a TCP dial with exponential backoff until address
// host:port accepts connections or ctx is done.
func waitForPort(ctx context.Context, host string, port int) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(func() error {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), 2*time.Second)
		if err != nil {
			return err
		}
		return conn.Close()
	}, policy)
}
