package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ning0612/Stowage/internal/domain"
	"github.com/Ning0612/Stowage/internal/logger"
)

const maskedSecret = "***"

// bucketEnsurer is implemented by backends that can create their bucket
type bucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

func newBucketCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Manage object storage buckets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure <connection>",
		Short: "Create the connection's bucket if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.reg.Connection(args[0])
			if err != nil {
				return err
			}
			store, err := a.reg.Get(cmd.Context(), conn.Name)
			if err != nil {
				return err
			}

			ensurer, ok := store.(bucketEnsurer)
			if !ok {
				return fmt.Errorf("%w: connection %s is %s, buckets need s3", domain.ErrUnsupportedBackend, conn.Name, conn.Type)
			}
			if err := ensurer.EnsureBucket(cmd.Context()); err != nil {
				return err
			}

			logger.Get().Info("Bucket ready", "connection", conn.Name, "bucket", conn.S3.Bucket)
			fmt.Fprintf(a.stdout, "bucket %s ready\n", conn.S3.Bucket)
			return nil
		},
	})
	return cmd
}

func newConnectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connections",
		Short: "Print the resolved connections with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conns := make([]domain.Connection, 0, len(a.cfg.Connections))
			for _, conn := range a.cfg.Connections {
				conns = append(conns, maskConnection(conn))
			}

			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(map[string]any{"connections": conns}); err != nil {
				return fmt.Errorf("failed to encode connections: %w", err)
			}
			return enc.Close()
		},
	}
}

// maskConnection returns a copy of conn with credentials replaced.
// The access key ID keeps its first four characters.
func maskConnection(conn domain.Connection) domain.Connection {
	if id := conn.S3.AccessKeyID; id != "" {
		if len(id) > 4 {
			conn.S3.AccessKeyID = id[:4] + maskedSecret
		} else {
			conn.S3.AccessKeyID = maskedSecret
		}
	}
	if conn.S3.SecretAccessKey != "" {
		conn.S3.SecretAccessKey = maskedSecret
	}
	if conn.Drive.PrivateKey != "" {
		conn.Drive.PrivateKey = maskedSecret
	}
	return conn
}
