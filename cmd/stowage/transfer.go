package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Stowage/internal/progress"
	"github.com/Ning0612/Stowage/internal/service"
)

func newCpCmd(a *app) *cobra.Command {
	var (
		workers      int
		public       bool
		skipExisting bool
		quiet        bool
	)

	cmd := &cobra.Command{
		Use:   "cp <source> <source-prefix> <target> <target-prefix>",
		Short: "Copy every object under a prefix to another connection",
		Long: `Copy every object under source-prefix of the source connection to the
same relative path under target-prefix of the target connection.
Use "" as a prefix for the connection root. The first failed object
stops the run. With --skip-existing, objects already present in the
target with the same size are not copied again.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []service.TransferOption{service.WithWorkers(workers)}
			if !quiet {
				opts = append(opts, service.WithReporter(progress.NewCallbackReporter(progress.TextCallback(a.stdout))))
			}
			svc := service.NewTransferService(a.reg, opts...)

			result, err := svc.Copy(cmd.Context(), service.TransferRequest{
				Source:       args[0],
				SourcePrefix: args[1],
				Target:       args[2],
				TargetPrefix: args[3],
				Public:       public,
				SkipExisting: skipExisting,
			})
			if err == nil || result.Files > 0 {
				fmt.Fprintf(a.stdout, "copied %d files (%s), %d unchanged, %d skipped, run %s\n",
					result.Files, progress.FormatBytes(result.Bytes), result.Unchanged, result.Skipped, result.RunID)
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", service.DefaultWorkers, "concurrent object copies")
	cmd.Flags().BoolVar(&public, "public", false, "make copied objects publicly readable")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "leave out objects the target holds with the same size")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print the summary")
	return cmd
}
