package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Stowage/internal/logger"
	"github.com/Ning0612/Stowage/internal/progress"
)

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <connection> [prefix]",
		Short: "List objects under a prefix",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) == 2 {
				prefix = args[1]
			}

			store, err := a.reg.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			entries, err := store.ListFiles(cmd.Context(), prefix)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tKEY")
			for _, e := range entries {
				size := progress.FormatBytes(e.Size)
				if e.IsFolder() {
					size = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, size, e.Key)
			}
			return tw.Flush()
		},
	}
}

func newPutCmd(a *app) *cobra.Command {
	var (
		public      bool
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "put <connection> <key> <file>",
		Short: "Upload a local file to key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, key, file := args[0], args[1], args[2]

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(file))
			}

			store, err := a.reg.Get(cmd.Context(), conn)
			if err != nil {
				return err
			}
			result, err := store.UploadFile(cmd.Context(), key, data, contentType, public)
			if err != nil {
				return err
			}

			logger.Get().Info("Uploaded object", "connection", conn, "key", result.Key, "bytes", len(data))
			fmt.Fprintf(a.stdout, "uploaded %s (%s) id=%s\n", result.Key, progress.FormatBytes(int64(len(data))), result.ID)
			if result.PublicURL != "" {
				fmt.Fprintln(a.stdout, result.PublicURL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "make the object publicly readable")
	cmd.Flags().StringVar(&contentType, "content-type", "", "MIME type (default guessed from the file extension)")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "get <connection> <key>",
		Short: "Download an object to a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, key := args[0], args[1]
			if out == "" {
				out = path.Base(key)
			}

			store, err := a.reg.Get(cmd.Context(), conn)
			if err != nil {
				return err
			}
			stream, err := store.GetStream(cmd.Context(), key)
			if err != nil {
				return err
			}
			defer stream.Close()

			if out == "-" {
				_, err := io.Copy(a.stdout, stream)
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}

			reporter := progress.NewCallbackReporter(progress.SpeedCallback(a.stderr))
			reporter.Start(key, 0)
			n, err := io.Copy(progress.NewProgressWriter(f, reporter, key), stream)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				reporter.Error(key, err)
				os.Remove(out)
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			reporter.Complete(key)

			logger.Get().Info("Downloaded object", "connection", conn, "key", key, "path", out, "bytes", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", `output file, "-" for stdout (default base name of key)`)
	return cmd
}

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <connection> <key>",
		Short: "Stream an object to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.reg.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			stream, err := store.GetStream(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			defer stream.Close()

			_, err = io.Copy(a.stdout, stream)
			return err
		},
	}
}

func newExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <connection> <key>",
		Short: "Print whether an object exists at key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.reg.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ok, err := store.Exists(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, ok)
			return nil
		},
	}
}

func newLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <connection> <key>",
		Short: "Print a URL that fetches the object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.reg.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			link, err := store.GetLink(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, link)
			return nil
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <connection> <key>",
		Short: "Delete the object at key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.reg.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), args[1]); err != nil {
				return err
			}
			logger.Get().Info("Deleted object", "connection", args[0], "key", args[1])
			fmt.Fprintf(a.stdout, "deleted %s\n", args[1])
			return nil
		},
	}
}
