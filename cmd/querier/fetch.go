package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Karekin/influxdb/internal/storage"
	"github.com/Karekin/influxdb/pkg/types"
)

func newFetchCommand(root *rootOptions) *cobra.Command {
	var (
		tableID     int64
		dir         string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the parquet files of a table's chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chunks, err := root.app.Querier().TableChunks(cmd.Context(), types.TableID(tableID))
			if err != nil {
				return err
			}

			paths := make([]string, len(chunks))
			for i, c := range chunks {
				paths[i] = c.ParquetChunk().ObjectPath()
			}

			downloader := storage.NewBatchDownloader(root.app.Storage(), concurrency, dir)
			result, err := downloader.Download(cmd.Context(), paths)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d downloaded (%d bytes), %d already present, %d failed\n",
				result.Downloads, result.Bytes, result.CacheHits, len(result.Errors))

			failed := make([]string, 0, len(result.Errors))
			for p := range result.Errors {
				failed = append(failed, p)
			}
			sort.Strings(failed)
			for _, p := range failed {
				fmt.Fprintf(out, "  %s: %v\n", p, result.Errors[p])
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d objects failed to download", len(failed))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&tableID, "table-id", 0, "table whose files are downloaded")
	flags.StringVar(&dir, "dir", ".", "destination directory")
	flags.IntVar(&concurrency, "concurrency", 4, "parallel downloads")
	if err := cmd.MarkFlagRequired("table-id"); err != nil {
		panic(fmt.Sprintf("failed to mark table-id flag as required: %v", err))
	}
	return cmd
}
