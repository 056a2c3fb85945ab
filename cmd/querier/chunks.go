package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Karekin/influxdb/internal/chunk"
	"github.com/Karekin/influxdb/pkg/types"
)

func newChunksCommand(root *rootOptions) *cobra.Command {
	var tableID int64

	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Build and list the chunks of live parquet files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				chunks []*chunk.CatalogChunk
				err    error
			)
			if tableID > 0 {
				chunks, err = root.app.Querier().TableChunks(cmd.Context(), types.TableID(tableID))
			} else {
				chunks, err = root.app.Querier().Chunks(cmd.Context())
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tORDER\tROWS\tBYTES\tSTORAGE")
			for _, c := range chunks {
				pc := c.ParquetChunk()
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
					c.Addr(), c.Order().Get(), pc.RowCount(), pc.FileSizeBytes(), c.Storage())
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&tableID, "table-id", 0, "only build chunks of this table")
	return cmd
}

func newAddrCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "addr <parquet-file-id>",
		Short: "Print the chunk address of a parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid parquet file id %q: %w", args[0], err)
			}

			file, err := root.app.Catalog().GetParquetFile(cmd.Context(), types.ParquetFileID(id))
			if err != nil {
				return err
			}
			addr, err := root.app.Adapter().ChunkAddr(cmd.Context(), file)
			if err != nil {
				return err
			}
			order, err := root.app.Adapter().ChunkOrder(file)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s order=%s\n", addr, order)
			return nil
		},
	}
}
