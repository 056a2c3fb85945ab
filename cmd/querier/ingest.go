package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Karekin/influxdb/internal/ingest"
	"github.com/Karekin/influxdb/pkg/types"
)

func newIngestCommand(root *rootOptions) *cobra.Command {
	var (
		req    ingest.Request
		minSeq int64
		maxSeq int64
	)

	cmd := &cobra.Command{
		Use:   "ingest <file.parquet>",
		Short: "Register a parquet file in the catalog",
		Long: `Rewrite a parquet file with its embedded catalog identity, upload it to
the object store and register it in the catalog. Missing namespaces, tables,
sequencers and partitions are created.

Examples:
  querier ingest cpu.parquet --namespace telegraf --table cpu --partition 2022-04-15
  querier ingest cpu.parquet --namespace telegraf --table cpu --partition 2022-04-15 --min-seq 10 --max-seq 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			req.MinSequenceNumber = types.SequenceNumber(minSeq)
			req.MaxSequenceNumber = types.SequenceNumber(maxSeq)

			file, err := root.app.Ingester().Ingest(cmd.Context(), req, f, info.Size())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "parquet file %d registered: object %s, %d rows, %d bytes\n",
				file.ID, file.ObjectStoreID, file.RowCount, file.FileSizeBytes)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Namespace, "namespace", "", "namespace name")
	flags.StringVar(&req.Table, "table", "", "table name")
	flags.StringVar(&req.PartitionKey, "partition", "", "partition key")
	flags.StringVar(&req.TopicName, "topic", "iox-shared", "write buffer topic of the sequencer")
	flags.Int32Var(&req.SequencerIndex, "sequencer", 0, "write buffer partition index of the sequencer")
	flags.Int64Var(&minSeq, "min-seq", 0, "smallest sequence number persisted in the file")
	flags.Int64Var(&maxSeq, "max-seq", 0, "largest sequence number persisted in the file")
	for _, name := range []string{"namespace", "table", "partition"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
	return cmd
}
