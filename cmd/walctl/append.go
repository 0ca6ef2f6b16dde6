package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ondiskwal/wal"
)

// newAppendCmd reads newline-delimited entries from stdin and writes each
// line, stripped of its trailing newline, as one WAL entry in a single
// batch.
func newAppendCmd(openWAL openFunc, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "append",
		Short: "Append entries read line-by-line from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWAL(wal.WithLogger(logger))
			if err != nil {
				return err
			}
			defer w.Close()

			var batch [][]byte
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := scanner.Bytes()
				entry := make([]byte, len(line))
				copy(entry, line)
				batch = append(batch, entry)
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			if len(batch) == 0 {
				return nil
			}

			if err := w.Write(batch); err != nil {
				return fmt.Errorf("write batch: %w", err)
			}
			if err := w.Sync(); err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "appended %d entries\n", len(batch))
			return nil
		},
	}
}
