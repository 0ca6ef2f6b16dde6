package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ondiskwal/wal"
)

// newReadCmd prints up to -n pending entries, one per line, and durably
// advances the cursor past whatever it delivers.
func newReadCmd(openWAL openFunc, logger *zap.Logger) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read and print up to -n pending entries, advancing the cursor",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWAL(wal.WithLogger(logger))
			if err != nil {
				return err
			}
			defer w.Close()

			entries, err := w.Read(n)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintln(out, string(e))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "maximum number of entries to read")
	return cmd
}
