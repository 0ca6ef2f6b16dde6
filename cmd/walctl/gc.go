package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ondiskwal/wal"
)

// newGCCmd forces reclamation of every currently pending entry. Unlike
// read, its output is discarded - this is a housekeeping hook for an
// operator who wants disk back, not a consumer.
func newGCCmd(openWAL openFunc, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Drain and discard every pending entry, reclaiming their segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWAL(wal.WithLogger(logger))
			if err != nil {
				return err
			}
			defer w.Close()

			before := w.Len()
			if err := w.Reclaim(); err != nil {
				return fmt.Errorf("reclaim: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "discarded %d entries\n", before)
			return nil
		},
	}
}
