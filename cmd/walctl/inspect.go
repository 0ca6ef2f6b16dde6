package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newInspectCmd prints each open segment's (sequence, len, space) without
// reading or advancing the cursor.
func newInspectCmd(openWAL openFunc, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print per-segment (sequence, len, space) without mutating state",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWAL()
			if err != nil {
				return err
			}
			defer w.Close()

			out := cmd.OutOrStdout()
			for _, info := range w.Segments() {
				fmt.Fprintf(out, "segment %016x  len=%d  space=%d\n", info.Sequence, info.Len, info.Space)
			}
			return nil
		},
	}
}
