package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newLenCmd prints the number of entries pending delivery.
func newLenCmd(openWAL openFunc, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "len",
		Short: "Print the number of entries pending delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWAL()
			if err != nil {
				return err
			}
			defer w.Close()

			fmt.Fprintln(cmd.OutOrStdout(), w.Len())
			return nil
		},
	}
}
