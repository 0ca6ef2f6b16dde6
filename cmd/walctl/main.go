// Command walctl is an operator CLI around a wal.WAL directory: append
// entries from stdin, read pending entries back out, inspect segment
// layout, force reclamation, or serve Prometheus metrics and a health
// endpoint. None of this is part of the wal package itself - walctl is the
// only place in the repository that touches a filesystem path from a flag,
// a YAML file, or the network.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ondiskwal/wal"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var dirFlag string

	root := &cobra.Command{
		Use:           "walctl",
		Short:         "Operate an on-disk write-ahead log",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dirFlag, "dir", "", "WAL directory (overrides walctl.yaml/WALCTL_DIR)")

	openWAL := func(opts ...wal.Option) (*wal.WAL, error) {
		cfg, err := loadConfig(v)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if dirFlag != "" {
			cfg.Dir = dirFlag
		}
		return wal.Open(cfg.Dir, wal.Config{
			EntryPerSegment: cfg.EntryPerSegment,
			CheckCRC32:      cfg.CheckCRC32,
		}, opts...)
	}

	logger, _ := zap.NewProduction()

	root.AddCommand(
		newAppendCmd(openWAL, logger),
		newReadCmd(openWAL, logger),
		newLenCmd(openWAL, logger),
		newGCCmd(openWAL, logger),
		newInspectCmd(openWAL, logger),
		newServeCmd(openWAL, logger),
	)
	return root
}

// openFunc constructs a *wal.WAL against whatever directory the current
// flags and configuration resolve to.
type openFunc func(opts ...wal.Option) (*wal.WAL, error)
