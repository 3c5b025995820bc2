package main

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/coldboot/bigcache/bigcache"
	"github.com/coldboot/bigcache/trace"
)

var (
	packOutput     string
	packSourceRoot string
	packWorkers    int
	packLayoutCSV  string
)

var packCmd = &cobra.Command{
	Use:   "pack <trace.csv>",
	Short: "Package the trace's distinct pages into a BigCache artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		loaded, err := trace.Load(args[0])
		if err != nil {
			return err
		}
		logrus.Infof("loaded %d trace records (%d rows skipped)", len(loaded.Records), loaded.Skipped)

		dedup := bigcache.NewDeduplicator()
		if err := dedup.AddTrace(loaded.Records); err != nil {
			return err
		}
		logrus.Infof("deduplicated to %d pages across %d files", dedup.PageCount(), dedup.FileCount())

		res, err := bigcache.Pack(ctx, dedup, packOutput, bigcache.PackOptions{
			SourceRoot: packSourceRoot,
			Workers:    packWorkers,
		})
		if err != nil {
			return err
		}

		if packLayoutCSV != "" {
			if err := bigcache.WriteLayoutCSV(packLayoutCSV, dedup.Pages()); err != nil {
				return err
			}
			logrus.Infof("layout exported to %s", packLayoutCSV)
		}

		fmt.Printf("artifact:          %s\n", packOutput)
		fmt.Printf("total size:        %d bytes\n", res.Layout.TotalSize)
		fmt.Printf("pages:             %d (%d placeholder)\n", res.PageCount, res.PlaceholderPages)
		fmt.Printf("files:             %d\n", res.FileCount)
		fmt.Printf("blake3:            %s\n", res.Digest)
		return nil
	},
}

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "bigcache.bin", "output artifact path")
	packCmd.Flags().StringVarP(&packSourceRoot, "source-root", "s", "", "root directory for source file content (placeholder pages when unset)")
	packCmd.Flags().IntVar(&packWorkers, "workers", runtime.NumCPU(), "concurrent page resolution workers")
	packCmd.Flags().StringVar(&packLayoutCSV, "layout-csv", "", "also export the page layout as CSV")
}
