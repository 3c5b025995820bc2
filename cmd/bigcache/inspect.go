package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coldboot/bigcache/bigcache"
)

var inspectVerify bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <bigcache.bin>",
	Short: "Print an artifact's header, file table, and optional integrity check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := bigcache.Open(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		h := r.Header
		fmt.Printf("magic:             0x%08x\n", h.Magic)
		fmt.Printf("version:           %d\n", h.Version)
		fmt.Printf("pages:             %d\n", h.PageCount)
		fmt.Printf("files:             %d\n", h.FileCount)
		fmt.Printf("index offset:      %d\n", h.IndexOffset)
		fmt.Printf("file table offset: %d\n", h.FileTableOffset)
		fmt.Printf("data offset:       %d\n", h.DataOffset)
		fmt.Printf("total size:        %d\n", h.TotalSize)
		fmt.Printf("metadata crc32:    0x%08x\n", h.Checksum)

		for _, f := range r.Files {
			fmt.Printf("  file %4d: %s (%d pages, %d bytes)\n", f.ID, f.Path, f.PageCount, f.OriginalSize)
		}

		if inspectVerify {
			if err := r.VerifyChecksum(); err != nil {
				return err
			}
			digest, err := bigcache.DigestArtifact(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("metadata crc32:    ok\n")
			fmt.Printf("blake3:            %s\n", digest)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectVerify, "verify", false, "recompute the metadata checksum and artifact digest")
}
