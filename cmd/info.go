package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-svmgr/internal/blockio"
	"github.com/deploymenttheory/go-svmgr/internal/volume"
)

var (
	infoRootKeyHex string
	infoSlot       uint64
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Open a volume and print its geometry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo()
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVar(&infoRootKeyHex, "root-key", "", "hex-encoded root key")
	infoCmd.Flags().Uint64Var(&infoSlot, "slot", 0, "slot to open the volume with")
	infoCmd.MarkFlagRequired("root-key")
}

func runInfo() error {
	if err := requireDevicePath(); err != nil {
		return err
	}
	rootKey, err := hex.DecodeString(infoRootKeyHex)
	if err != nil {
		return fmt.Errorf("decode --root-key: %w", err)
	}

	dev, err := blockio.Open(devicePath, &blockio.Config{BlockSize: blockSize, CacheEnabled: true, CacheSize: 64})
	if err != nil {
		return err
	}
	defer dev.Close()

	v := volume.New(volume.LibraryMode, dev, nil, appLogger)
	if err := v.Open(rootKey, infoSlot); err != nil {
		return fmt.Errorf("open volume: %w", err)
	}
	defer v.Reset()

	info, err := v.GetInfo()
	if err != nil {
		return err
	}
	fmt.Printf("block_size:   %d\n", info.BlockSize)
	fmt.Printf("block_count:  %d\n", info.BlockCount)
	fmt.Printf("has_fvm:      %t\n", info.HasFVM)
	fmt.Printf("slice_size:   %d\n", info.SliceSize)
	fmt.Printf("vslice_count: %d\n", info.VSliceCount)
	fmt.Printf("version:      %d\n", info.Version)

	blocksRead, blocksWrit, hits, miss := dev.Stats().Snapshot()
	fmt.Printf("device stats: read=%d write=%d cache_hits=%d cache_miss=%d\n", blocksRead, blocksWrit, hits, miss)
	return nil
}
