package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-svmgr/internal/blockio"
	"github.com/deploymenttheory/go-svmgr/internal/volume"
)

var (
	openRootKeyHex string
	openSlot       uint64
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Unlock an existing volume under a root key and slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOpen()
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().StringVar(&openRootKeyHex, "root-key", "", "hex-encoded root key")
	openCmd.Flags().Uint64Var(&openSlot, "slot", 0, "key slot to attempt")
	openCmd.MarkFlagRequired("root-key")
}

func runOpen() error {
	if err := requireDevicePath(); err != nil {
		return err
	}
	rootKey, err := hex.DecodeString(openRootKeyHex)
	if err != nil {
		return fmt.Errorf("decode --root-key: %w", err)
	}

	dev, err := blockio.Open(devicePath, &blockio.Config{BlockSize: blockSize, CacheEnabled: true, CacheSize: 64})
	if err != nil {
		return err
	}
	defer dev.Close()

	v := volume.New(volume.LibraryMode, dev, nil, appLogger)
	if err := v.Open(rootKey, openSlot); err != nil {
		return fmt.Errorf("open volume: %w", err)
	}
	defer v.Reset()

	info, err := v.GetInfo()
	if err != nil {
		return err
	}
	fmt.Printf("opened volume: block_size=%d block_count=%d has_fvm=%t version=%d\n",
		info.BlockSize, info.BlockCount, info.HasFVM, info.Version)
	return nil
}
