package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-svmgr/internal/blockio"
	"github.com/deploymenttheory/go-svmgr/internal/volume"
)

var createRootKeyHex string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Format a new volume header and enroll slot 0",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate()
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVar(&createRootKeyHex, "root-key", "", "hex-encoded root key for slot 0")
	createCmd.MarkFlagRequired("root-key")
}

func runCreate() error {
	if err := requireDevicePath(); err != nil {
		return err
	}
	rootKey, err := hex.DecodeString(createRootKeyHex)
	if err != nil {
		return fmt.Errorf("decode --root-key: %w", err)
	}

	dev, err := blockio.Open(devicePath, &blockio.Config{BlockSize: blockSize, CacheEnabled: true, CacheSize: 64})
	if err != nil {
		return err
	}
	defer dev.Close()

	v := volume.New(volume.LibraryMode, dev, nil, appLogger)
	if err := v.Create(rootKey); err != nil {
		return fmt.Errorf("create volume: %w", err)
	}

	info, err := v.GetInfo()
	if err != nil {
		return err
	}
	fmt.Printf("created volume: block_size=%d block_count=%d has_fvm=%t version=%d\n",
		info.BlockSize, info.BlockCount, info.HasFVM, info.Version)
	return nil
}
