package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-svmgr/internal/blockio"
	"github.com/deploymenttheory/go-svmgr/internal/volume"
)

var (
	shredOpenRootKeyHex string
	shredOpenSlot       uint64
)

var shredCmd = &cobra.Command{
	Use:   "shred",
	Short: "Open a volume and irrecoverably destroy every key slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShred()
	},
}

func init() {
	rootCmd.AddCommand(shredCmd)
	shredCmd.Flags().StringVar(&shredOpenRootKeyHex, "open-root-key", "", "hex-encoded root key of a valid slot")
	shredCmd.Flags().Uint64Var(&shredOpenSlot, "open-slot", 0, "slot to open the volume with")
	shredCmd.MarkFlagRequired("open-root-key")
}

func runShred() error {
	if err := requireDevicePath(); err != nil {
		return err
	}
	openKey, err := hex.DecodeString(shredOpenRootKeyHex)
	if err != nil {
		return fmt.Errorf("decode --open-root-key: %w", err)
	}

	dev, err := blockio.Open(devicePath, &blockio.Config{BlockSize: blockSize, CacheEnabled: true, CacheSize: 64})
	if err != nil {
		return err
	}
	defer dev.Close()

	v := volume.New(volume.LibraryMode, dev, nil, appLogger)
	if err := v.Open(openKey, shredOpenSlot); err != nil {
		return fmt.Errorf("open volume: %w", err)
	}
	defer v.Reset()

	if err := v.Shred(); err != nil {
		return fmt.Errorf("shred volume: %w", err)
	}
	fmt.Println("volume shredded")
	return nil
}
