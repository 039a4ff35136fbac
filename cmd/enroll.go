package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-svmgr/internal/blockio"
	"github.com/deploymenttheory/go-svmgr/internal/volume"
)

var (
	enrollOpenRootKeyHex string
	enrollOpenSlot        uint64
	enrollNewRootKeyHex   string
	enrollNewSlot         uint64
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Open a volume and seal its data key into an additional slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnroll()
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().StringVar(&enrollOpenRootKeyHex, "open-root-key", "", "hex-encoded root key of an existing slot")
	enrollCmd.Flags().Uint64Var(&enrollOpenSlot, "open-slot", 0, "existing slot to open the volume with")
	enrollCmd.Flags().StringVar(&enrollNewRootKeyHex, "new-root-key", "", "hex-encoded root key to enroll")
	enrollCmd.Flags().Uint64Var(&enrollNewSlot, "new-slot", 1, "slot to enroll the new root key into")
	enrollCmd.MarkFlagRequired("open-root-key")
	enrollCmd.MarkFlagRequired("new-root-key")
}

func runEnroll() error {
	if err := requireDevicePath(); err != nil {
		return err
	}
	openKey, err := hex.DecodeString(enrollOpenRootKeyHex)
	if err != nil {
		return fmt.Errorf("decode --open-root-key: %w", err)
	}
	newKey, err := hex.DecodeString(enrollNewRootKeyHex)
	if err != nil {
		return fmt.Errorf("decode --new-root-key: %w", err)
	}

	dev, err := blockio.Open(devicePath, &blockio.Config{BlockSize: blockSize, CacheEnabled: true, CacheSize: 64})
	if err != nil {
		return err
	}
	defer dev.Close()

	v := volume.New(volume.LibraryMode, dev, nil, appLogger)
	if err := v.Open(openKey, enrollOpenSlot); err != nil {
		return fmt.Errorf("open volume: %w", err)
	}
	defer v.Reset()

	if err := v.Enroll(newKey, enrollNewSlot); err != nil {
		return fmt.Errorf("enroll slot %d: %w", enrollNewSlot, err)
	}
	fmt.Printf("enrolled slot %d\n", enrollNewSlot)
	return nil
}
