package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-svmgr/internal/blockio"
	"github.com/deploymenttheory/go-svmgr/internal/volume"
)

var (
	revokeOpenRootKeyHex string
	revokeOpenSlot       uint64
	revokeSlot           uint64
)

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Open a volume and destroy one key slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRevoke()
	},
}

func init() {
	rootCmd.AddCommand(revokeCmd)
	revokeCmd.Flags().StringVar(&revokeOpenRootKeyHex, "open-root-key", "", "hex-encoded root key of a slot that remains valid")
	revokeCmd.Flags().Uint64Var(&revokeOpenSlot, "open-slot", 0, "slot to open the volume with")
	revokeCmd.Flags().Uint64Var(&revokeSlot, "slot", 0, "slot to revoke")
	revokeCmd.MarkFlagRequired("open-root-key")
}

func runRevoke() error {
	if err := requireDevicePath(); err != nil {
		return err
	}
	openKey, err := hex.DecodeString(revokeOpenRootKeyHex)
	if err != nil {
		return fmt.Errorf("decode --open-root-key: %w", err)
	}

	dev, err := blockio.Open(devicePath, &blockio.Config{BlockSize: blockSize, CacheEnabled: true, CacheSize: 64})
	if err != nil {
		return err
	}
	defer dev.Close()

	v := volume.New(volume.LibraryMode, dev, nil, appLogger)
	if err := v.Open(openKey, revokeOpenSlot); err != nil {
		return fmt.Errorf("open volume: %w", err)
	}
	defer v.Reset()

	if err := v.Revoke(revokeSlot); err != nil {
		return fmt.Errorf("revoke slot %d: %w", revokeSlot, err)
	}
	fmt.Printf("revoked slot %d\n", revokeSlot)
	return nil
}
