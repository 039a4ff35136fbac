// Package cmd implements the svmgr command-line tool, a thin library-
// mode driver over the Lifecycle API for scripting and manual testing.
// Grounded on the teacher's cmd/root.go: a persistent-flag root command
// plus one file per subcommand, each registering itself from init().
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-svmgr/internal/config"
	"github.com/deploymenttheory/go-svmgr/internal/logging"
)

var (
	verbose    bool
	quiet      bool
	devicePath string
	blockSize  uint32

	appLogger *zap.SugaredLogger
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "svmgr",
	Short: "Encrypted-volume superblock manager",
	Long: `svmgr creates, opens, rekeys, and destroys the key-wrapping header of a
block-device-level full-disk encryption volume.

Commands:
  create   format a new volume's header, enrolling one key slot
  open     unlock an existing volume's header under a root key
  enroll   seal the open volume's data key into an additional slot
  revoke   destroy one key slot, denying access through that key
  shred    destroy every slot in the open volume irrecoverably
  info     print the open volume's geometry`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands and runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log errors only (command results are still printed)")
	rootCmd.PersistentFlags().StringVar(&devicePath, "device", "", "path to the backing file or block device")
	rootCmd.PersistentFlags().Uint32Var(&blockSize, "block-size", 4096, "logical header block size in bytes")

	cobra.OnInitialize(initApp)
}

func initApp() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: load config:", err)
		os.Exit(1)
	}
	appConfig = cfg

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if quiet {
		level = "error"
	}
	appLogger = logging.New(level)
}

func requireDevicePath() error {
	if devicePath == "" {
		return fmt.Errorf("--device is required")
	}
	return nil
}
