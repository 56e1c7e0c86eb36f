package commands

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/bootchain/loopbackx/pkg/disk"
	"github.com/bootchain/loopbackx/pkg/errors"
	"github.com/bootchain/loopbackx/pkg/loopback"
	"github.com/spf13/cobra"
)

var (
	readSector uint64
	readCount  uint64
	readOutput string
)

var readCmd = &cobra.Command{
	Use:   "read DEVICENAME",
	Short: "Read sectors from a chain device",
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().Uint64Var(&readSector, "sector", 0, "Starting sector")
	readCmd.Flags().Uint64Var(&readCount, "count", 1, "Number of sectors to read")
	readCmd.Flags().StringVarP(&readOutput, "output", "o", "", "Write raw bytes to this file instead of hex dumping")
}

func runRead(cmd *cobra.Command, args []string) error {
	if readCount == 0 {
		return fmt.Errorf("count must be positive")
	}
	if readCount > disk.MaxTransferSectors {
		return fmt.Errorf("count exceeds max transfer of %d sectors", uint64(disk.MaxTransferSectors))
	}

	_, cat, reg, err := openEnvironment()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer reg.Teardown()

	driver := loopback.NewDriver(reg)

	h, err := driver.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "open failed")
	}

	buf := make([]byte, readCount*disk.SectorSize)
	if err := driver.Read(h, readSector, readCount, buf); err != nil {
		return errors.Wrap(err, "read failed")
	}

	if readOutput != "" {
		if err := os.WriteFile(readOutput, buf, 0644); err != nil {
			return errors.Wrap(err, "failed to write output")
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(buf), readOutput)
		return nil
	}

	fmt.Print(hex.Dump(buf))
	return nil
}
