package commands

import (
	"fmt"
	"strings"

	"github.com/bootchain/loopbackx/pkg/disk"
	"github.com/bootchain/loopbackx/pkg/errors"
	"github.com/bootchain/loopbackx/pkg/loopback"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all chain devices and their geometry",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	_, cat, reg, err := openEnvironment()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer reg.Teardown()

	driver := loopback.NewDriver(reg)

	if reg.Len() == 0 {
		fmt.Println("No devices found")
		return nil
	}

	fmt.Printf("%-20s %-6s %-14s %s\n", "NAME", "ID", "SECTORS", "RESOURCES")
	fmt.Println(strings.Repeat("-", 72))

	var openErr error
	driver.Iterate(disk.PullNone, func(name string) bool {
		h, err := driver.Open(name)
		if err != nil {
			openErr = errors.Wrap(err, "open failed")
			return true
		}

		sectors := "unknown"
		if h.Geometry.SizeKnown() {
			sectors = fmt.Sprintf("%d", h.Geometry.TotalSectors)
		}

		dev := reg.Find(name)
		fmt.Printf("%-20s %-6d %-14s %s\n",
			name, h.ID, sectors, strings.Join(dev.Sources(), " "))
		return false
	})

	return openErr
}
