package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bootchain/loopbackx/internal/config"
	"github.com/bootchain/loopbackx/pkg/catalog"
	"github.com/bootchain/loopbackx/pkg/errors"
	appfsm "github.com/bootchain/loopbackx/pkg/fsm"
	"github.com/bootchain/loopbackx/pkg/loopback"
	"github.com/bootchain/loopbackx/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/superfly/fsm"
)

var deleteDevice bool

var rootCmd = &cobra.Command{
	Use:   "loopbackx [-d] DEVICENAME FILE1 [FILE2 [FILE3 [FILE4]]]",
	Short: "Make a virtual drive from a chain of files",
	Long: `Presents an ordered chain of up to four files (local paths or
s3://bucket/key objects) as a single contiguous read-only disk.

  loopbackx DEVICENAME FILE1 [..FILE4]   create a chain device
  loopbackx -d DEVICENAME                delete a chain device`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoot,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVarP(&deleteDevice, "delete", "d", false, "Delete the specified loopback drive")

	rootCmd.PersistentFlags().String("catalog-path", ".artifacts/devices.db", "Device catalog SQLite path")
	rootCmd.PersistentFlags().String("fsm-db-path", ".artifacts/fsm.db", "FSM BoltDB path")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 region for remote sources")
	rootCmd.PersistentFlags().String("work-dir", "/tmp/loopbackx", "Staging directory for remote sources")
	rootCmd.PersistentFlags().Int("max-retries", 5, "Max FSM retries per state")

	viper.BindPFlag("catalog-path", rootCmd.PersistentFlags().Lookup("catalog-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("s3-region", rootCmd.PersistentFlags().Lookup("s3-region"))
	viper.BindPFlag("work-dir", rootCmd.PersistentFlags().Lookup("work-dir"))
	viper.BindPFlag("max-retries", rootCmd.PersistentFlags().Lookup("max-retries"))
}

func runRoot(cmd *cobra.Command, args []string) error {
	if deleteDevice {
		if len(args) != 1 {
			return fmt.Errorf("-d takes exactly one device name")
		}
		return runDelete(args[0])
	}

	if len(args) < 2 {
		return fmt.Errorf("filename expected")
	}
	if len(args) > 1+loopback.MaxChainResources {
		return fmt.Errorf("too many filenames: at most %d per chain", loopback.MaxChainResources)
	}

	return runCreate(args[0], args[1:])
}

func runCreate(deviceName string, sources []string) error {
	ctx := context.Background()

	cfg, cat, reg, err := openEnvironment()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer reg.Teardown()

	s3Client, err := storage.NewClient(ctx, cfg.S3Region)
	if err != nil {
		return errors.Wrap(err, "S3 client failed")
	}

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := appfsm.NewMachine(cat, s3Client, reg, cfg.WorkDir, cfg.MaxRetries)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	req := &appfsm.AttachRequest{
		DeviceName: deviceName,
		Sources:    sources,
	}
	resp := &appfsm.AttachResponse{}

	version, err := start(ctx, deviceName, fsm.NewRequest(req, resp))
	if err != nil {
		return errors.Wrap(err, "FSM start failed")
	}

	slog.Info("fsm_started", "version", version)

	if err := manager.Wait(ctx, version); err != nil {
		return errors.Wrap(err, "attach failed")
	}

	sectors := "unknown"
	if resp.SizeKnown {
		sectors = fmt.Sprintf("%d", resp.TotalSectors)
	}
	fmt.Printf("Created %s (id %d, %s sectors, %d resources)\n",
		deviceName, resp.DeviceID, sectors, len(resp.StagedSources))

	return nil
}

func runDelete(deviceName string) error {
	_, cat, reg, err := openEnvironment()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer reg.Teardown()

	known, err := cat.GetByName(deviceName)
	if err != nil {
		return errors.Wrap(err, "catalog lookup failed")
	}
	if known == nil && reg.Find(deviceName) == nil {
		return fmt.Errorf("%w: %s", loopback.ErrNotFound, deviceName)
	}

	// Close the live record first, then drop the persisted one. A record
	// whose resources failed to restore still gets removed from the
	// catalog.
	if reg.Find(deviceName) != nil {
		if err := reg.Delete(deviceName); err != nil {
			return errors.Wrap(err, "delete failed")
		}
	}
	if known != nil {
		if err := cat.Delete(deviceName); err != nil {
			return errors.Wrap(err, "catalog delete failed")
		}
	}

	fmt.Printf("Deleted %s\n", deviceName)
	return nil
}

// openEnvironment loads configuration, opens the catalog, and restores the
// device registry from it. Records whose resources can no longer be opened
// are reported and skipped, not fatal.
func openEnvironment() (*config.Config, *catalog.Catalog, *loopback.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, errors.Wrap(err, "config invalid")
	}

	if err := ensureDirectories(cfg.CatalogPath, cfg.FSMDBPath, cfg.WorkDir); err != nil {
		return nil, nil, nil, err
	}

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "catalog init failed")
	}

	reg := loopback.NewRegistry()

	records, err := cat.List()
	if err != nil {
		cat.Close()
		return nil, nil, nil, errors.Wrap(err, "catalog list failed")
	}
	for _, rec := range records {
		if _, err := reg.Restore(rec.ID, rec.Name, rec.Sources); err != nil {
			slog.Warn("device_restore_failed", "device", rec.Name, "device_id", rec.ID, "error", err)
		}
	}

	return cfg, cat, reg, nil
}
