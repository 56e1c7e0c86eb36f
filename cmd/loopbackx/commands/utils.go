package commands

import (
	"os"
	"path/filepath"

	"github.com/bootchain/loopbackx/pkg/errors"
)

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(catalogPath, fsmDBPath, workDir string) error {
	// Create catalog directory
	if err := os.MkdirAll(filepath.Dir(catalogPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create catalog directory")
	}

	// Create FSM database directory (only needed when attaching)
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}

	// Create staging directory
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create work directory")
		}
	}

	return nil
}
