// Package fsm implements the device attach workflow. It stages remote
// chain sources, performs the all-or-nothing registry create, and records
// the device in the catalog, using the superfly/fsm library.
package fsm

import (
	"context"

	"github.com/bootchain/loopbackx/pkg/catalog"
	"github.com/bootchain/loopbackx/pkg/errors"
	"github.com/bootchain/loopbackx/pkg/loopback"
	"github.com/bootchain/loopbackx/pkg/storage"
	"github.com/superfly/fsm"
)

// Machine holds dependencies for FSM transitions
type Machine struct {
	cat        *catalog.Catalog
	store      *storage.Client
	reg        *loopback.Registry
	workDir    string
	maxRetries int
}

// NewMachine creates a new FSM machine with dependencies. store may be nil
// when no remote sources are expected.
func NewMachine(
	cat *catalog.Catalog,
	store *storage.Client,
	reg *loopback.Registry,
	workDir string,
	maxRetries int,
) *Machine {
	return &Machine{
		cat:        cat,
		store:      store,
		reg:        reg,
		workDir:    workDir,
		maxRetries: maxRetries,
	}
}

// Register registers the device attach FSM
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[AttachRequest, AttachResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[AttachRequest, AttachResponse](manager, "device-attach").
		Start(StateCheckCatalog, m.handleCheckCatalog).
		To(StateStage, m.handleStage).
		To(StateAttach, m.handleAttach).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}
