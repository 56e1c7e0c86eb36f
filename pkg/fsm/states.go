package fsm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bootchain/loopbackx/pkg/catalog"
	"github.com/bootchain/loopbackx/pkg/errors"
	"github.com/bootchain/loopbackx/pkg/loopback"
	"github.com/bootchain/loopbackx/pkg/storage"
	"github.com/superfly/fsm"
	"golang.org/x/sync/errgroup"
)

// handleCheckCatalog rejects duplicate names and out-of-range chains
// before anything is opened or downloaded.
func (m *Machine) handleCheckCatalog(ctx context.Context, req *fsm.Request[AttachRequest, AttachResponse]) (*fsm.Response[AttachResponse], error) {
	slog.Info("fsm_state_check_catalog", "device", req.Msg.DeviceName)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "device", req.Msg.DeviceName, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &AttachResponse{}
	}

	if n := len(req.Msg.Sources); n == 0 {
		return nil, fsm.Abort(loopback.ErrMissingResource)
	} else if n > loopback.MaxChainResources {
		return nil, fsm.Abort(fmt.Errorf("%w: %d > %d", loopback.ErrTooManyResources, n, loopback.MaxChainResources))
	}

	if m.reg.Find(req.Msg.DeviceName) != nil {
		slog.Error("device_name_taken", "device", req.Msg.DeviceName)
		return nil, fsm.Abort(fmt.Errorf("%w: %s", loopback.ErrDuplicateName, req.Msg.DeviceName))
	}

	existing, err := m.cat.GetByName(req.Msg.DeviceName)
	if err != nil {
		slog.Error("catalog_check_failed", "device", req.Msg.DeviceName, "error", err)
		return nil, fsm.Abort(errors.Wrap(err, "catalog error"))
	}
	if existing != nil {
		slog.Error("device_name_taken", "device", req.Msg.DeviceName, "device_id", existing.ID)
		return nil, fsm.Abort(fmt.Errorf("%w: %s", loopback.ErrDuplicateName, req.Msg.DeviceName))
	}

	// Fail fast on missing remote objects before staging starts.
	for _, src := range req.Msg.Sources {
		if !storage.IsRemote(src) {
			continue
		}
		bucket, key, ok := storage.SplitURI(src)
		if !ok {
			return nil, fsm.Abort(fmt.Errorf("malformed remote source: %s", src))
		}
		if m.store == nil {
			return nil, fsm.Abort(fmt.Errorf("remote source %s but no S3 client configured", src))
		}
		found, err := m.store.Exists(ctx, bucket, key)
		if err != nil {
			return nil, errors.Wrap(err, "failed to check remote source")
		}
		if !found {
			return nil, fsm.Abort(fmt.Errorf("remote source not found: %s", src))
		}
	}

	slog.Info("check_catalog_passed", "device", req.Msg.DeviceName, "sources", len(req.Msg.Sources))
	return fsm.NewResponse(resp), nil
}

// handleStage downloads remote sources into the work directory. Local
// sources pass through untouched; remote ones are fetched concurrently.
func (m *Machine) handleStage(ctx context.Context, req *fsm.Request[AttachRequest, AttachResponse]) (*fsm.Response[AttachResponse], error) {
	slog.Info("fsm_state_stage", "device", req.Msg.DeviceName)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "device", req.Msg.DeviceName, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	stageDir := filepath.Join(m.workDir, "staged", req.Msg.DeviceName)
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		slog.Error("stage_dir_creation_failed", "path", stageDir, "error", err)
		return nil, errors.Wrap(err, "failed to create stage dir")
	}

	staged := make([]string, len(req.Msg.Sources))
	sizes := make([]int64, len(req.Msg.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range req.Msg.Sources {
		if !storage.IsRemote(src) {
			staged[i] = src
			continue
		}

		bucket, key, ok := storage.SplitURI(src)
		if !ok {
			return nil, fsm.Abort(fmt.Errorf("malformed remote source: %s", src))
		}

		localPath := filepath.Join(stageDir, fmt.Sprintf("%d-%s", i, filepath.Base(key)))
		g.Go(func() error {
			result, err := m.store.Download(gctx, bucket, key, localPath)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("failed to stage %s", src))
			}
			staged[i] = result.LocalPath
			sizes[i] = result.Size
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("staging_failed", "device", req.Msg.DeviceName, "error", err)
		return nil, err
	}

	resp.StagedSources = staged
	for _, s := range sizes {
		resp.StagedBytes += s
	}

	slog.Info("staging_complete", "device", req.Msg.DeviceName, "staged_bytes", resp.StagedBytes)
	return fsm.NewResponse(resp), nil
}

// handleAttach performs the all-or-nothing create: allocate the identity,
// open every resource (rollback on any failure), register the device, and
// persist it. A catalog failure rolls the registry entry back too.
func (m *Machine) handleAttach(ctx context.Context, req *fsm.Request[AttachRequest, AttachResponse]) (*fsm.Response[AttachResponse], error) {
	slog.Info("fsm_state_attach", "device", req.Msg.DeviceName)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "device", req.Msg.DeviceName, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	id, err := m.cat.AllocateNextDeviceID(ctx)
	if err != nil {
		slog.Error("device_id_allocation_failed", "device", req.Msg.DeviceName, "error", err)
		return nil, errors.Wrap(err, "failed to allocate device id")
	}

	dev, err := m.reg.Restore(id, req.Msg.DeviceName, resp.StagedSources)
	if err != nil {
		slog.Error("device_attach_failed", "device", req.Msg.DeviceName, "error", err)
		return nil, fsm.Abort(err)
	}

	if err := m.cat.Create(&catalog.Device{
		ID:      id,
		Name:    req.Msg.DeviceName,
		Sources: resp.StagedSources,
	}); err != nil {
		// Keep registry and catalog in step: the record must not exist
		// in one but not the other.
		m.reg.Delete(req.Msg.DeviceName)
		slog.Error("catalog_persist_failed", "device", req.Msg.DeviceName, "error", err)
		return nil, fsm.Abort(errors.Wrap(err, "failed to persist device"))
	}

	geo := dev.Geometry()
	resp.DeviceID = id
	resp.TotalSectors = geo.TotalSectors
	resp.SizeKnown = geo.SizeKnown()

	slog.Info("device_attached",
		"device", req.Msg.DeviceName,
		"device_id", id,
		"total_sectors", geo.TotalSectors,
		"size_known", geo.SizeKnown())

	return fsm.NewResponse(resp), nil
}

// handleComplete marks the workflow finished
func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[AttachRequest, AttachResponse]) (*fsm.Response[AttachResponse], error) {
	resp := req.W.Msg
	if resp == nil {
		resp = &AttachResponse{}
	}

	resp.Status = StatusAttached

	slog.Info("fsm_complete", "device", req.Msg.DeviceName, "device_id", resp.DeviceID, "status", resp.Status)
	return fsm.NewResponse(resp), nil
}
