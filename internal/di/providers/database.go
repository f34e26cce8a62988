package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/ethereum-tag-service/ets-server/internal/config"
	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/sse"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the configured store backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		st   store.Store
		path string
		err  error
	)
	switch cfg.Data.Backend {
	case config.BackendSQLite:
		path = filepath.Join(cfg.Data.Path, "ets.sqlite")
		st, err = sqlite.Open(path, log.Logger)
	default:
		path = filepath.Join(cfg.Data.Path, "db")
		st, err = store.New(path, log.Logger)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "backend", cfg.Data.Backend, "path", path)

	return &StoreHandle{Store: st}, nil
}
