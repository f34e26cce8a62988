package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ethereum-tag-service/ets-server/internal/config"
	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/service"
)

// ProtocolReloaderHandle runs the protocol file reloader until shutdown.
// Reloader is nil when no protocol file is configured.
type ProtocolReloaderHandle struct {
	Reloader *config.ProtocolReloader
	cancel   context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ProtocolReloaderHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideProtocolReloader watches the protocol file and applies parameter
// changes to the tagging service.
func ProvideProtocolReloader(i do.Injector) (*ProtocolReloaderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	taggingService := do.MustInvoke[*service.TaggingService](i)

	if !configured(cfg) {
		log.Info("No protocol file configured, parameter hot reload disabled")
		return &ProtocolReloaderHandle{}, nil
	}

	reloader, err := config.NewProtocolReloader(cfg.ProtocolBase, taggingService, log.Logger)
	if err != nil {
		return nil, err
	}

	log.WithField("path", cfg.ProtocolBase.File).Info("Protocol hot reload enabled")

	ctx, cancel := context.WithCancel(context.Background())
	go reloader.Run(ctx)

	return &ProtocolReloaderHandle{Reloader: reloader, cancel: cancel}, nil
}
