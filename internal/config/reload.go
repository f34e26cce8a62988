package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum-tag-service/ets-server/internal/tagging"
	"github.com/ethereum-tag-service/ets-server/internal/watcher"
)

// ParamsApplier receives reloaded protocol parameters. The tagging service
// implements it by swapping the engine's parameters.
type ParamsApplier interface {
	ApplyParams(p tagging.Params) error
}

// ProtocolReloader re-reads the protocol file whenever it settles after a
// change and applies the result. Files that fail to parse or validate are
// logged and ignored; the previous parameters stay in force.
type ProtocolReloader struct {
	base    ProtocolConfig
	applier ParamsApplier
	watcher *watcher.Watcher
	logger  *slog.Logger
}

// NewProtocolReloader watches base.File. base holds the flag/env values the
// file is merged onto.
func NewProtocolReloader(base ProtocolConfig, applier ParamsApplier, logger *slog.Logger) (*ProtocolReloader, error) {
	if base.File == "" {
		return nil, fmt.Errorf("no protocol file configured")
	}
	w, err := watcher.New(logger, watcher.Options{})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(base.File); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return &ProtocolReloader{base: base, applier: applier, watcher: w, logger: logger}, nil
}

// Run applies changes until ctx is done.
func (r *ProtocolReloader) Run(ctx context.Context) {
	go r.watcher.Start(ctx) //nolint:errcheck // Start only returns nil
	defer r.watcher.Stop()  //nolint:errcheck // best effort on shutdown

	r.logger.Info("watching protocol file", "path", r.base.File)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-r.watcher.Events():
			if event.Type == watcher.EventRemoved {
				r.logger.Warn("protocol file removed, keeping current parameters", "path", event.Path)
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Error("protocol reload rejected, keeping current parameters",
					"path", event.Path, "error", err)
			}
		case err := <-r.watcher.Errors():
			r.logger.Warn("protocol file watcher error", "error", err)
		}
	}
}

// Reload reads, validates and applies the protocol file once.
func (r *ProtocolReloader) Reload() error {
	file, err := LoadProtocolFile(r.base.File)
	if err != nil {
		return err
	}
	params, err := r.base.Merge(file).Params()
	if err != nil {
		return err
	}
	if err := r.applier.ApplyParams(params); err != nil {
		return err
	}
	r.logger.Info("protocol parameters reloaded",
		"tagging_fee", params.TaggingFee.String(),
		"platform_percentage", params.PlatformPercentage,
		"relayer_percentage", params.RelayerPercentage,
	)
	return nil
}
