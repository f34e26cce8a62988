// Package di provides dependency injection configuration for the ETS server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/ethereum-tag-service/ets-server/internal/auth"
	"github.com/ethereum-tag-service/ets-server/internal/config"
	"github.com/ethereum-tag-service/ets-server/internal/di/providers"
	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/service"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideRelayerService)
	do.Provide(injector, providers.ProvideTaggingEngine)
	do.Provide(injector, providers.ProvideTaggingService)
	do.Provide(injector, providers.ProvideAccrualService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideTargetService)
	do.Provide(injector, providers.ProvideAuthService)

	// Workers
	do.Provide(injector, providers.ProvideProtocolReloader)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.RelayerService](injector)
	_ = do.MustInvoke[*tagging.Engine](injector)
	_ = do.MustInvoke[*service.TaggingService](injector)
	_ = do.MustInvoke[*service.AccrualService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.TargetService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)

	// Workers
	_ = do.MustInvoke[*providers.ProtocolReloaderHandle](injector)

	// Server
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
