package providers

import (
	"github.com/samber/do/v2"

	"github.com/ethereum-tag-service/ets-server/internal/auth"
	"github.com/ethereum-tag-service/ets-server/internal/config"
	"github.com/ethereum-tag-service/ets-server/internal/logger"
	"github.com/ethereum-tag-service/ets-server/internal/service"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

// ProvideRelayerService provides the relayer registry. It is also the
// engine's authorization oracle.
func ProvideRelayerService(i do.Injector) (*service.RelayerService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRelayerService(storeHandle.Store, sseHandle.Manager, log.Logger), nil
}

// ProvideTaggingEngine provides the tagging engine with the configured
// protocol parameters.
func ProvideTaggingEngine(i do.Injector) (*tagging.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	relayers := do.MustInvoke[*service.RelayerService](i)
	log := do.MustInvoke[*logger.Logger](i)

	params, err := cfg.Protocol.Params()
	if err != nil {
		return nil, err
	}

	engine, err := tagging.NewEngine(params, relayers)
	if err != nil {
		return nil, err
	}

	log.Info("Tagging engine ready",
		"platform", params.Platform.String(),
		"tagging_fee", params.TaggingFee.String(),
		"platform_percentage", params.PlatformPercentage,
		"relayer_percentage", params.RelayerPercentage,
	)

	return engine, nil
}

// ProvideTaggingService provides the tagging service.
func ProvideTaggingService(i do.Injector) (*service.TaggingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*tagging.Engine](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTaggingService(storeHandle.Store, engine, sseHandle.Manager, log.Logger), nil
}

// ProvideAccrualService provides the accrual service.
func ProvideAccrualService(i do.Injector) (*service.AccrualService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAccrualService(storeHandle.Store, sseHandle.Manager, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	taggingService := do.MustInvoke[*service.TaggingService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, indexHandle.TagIndex, taggingService, sseHandle.Manager, log.Logger), nil
}

// ProvideTargetService provides the target service.
func ProvideTargetService(i do.Injector) (*service.TargetService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	relayers := do.MustInvoke[*service.RelayerService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTargetService(storeHandle.Store, relayers, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	taggingService := do.MustInvoke[*service.TaggingService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, taggingService, log.Logger), nil
}

// configured reports whether a protocol file is set; the reloader is
// optional.
func configured(cfg *config.Config) bool {
	return cfg.ProtocolBase.File != ""
}
