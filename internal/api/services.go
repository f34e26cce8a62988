package api

import "github.com/ethereum-tag-service/ets-server/internal/service"

// Services groups the business services the handlers call.
type Services struct {
	Tagging *service.TaggingService
	Accrual *service.AccrualService
	Relayer *service.RelayerService
	Tag     *service.TagService
	Target  *service.TargetService
	Auth    *service.AuthService
}
