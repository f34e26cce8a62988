// Package service implements the ETS use cases: tagging mutations and fee
// previews on top of the tagging engine, the accrual ledger, relayer and tag
// administration, and API authentication.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	domainerrors "github.com/ethereum-tag-service/ets-server/internal/errors"
	"github.com/ethereum-tag-service/ets-server/internal/sse"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/validation"
)

// validate is a shared validator instance for request validation.
var validate = validation.New()

// EventEmitter publishes events to subscribers. *sse.Manager implements it.
type EventEmitter interface {
	Emit(events ...sse.Event)
}

// NoopEmitter drops every event.
type NoopEmitter struct{}

// Emit does nothing.
func (NoopEmitter) Emit(...sse.Event) {}

// requireAdmin loads the caller's account and rejects anyone but the
// platform administrator.
func requireAdmin(ctx context.Context, s store.Store, caller domain.Address) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, caller)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("admin access required")
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	if !account.IsAdmin() {
		return nil, domainerrors.Forbidden("admin access required")
	}
	return account, nil
}

// parseWei parses a decimal wei amount. Empty means zero.
func parseWei(field, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	if !validation.IsWei(s) {
		return nil, domainerrors.Validationf("%s must be a non-negative decimal wei amount", field)
	}
	w, _ := new(big.Int).SetString(s, 10)
	return w, nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
