package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/auth"
	"github.com/ethereum-tag-service/ets-server/internal/domain"
	domainerrors "github.com/ethereum-tag-service/ets-server/internal/errors"
	"github.com/ethereum-tag-service/ets-server/internal/sse"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

// RelayerService manages relayer registration and status. It is also the
// engine's authorization oracle.
type RelayerService struct {
	store  store.Store
	events EventEmitter
	logger *slog.Logger
	now    func() time.Time
}

var _ tagging.AuthorizationOracle = (*RelayerService)(nil)

// NewRelayerService creates a new relayer service.
func NewRelayerService(store store.Store, events EventEmitter, logger *slog.Logger) *RelayerService {
	if events == nil {
		events = NoopEmitter{}
	}
	return &RelayerService{store: store, events: events, logger: loggerOrDefault(logger), now: time.Now}
}

// RegisterRelayerRequest registers a relayer. Owner defaults to the caller.
type RegisterRelayerRequest struct {
	Address string `json:"address" validate:"required,ethaddr"`
	Name    string `json:"name" validate:"required,max=64"`
	Owner   string `json:"owner" validate:"omitempty,ethaddr"`
}

// RegisteredRelayer is a new relayer with the plaintext API key of its
// account. The key is not stored and cannot be shown again.
type RegisteredRelayer struct {
	Relayer *domain.Relayer
	APIKey  string
}

// Register creates a relayer and the account it authenticates as. Admin only.
func (s *RelayerService) Register(ctx context.Context, caller domain.Address, req RegisterRelayerRequest) (*RegisteredRelayer, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, caller); err != nil {
		return nil, err
	}

	addr, _ := domain.ParseAddress(req.Address)
	owner := caller
	if req.Owner != "" {
		owner, _ = domain.ParseAddress(req.Owner)
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashAPIKey(apiKey)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	now := s.now()
	relayer := &domain.Relayer{
		Address:   addr,
		Name:      req.Name,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	account := &domain.Account{
		Address:    addr,
		Role:       domain.RoleRelayer,
		APIKeyHash: hash,
		CreatedAt:  now,
	}

	if err := s.store.CreateRelayer(ctx, relayer, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("relayer already registered")
		}
		return nil, fmt.Errorf("create relayer: %w", err)
	}

	s.events.Emit(sse.NewRelayerEvent(sse.EventRelayerRegistered, relayer))
	s.logger.Info("relayer registered",
		"relayer", addr.String(),
		"name", req.Name,
		"owner", owner.String(),
	)

	return &RegisteredRelayer{Relayer: relayer, APIKey: apiKey}, nil
}

// GetRelayer retrieves a relayer by address.
func (s *RelayerService) GetRelayer(ctx context.Context, addr domain.Address) (*domain.Relayer, error) {
	return s.store.GetRelayer(ctx, addr)
}

// ListRelayers lists relayers ordered by address.
func (s *RelayerService) ListRelayers(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Relayer], error) {
	params.Validate()
	return s.store.ListRelayers(ctx, params)
}

// Pause stops a relayer from tagging. Allowed for the admin and the
// relayer's owner.
func (s *RelayerService) Pause(ctx context.Context, caller, addr domain.Address) (*domain.Relayer, error) {
	return s.update(ctx, caller, addr, false, func(r *domain.Relayer) (sse.EventType, error) {
		if r.Paused {
			return "", domainerrors.Conflict("relayer is already paused")
		}
		r.Paused = true
		return sse.EventRelayerPaused, nil
	})
}

// Unpause lets a paused relayer tag again. Allowed for the admin and the
// relayer's owner.
func (s *RelayerService) Unpause(ctx context.Context, caller, addr domain.Address) (*domain.Relayer, error) {
	return s.update(ctx, caller, addr, false, func(r *domain.Relayer) (sse.EventType, error) {
		if !r.Paused {
			return "", domainerrors.Conflict("relayer is not paused")
		}
		r.Paused = false
		return sse.EventRelayerUnpaused, nil
	})
}

// Lock permanently deactivates a relayer. Admin only.
func (s *RelayerService) Lock(ctx context.Context, caller, addr domain.Address) (*domain.Relayer, error) {
	return s.update(ctx, caller, addr, true, func(r *domain.Relayer) (sse.EventType, error) {
		r.Locked = true
		return sse.EventRelayerLocked, nil
	})
}

// update applies change to a relayer that is not locked. Owners may act on
// their own relayers unless adminOnly is set.
func (s *RelayerService) update(ctx context.Context, caller, addr domain.Address, adminOnly bool, change func(*domain.Relayer) (sse.EventType, error)) (*domain.Relayer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := s.store.GetRelayer(ctx, addr)
	if err != nil {
		return nil, err
	}

	if adminOnly || r.Owner != caller {
		if _, err := requireAdmin(ctx, s.store, caller); err != nil {
			return nil, err
		}
	}
	if r.Locked {
		return nil, domainerrors.Conflict("relayer is locked")
	}

	eventType, err := change(r)
	if err != nil {
		return nil, err
	}
	r.UpdatedAt = s.now()

	if err := s.store.UpdateRelayer(ctx, r); err != nil {
		return nil, fmt.Errorf("update relayer: %w", err)
	}

	s.events.Emit(sse.NewRelayerEvent(eventType, r))
	s.logger.Info("relayer status changed",
		"relayer", addr.String(),
		"event", string(eventType),
		"by", caller.String(),
	)
	return r, nil
}

// IsActiveRelayer reports whether addr is a registered relayer that is
// neither locked nor paused.
func (s *RelayerService) IsActiveRelayer(ctx context.Context, addr domain.Address) (bool, error) {
	r, err := s.store.GetRelayer(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return r.CanTag(), nil
}
