package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

// TargetService resolves target URIs to target ids.
type TargetService struct {
	store  store.Store
	oracle tagging.AuthorizationOracle
	logger *slog.Logger
	now    func() time.Time
}

// NewTargetService creates a new target service.
func NewTargetService(store store.Store, oracle tagging.AuthorizationOracle, logger *slog.Logger) *TargetService {
	return &TargetService{store: store, oracle: oracle, logger: loggerOrDefault(logger), now: time.Now}
}

// CreateTargetRequest registers a target URI.
type CreateTargetRequest struct {
	URI string `json:"uri" validate:"required,max=2048"`
}

// GetTarget retrieves a target by id.
func (s *TargetService) GetTarget(ctx context.Context, id domain.Hash) (*domain.Target, error) {
	return s.store.GetTarget(ctx, id)
}

// GetOrCreate returns the target for req.URI, registering it first if
// needed. created reports whether this call registered it. Only active
// relayers may register targets.
func (s *TargetService) GetOrCreate(ctx context.Context, caller domain.Address, req CreateTargetRequest) (target *domain.Target, created bool, err error) {
	if err := validate.Validate(req); err != nil {
		return nil, false, err
	}
	if err := tagging.ValidateTargetURI(req.URI); err != nil {
		return nil, false, err
	}
	if err := tagging.AuthorizeRelayer(ctx, s.oracle, caller); err != nil {
		return nil, false, err
	}

	id := tagging.ComputeTargetID(req.URI)
	target, err = s.store.GetTarget(ctx, id)
	if err == nil {
		return target, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("get target: %w", err)
	}

	target = &domain.Target{ID: id, URI: req.URI, CreatedBy: caller, CreatedAt: s.now()}
	if err := s.store.CreateTarget(ctx, target); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with another writer.
			existing, getErr := s.store.GetTarget(ctx, id)
			return existing, false, getErr
		}
		return nil, false, fmt.Errorf("create target: %w", err)
	}

	s.logger.Info("target created", "target_id", id.String(), "uri", req.URI, "by", caller.String())
	return target, true, nil
}
