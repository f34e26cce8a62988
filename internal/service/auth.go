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
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

// ParamsSource exposes the protocol parameters in force.
type ParamsSource interface {
	Params() tagging.Params
}

// AuthService handles admin setup, token issuance and token verification.
type AuthService struct {
	store        store.Store
	tokenService *auth.TokenService
	params       ParamsSource
	logger       *slog.Logger
	now          func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(store store.Store, tokenService *auth.TokenService, params ParamsSource, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		params:       params,
		logger:       loggerOrDefault(logger),
		now:          time.Now,
	}
}

// SetupRequest creates the platform admin account.
type SetupRequest struct {
	Address string `json:"address" validate:"required,ethaddr"`
}

// TokenRequest exchanges an API key for an access token.
type TokenRequest struct {
	Address string `json:"address" validate:"required,ethaddr"`
	APIKey  string `json:"api_key" validate:"required,max=256"`
}

// AuthResult is an issued access token. APIKey is only set by Setup.
type AuthResult struct {
	Account     *domain.Account
	APIKey      string
	AccessToken string
	ExpiresAt   time.Time
}

// IsSetupRequired reports whether the admin account has not been created.
func (s *AuthService) IsSetupRequired(ctx context.Context) (bool, error) {
	_, err := s.store.GetAccount(ctx, s.params.Params().Platform)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	return false, err
}

// Setup creates the platform admin account. It succeeds once, and only for
// the configured platform address.
func (s *AuthService) Setup(ctx context.Context, req SetupRequest) (*AuthResult, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	addr, _ := domain.ParseAddress(req.Address)
	if addr != s.params.Params().Platform {
		return nil, domainerrors.Forbidden("address is not the platform address")
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashAPIKey(apiKey)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	account := &domain.Account{
		Address:    addr,
		Role:       domain.RoleAdmin,
		APIKeyHash: hash,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("server is already set up")
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	token, expires, err := s.tokenService.GenerateAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.logger.Info("admin account created", "address", addr.String())

	return &AuthResult{Account: account, APIKey: apiKey, AccessToken: token, ExpiresAt: expires}, nil
}

// Token verifies an address and API key and issues an access token.
// Unknown addresses and wrong keys fail identically.
func (s *AuthService) Token(ctx context.Context, req TokenRequest) (*AuthResult, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	addr, _ := domain.ParseAddress(req.Address)
	account, err := s.store.GetAccount(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	if !auth.VerifyAPIKey(account.APIKeyHash, req.APIKey) {
		s.logger.Warn("api key rejected", "address", addr.String())
		return nil, domainerrors.Unauthorized("invalid credentials")
	}

	token, expires, err := s.tokenService.GenerateAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.logger.Debug("access token issued", "address", addr.String(), "role", string(account.Role))

	return &AuthResult{Account: account, AccessToken: token, ExpiresAt: expires}, nil
}

// VerifyAccessToken validates a bearer token and returns its claims.
func (s *AuthService) VerifyAccessToken(_ context.Context, token string) (*auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token")
	}
	return claims, nil
}
