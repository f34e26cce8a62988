package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ethereum-tag-service/ets-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSetupStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/setup",
		Summary:     "Setup status",
		Description: "Reports whether the platform admin account still needs to be created",
		Tags:        []string{"Authentication"},
	}, s.handleSetupStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "setup",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/setup",
		Summary:     "Initial server setup",
		Description: "Creates the platform admin account. Can only be called once, for the configured platform address.",
		Tags:        []string{"Authentication"},
	}, s.handleSetup)

	huma.Register(s.api, huma.Operation{
		OperationID: "token",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/token",
		Summary:     "Issue access token",
		Description: "Exchanges an address and API key for a PASETO access token",
		Tags:        []string{"Authentication"},
		Middlewares: huma.Middlewares{RateLimitMiddleware(s.authRateLimiter, s.logger)},
	}, s.handleToken)
}

// === DTOs ===

// SetupStatusInput is empty but required by huma.
type SetupStatusInput struct{}

// SetupStatusResponse reports whether setup is still pending.
type SetupStatusResponse struct {
	SetupRequired bool `json:"setup_required" doc:"Whether the admin account is missing"`
}

// SetupStatusOutput wraps the setup status for huma.
type SetupStatusOutput struct {
	Body SetupStatusResponse
}

// SetupRequest is the request body for initial setup.
type SetupRequest struct {
	Address string `json:"address" doc:"Platform address"`
}

// SetupInput wraps the setup request for huma.
type SetupInput struct {
	Body SetupRequest
}

// TokenRequest is the request body for issuing a token.
type TokenRequest struct {
	Address string `json:"address" doc:"Account address"`
	APIKey  string `json:"api_key" maxLength:"256" doc:"API key issued at registration or setup"`
}

// TokenInput wraps the token request for huma.
type TokenInput struct {
	Body TokenRequest
}

// AuthResponse contains the issued credentials.
type AuthResponse struct {
	Address     string    `json:"address" doc:"Account address"`
	Role        string    `json:"role" doc:"Account role (admin or relayer)"`
	APIKey      string    `json:"api_key,omitempty" doc:"API key; only returned by setup, store it now"`
	AccessToken string    `json:"access_token" doc:"PASETO v4.local access token"`
	ExpiresAt   time.Time `json:"expires_at" doc:"Access token expiry"`
}

// AuthOutput wraps the auth response for huma.
type AuthOutput struct {
	Body AuthResponse
}

func newAuthOutput(res *service.AuthResult) *AuthOutput {
	return &AuthOutput{Body: AuthResponse{
		Address:     res.Account.Address.String(),
		Role:        string(res.Account.Role),
		APIKey:      res.APIKey,
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt,
	}}
}

// === Handlers ===

func (s *Server) handleSetupStatus(ctx context.Context, _ *SetupStatusInput) (*SetupStatusOutput, error) {
	required, err := s.services.Auth.IsSetupRequired(ctx)
	if err != nil {
		return nil, err
	}
	return &SetupStatusOutput{Body: SetupStatusResponse{SetupRequired: required}}, nil
}

func (s *Server) handleSetup(ctx context.Context, input *SetupInput) (*AuthOutput, error) {
	res, err := s.services.Auth.Setup(ctx, service.SetupRequest{Address: input.Body.Address})
	if err != nil {
		return nil, err
	}
	return newAuthOutput(res), nil
}

func (s *Server) handleToken(ctx context.Context, input *TokenInput) (*AuthOutput, error) {
	res, err := s.services.Auth.Token(ctx, service.TokenRequest{
		Address: input.Body.Address,
		APIKey:  input.Body.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return newAuthOutput(res), nil
}
