package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/service"
)

func (s *Server) registerRelayerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "registerRelayer",
		Method:        http.MethodPost,
		Path:          "/api/v1/relayers",
		Summary:       "Register relayer",
		Description:   "Registers a relayer and its account (admin only). Returns the relayer's API key once.",
		Tags:          []string{"Relayers"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
	}, s.handleRegisterRelayer)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRelayers",
		Method:      http.MethodGet,
		Path:        "/api/v1/relayers",
		Summary:     "List relayers",
		Description: "Lists registered relayers ordered by address",
		Tags:        []string{"Relayers"},
	}, s.handleListRelayers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRelayer",
		Method:      http.MethodGet,
		Path:        "/api/v1/relayers/{address}",
		Summary:     "Get relayer",
		Description: "Returns a relayer by address",
		Tags:        []string{"Relayers"},
	}, s.handleGetRelayer)

	huma.Register(s.api, huma.Operation{
		OperationID: "pauseRelayer",
		Method:      http.MethodPost,
		Path:        "/api/v1/relayers/{address}/pause",
		Summary:     "Pause relayer",
		Description: "Stops a relayer from tagging (owner or admin)",
		Tags:        []string{"Relayers"},
		Security:    bearer,
	}, s.relayerAction(s.services.Relayer.Pause))

	huma.Register(s.api, huma.Operation{
		OperationID: "unpauseRelayer",
		Method:      http.MethodPost,
		Path:        "/api/v1/relayers/{address}/unpause",
		Summary:     "Unpause relayer",
		Description: "Lets a paused relayer tag again (owner or admin)",
		Tags:        []string{"Relayers"},
		Security:    bearer,
	}, s.relayerAction(s.services.Relayer.Unpause))

	huma.Register(s.api, huma.Operation{
		OperationID: "lockRelayer",
		Method:      http.MethodPost,
		Path:        "/api/v1/relayers/{address}/lock",
		Summary:     "Lock relayer",
		Description: "Permanently deactivates a relayer (admin only)",
		Tags:        []string{"Relayers"},
		Security:    bearer,
	}, s.relayerAction(s.services.Relayer.Lock))
}

// === DTOs ===

// RegisterRelayerRequest is the request body for registering a relayer.
type RegisterRelayerRequest struct {
	Address string `json:"address" doc:"Relayer address"`
	Name    string `json:"name" maxLength:"64" doc:"Display name"`
	Owner   string `json:"owner,omitempty" doc:"Owner address; defaults to the registering admin"`
}

// RegisterRelayerInput wraps the register request for huma.
type RegisterRelayerInput struct {
	Body RegisterRelayerRequest
}

// RegisteredRelayerResponse is a new relayer and its API key.
type RegisteredRelayerResponse struct {
	Relayer RelayerResponse `json:"relayer" doc:"Registered relayer"`
	APIKey  string          `json:"api_key" doc:"API key for the relayer account; shown once"`
}

// RegisterRelayerOutput wraps the registration response for huma.
type RegisterRelayerOutput struct {
	Body RegisteredRelayerResponse
}

// RelayerInput contains the relayer address.
type RelayerInput struct {
	Address string `path:"address" doc:"Relayer address"`
}

// RelayerOutput wraps the relayer response for huma.
type RelayerOutput struct {
	Body RelayerResponse
}

// ListRelayersInput contains pagination parameters.
type ListRelayersInput struct {
	PageQuery
}

// ListRelayersOutput wraps a page of relayers for huma.
type ListRelayersOutput struct {
	Body Page[RelayerResponse]
}

// === Handlers ===

func (s *Server) handleRegisterRelayer(ctx context.Context, input *RegisterRelayerInput) (*RegisterRelayerOutput, error) {
	caller, err := GetCaller(ctx)
	if err != nil {
		return nil, err
	}

	reg, err := s.services.Relayer.Register(ctx, caller, service.RegisterRelayerRequest{
		Address: input.Body.Address,
		Name:    input.Body.Name,
		Owner:   input.Body.Owner,
	})
	if err != nil {
		return nil, err
	}

	return &RegisterRelayerOutput{Body: RegisteredRelayerResponse{
		Relayer: newRelayerResponse(reg.Relayer),
		APIKey:  reg.APIKey,
	}}, nil
}

func (s *Server) handleListRelayers(ctx context.Context, input *ListRelayersInput) (*ListRelayersOutput, error) {
	res, err := s.services.Relayer.ListRelayers(ctx, input.params())
	if err != nil {
		return nil, err
	}
	return &ListRelayersOutput{Body: newPage(res, newRelayerResponse)}, nil
}

func (s *Server) handleGetRelayer(ctx context.Context, input *RelayerInput) (*RelayerOutput, error) {
	addr, err := parseAddressParam("address", input.Address)
	if err != nil {
		return nil, err
	}

	r, err := s.services.Relayer.GetRelayer(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &RelayerOutput{Body: newRelayerResponse(r)}, nil
}

type relayerActionFunc func(ctx context.Context, caller, addr domain.Address) (*domain.Relayer, error)

func (s *Server) relayerAction(fn relayerActionFunc) func(context.Context, *RelayerInput) (*RelayerOutput, error) {
	return func(ctx context.Context, input *RelayerInput) (*RelayerOutput, error) {
		caller, err := GetCaller(ctx)
		if err != nil {
			return nil, err
		}
		addr, err := parseAddressParam("address", input.Address)
		if err != nil {
			return nil, err
		}

		r, err := fn(ctx, caller, addr)
		if err != nil {
			return nil, err
		}
		return &RelayerOutput{Body: newRelayerResponse(r)}, nil
	}
}
