package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ethereum-tag-service/ets-server/internal/service"
)

func (s *Server) registerTargetRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getTarget",
		Method:      http.MethodGet,
		Path:        "/api/v1/targets/{id}",
		Summary:     "Get target",
		Description: "Returns a target by ID",
		Tags:        []string{"Targets"},
	}, s.handleGetTarget)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTarget",
		Method:      http.MethodPost,
		Path:        "/api/v1/targets",
		Summary:     "Get or create target",
		Description: "Registers a target URI if it is new and returns it (active relayers only). Responds 201 when created.",
		Tags:        []string{"Targets"},
		Security:    bearer,
	}, s.handleCreateTarget)
}

// === DTOs ===

// GetTargetInput contains parameters for getting a target.
type GetTargetInput struct {
	ID string `path:"id" doc:"Target ID"`
}

// TargetOutput wraps the target response for huma.
type TargetOutput struct {
	Status int
	Body   TargetResponse
}

// CreateTargetRequest is the request body for registering a target.
type CreateTargetRequest struct {
	URI string `json:"uri" doc:"Target URI, at most 2048 bytes"`
}

// CreateTargetInput wraps the create request for huma.
type CreateTargetInput struct {
	Body CreateTargetRequest
}

// === Handlers ===

func (s *Server) handleGetTarget(ctx context.Context, input *GetTargetInput) (*TargetOutput, error) {
	id, err := parseHashParam("target id", input.ID)
	if err != nil {
		return nil, err
	}

	t, err := s.services.Target.GetTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TargetOutput{Status: http.StatusOK, Body: newTargetResponse(t)}, nil
}

func (s *Server) handleCreateTarget(ctx context.Context, input *CreateTargetInput) (*TargetOutput, error) {
	caller, err := GetCaller(ctx)
	if err != nil {
		return nil, err
	}

	t, created, err := s.services.Target.GetOrCreate(ctx, caller, service.CreateTargetRequest{URI: input.Body.URI})
	if err != nil {
		return nil, err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return &TargetOutput{Status: status, Body: newTargetResponse(t)}, nil
}
