package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ethereum-tag-service/ets-server/internal/search"
	"github.com/ethereum-tag-service/ets-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Lists tags ordered by ID",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/search",
		Summary:     "Search tags",
		Description: "Full-text and prefix search over tag display strings",
		Tags:        []string{"Tags"},
	}, s.handleSearchTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "lookupTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/lookup",
		Summary:     "Look up tag",
		Description: "Returns the tag for a tag string in any casing",
		Tags:        []string{"Tags"},
	}, s.handleLookupTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "transferTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{id}/transfer",
		Summary:     "Transfer tag",
		Description: "Moves a tag to a new owner (admin only). The owner receives the remainder of future fee shares.",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, s.handleTransferTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTagFlags",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag flags",
		Description: "Sets the premium and reserved flags of a tag (admin only)",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, s.handleUpdateTagFlags)
}

// === DTOs ===

// ListTagsInput contains pagination parameters.
type ListTagsInput struct {
	PageQuery
}

// ListTagsOutput wraps a page of tags for huma.
type ListTagsOutput struct {
	Body Page[TagResponse]
}

// GetTagInput contains parameters for getting a tag.
type GetTagInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// TagOutput wraps the tag response for huma.
type TagOutput struct {
	Body TagResponse
}

// LookupTagInput contains the tag string.
type LookupTagInput struct {
	Tag string `query:"tag" required:"true" doc:"Tag string, e.g. #love"`
}

// SearchTagsInput contains tag search parameters.
type SearchTagsInput struct {
	Query   string `query:"q" doc:"Search text; a leading # is ignored"`
	Owner   string `query:"owner" doc:"Only tags owned by this address"`
	Premium bool   `query:"premium" doc:"Only premium tags"`
	Sort    string `query:"sort" enum:"relevance,recent,name" default:"relevance" doc:"Sort order"`
	Limit   int    `query:"limit" minimum:"0" maximum:"100" doc:"Hits per page (default 20)"`
	Offset  int    `query:"offset" minimum:"0" doc:"Hits to skip"`
}

// SearchTagsOutput wraps search results for huma.
type SearchTagsOutput struct {
	Body *search.SearchResult
}

// TransferTagRequest is the request body for transferring a tag.
type TransferTagRequest struct {
	Owner string `json:"owner" doc:"New owner address"`
}

// TransferTagInput wraps the transfer request for huma.
type TransferTagInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body TransferTagRequest
}

// UpdateTagFlagsRequest is the request body for updating tag flags.
type UpdateTagFlagsRequest struct {
	Premium  *bool `json:"premium,omitempty" doc:"Premium tag"`
	Reserved *bool `json:"reserved,omitempty" doc:"Reserved for auction"`
}

// UpdateTagFlagsInput wraps the flags request for huma.
type UpdateTagFlagsInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body UpdateTagFlagsRequest
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
	res, err := s.services.Tag.ListTags(ctx, input.params())
	if err != nil {
		return nil, err
	}
	return &ListTagsOutput{Body: newPage(res, newTagResponse)}, nil
}

func (s *Server) handleSearchTags(ctx context.Context, input *SearchTagsInput) (*SearchTagsOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.PremiumOnly = input.Premium
	params.Offset = input.Offset
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Sort != "" {
		params.SortBy = input.Sort
	}
	if input.Owner != "" {
		owner, err := parseAddressParam("owner", input.Owner)
		if err != nil {
			return nil, err
		}
		params.Owner = owner.String()
	}

	res, err := s.services.Tag.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	if res.Hits == nil {
		res.Hits = []search.TagHit{}
	}
	return &SearchTagsOutput{Body: res}, nil
}

func (s *Server) handleLookupTag(ctx context.Context, input *LookupTagInput) (*TagOutput, error) {
	t, err := s.services.Tag.LookupTag(ctx, input.Tag)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *GetTagInput) (*TagOutput, error) {
	id, err := parseHashParam("tag id", input.ID)
	if err != nil {
		return nil, err
	}

	t, err := s.services.Tag.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}

func (s *Server) handleTransferTag(ctx context.Context, input *TransferTagInput) (*TagOutput, error) {
	caller, err := GetCaller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseHashParam("tag id", input.ID)
	if err != nil {
		return nil, err
	}

	t, err := s.services.Tag.Transfer(ctx, caller, id, service.TransferTagRequest{Owner: input.Body.Owner})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}

func (s *Server) handleUpdateTagFlags(ctx context.Context, input *UpdateTagFlagsInput) (*TagOutput, error) {
	caller, err := GetCaller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseHashParam("tag id", input.ID)
	if err != nil {
		return nil, err
	}

	t, err := s.services.Tag.UpdateFlags(ctx, caller, id, service.UpdateTagFlagsRequest{
		Premium:  input.Body.Premium,
		Reserved: input.Body.Reserved,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}
