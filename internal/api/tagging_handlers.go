package api

import (
	"context"
	"math/big"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	domainerrors "github.com/ethereum-tag-service/ets-server/internal/errors"
	"github.com/ethereum-tag-service/ets-server/internal/service"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (s *Server) registerTaggingRoutes() {
	svc := s.services.Tagging

	// Raw input: target URI and tag strings.
	registerMutation(s, "applyTags", "/api/v1/tagging/apply",
		"Apply tags", "Adds tags to the record for the target, creating the record, target and tags as needed. Pays for net-new tags.",
		s.rawMutation(svc.ApplyTags))
	registerMutation(s, "replaceTags", "/api/v1/tagging/replace",
		"Replace tags", "Makes the record's tag set exactly the given tags. Pays for the tags not already present.",
		s.rawMutation(svc.ReplaceTags))
	registerMutation(s, "removeTags", "/api/v1/tagging/remove",
		"Remove tags", "Removes tags from an existing record. Free; any value sent is rejected.",
		s.rawMutation(svc.RemoveTags))

	// Composite input: existing target and tag ids.
	registerMutation(s, "applyTagsComposite", "/api/v1/tagging/records/apply",
		"Apply tags by ids", "Adds existing tags to the record for an existing target.",
		s.compositeMutation(svc.ApplyTagsComposite))
	registerMutation(s, "replaceTagsComposite", "/api/v1/tagging/records/replace",
		"Replace tags by ids", "Makes the record's tag set exactly the given tag ids.",
		s.compositeMutation(svc.ReplaceTagsComposite))
	registerMutation(s, "removeTagsComposite", "/api/v1/tagging/records/remove",
		"Remove tags by ids", "Removes tag ids from an existing record.",
		s.compositeMutation(svc.RemoveTagsComposite))

	// Record id: the record must already exist.
	registerMutation(s, "appendTags", "/api/v1/tagging/records/{id}/append",
		"Append tags to record", "Adds existing tags to an existing record.",
		s.recordMutation(svc.AppendTags))
	registerMutation(s, "replaceTagsByID", "/api/v1/tagging/records/{id}/replace",
		"Replace tags of record", "Makes an existing record's tag set exactly the given tag ids.",
		s.recordMutation(svc.ReplaceTagsByID))
	registerMutation(s, "removeTagsByID", "/api/v1/tagging/records/{id}/remove",
		"Remove tags from record", "Removes tag ids from an existing record.",
		s.recordMutation(svc.RemoveTagsByID))

	huma.Register(s.api, huma.Operation{
		OperationID: "computeTaggingFee",
		Method:      http.MethodPost,
		Path:        "/api/v1/tagging/fee",
		Summary:     "Compute tagging fee",
		Description: "Quotes the fee and net-new tag count an action would incur. Read only.",
		Tags:        []string{"Tagging"},
	}, s.handleComputeFee)

	huma.Register(s.api, huma.Operation{
		OperationID: "computeTaggingFeeComposite",
		Method:      http.MethodPost,
		Path:        "/api/v1/tagging/records/fee",
		Summary:     "Compute tagging fee by ids",
		Description: "Quotes the fee for a composite-input action. Read only.",
		Tags:        []string{"Tagging"},
	}, s.handleComputeFeeComposite)

	huma.Register(s.api, huma.Operation{
		OperationID: "computeTaggingFeeByID",
		Method:      http.MethodPost,
		Path:        "/api/v1/tagging/records/{id}/fee",
		Summary:     "Compute tagging fee for record",
		Description: "Quotes the fee for an action on a record. A missing record quotes zero.",
		Tags:        []string{"Tagging"},
	}, s.handleComputeFeeByID)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRecords",
		Method:      http.MethodGet,
		Path:        "/api/v1/tagging/records",
		Summary:     "List tagging records",
		Description: "Lists records, optionally filtered by target, tagger and relayer",
		Tags:        []string{"Tagging"},
	}, s.handleListRecords)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecord",
		Method:      http.MethodGet,
		Path:        "/api/v1/tagging/records/{id}",
		Summary:     "Get tagging record",
		Description: "Returns a tagging record by ID",
		Tags:        []string{"Tagging"},
	}, s.handleGetRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "computeRecordID",
		Method:      http.MethodGet,
		Path:        "/api/v1/tagging/record-id",
		Summary:     "Compute record ID",
		Description: "Derives the record id for a composite key. The record need not exist.",
		Tags:        []string{"Tagging"},
	}, s.handleRecordID)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTaggingParams",
		Method:      http.MethodGet,
		Path:        "/api/v1/tagging/params",
		Summary:     "Protocol parameters",
		Description: "Returns the fee and split parameters currently in force",
		Tags:        []string{"Tagging"},
	}, s.handleGetParams)
}

// registerMutation registers a bearer-authenticated tagging POST.
func registerMutation[I any](s *Server, id, path, summary, description string, handler func(context.Context, *I) (*MutationOutput, error)) {
	huma.Register(s.api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		Description: description,
		Tags:        []string{"Tagging"},
		Security:    bearer,
	}, handler)
}

// === DTOs ===

// RawTaggingRequest is the request body for raw-input mutations.
type RawTaggingRequest struct {
	TargetURI  string   `json:"target_uri" doc:"Target URI, at most 2048 bytes"`
	Tags       []string `json:"tags" doc:"Tag strings, e.g. #love"`
	RecordType string   `json:"record_type,omitempty" doc:"Application-defined record type"`
	Tagger     string   `json:"tagger" doc:"Tagger address"`
	Value      string   `json:"value,omitempty" doc:"Payment in wei, decimal string"`
}

// RawTaggingInput wraps the raw request for huma.
type RawTaggingInput struct {
	Body RawTaggingRequest
}

// CompositeTaggingRequest is the request body for composite-input mutations.
type CompositeTaggingRequest struct {
	TargetID   string   `json:"target_id" doc:"Target ID"`
	TagIDs     []string `json:"tag_ids" doc:"Tag IDs"`
	RecordType string   `json:"record_type,omitempty" doc:"Application-defined record type"`
	Tagger     string   `json:"tagger" doc:"Tagger address"`
	Value      string   `json:"value,omitempty" doc:"Payment in wei, decimal string"`
}

// CompositeTaggingInput wraps the composite request for huma.
type CompositeTaggingInput struct {
	Body CompositeTaggingRequest
}

// RecordTaggingRequest is the request body for mutations addressed by record id.
type RecordTaggingRequest struct {
	TagIDs []string `json:"tag_ids" doc:"Tag IDs"`
	Tagger string   `json:"tagger" doc:"Tagger address; must match the record's tagger"`
	Value  string   `json:"value,omitempty" doc:"Payment in wei, decimal string"`
}

// RecordTaggingInput wraps the record-id request for huma.
type RecordTaggingInput struct {
	ID   string `path:"id" doc:"Record ID"`
	Body RecordTaggingRequest
}

// MutationResponse describes the outcome of a tagging mutation.
type MutationResponse struct {
	Record      RecordResponse `json:"record" doc:"Record after the mutation"`
	Added       []string       `json:"added" doc:"Tag IDs added"`
	Removed     []string       `json:"removed" doc:"Tag IDs removed"`
	Fee         string         `json:"fee" doc:"Fee charged in wei"`
	NewTagCount int            `json:"new_tag_count" doc:"Net-new tags paid for"`
	Created     bool           `json:"created" doc:"Whether the record was created"`
}

// MutationOutput wraps the mutation response for huma.
type MutationOutput struct {
	Body MutationResponse
}

func newMutationOutput(res *service.MutationResult) *MutationOutput {
	return &MutationOutput{Body: MutationResponse{
		Record:      newRecordResponse(res.Record),
		Added:       hexStrings(res.Added),
		Removed:     hexStrings(res.Removed),
		Fee:         res.Fee.String(),
		NewTagCount: res.NewTagCount,
		Created:     res.Created,
	}}
}

// FeeRequest is the request body for raw-input fee quotes.
type FeeRequest struct {
	TargetURI  string   `json:"target_uri" doc:"Target URI"`
	Tags       []string `json:"tags" doc:"Tag strings"`
	RecordType string   `json:"record_type,omitempty" doc:"Record type"`
	Relayer    string   `json:"relayer" doc:"Relayer address"`
	Tagger     string   `json:"tagger" doc:"Tagger address"`
	Action     string   `json:"action" enum:"append,apply,replace,remove" doc:"Action to quote"`
}

// FeeInput wraps the raw fee request for huma.
type FeeInput struct {
	Body FeeRequest
}

// CompositeFeeRequest is the request body for composite-input fee quotes.
type CompositeFeeRequest struct {
	TargetID   string   `json:"target_id" doc:"Target ID"`
	TagIDs     []string `json:"tag_ids" doc:"Tag IDs"`
	RecordType string   `json:"record_type,omitempty" doc:"Record type"`
	Relayer    string   `json:"relayer" doc:"Relayer address"`
	Tagger     string   `json:"tagger" doc:"Tagger address"`
	Action     string   `json:"action" enum:"append,apply,replace,remove" doc:"Action to quote"`
}

// CompositeFeeInput wraps the composite fee request for huma.
type CompositeFeeInput struct {
	Body CompositeFeeRequest
}

// RecordFeeRequest is the request body for fee quotes by record id.
type RecordFeeRequest struct {
	TagIDs []string `json:"tag_ids" doc:"Tag IDs"`
	Action string   `json:"action" enum:"append,apply,replace,remove" doc:"Action to quote"`
}

// RecordFeeInput wraps the record fee request for huma.
type RecordFeeInput struct {
	ID   string `path:"id" doc:"Record ID"`
	Body RecordFeeRequest
}

// FeeResponse is a fee quote.
type FeeResponse struct {
	Fee         string `json:"fee" doc:"Fee in wei"`
	NewTagCount int    `json:"new_tag_count" doc:"Net-new tags that would be paid for"`
}

// FeeOutput wraps the fee response for huma.
type FeeOutput struct {
	Body FeeResponse
}

func newFeeOutput(q *service.FeeQuote) *FeeOutput {
	return &FeeOutput{Body: FeeResponse{Fee: q.Fee.String(), NewTagCount: q.NewTagCount}}
}

// GetRecordInput contains parameters for getting a record.
type GetRecordInput struct {
	ID string `path:"id" doc:"Record ID"`
}

// RecordOutput wraps the record response for huma.
type RecordOutput struct {
	Body RecordResponse
}

// ListRecordsInput contains filters for listing records.
type ListRecordsInput struct {
	PageQuery
	TargetID string `query:"target_id" doc:"Only records of this target"`
	Tagger   string `query:"tagger" doc:"Only records of this tagger"`
	Relayer  string `query:"relayer" doc:"Only records of this relayer"`
}

// ListRecordsOutput wraps a page of records for huma.
type ListRecordsOutput struct {
	Body Page[RecordResponse]
}

// RecordIDInput contains the composite key of a record.
type RecordIDInput struct {
	TargetID   string `query:"target_id" doc:"Target ID; or give target_uri"`
	TargetURI  string `query:"target_uri" doc:"Target URI; used when target_id is empty"`
	RecordType string `query:"record_type" doc:"Record type"`
	Relayer    string `query:"relayer" required:"true" doc:"Relayer address"`
	Tagger     string `query:"tagger" required:"true" doc:"Tagger address"`
}

// RecordIDResponse is a derived record id.
type RecordIDResponse struct {
	RecordID string `json:"record_id" doc:"Record ID"`
	TargetID string `json:"target_id" doc:"Target ID"`
}

// RecordIDOutput wraps the derived id for huma.
type RecordIDOutput struct {
	Body RecordIDResponse
}

// ParamsInput is empty but required by huma.
type ParamsInput struct{}

// ParamsResponse are the protocol parameters in force.
type ParamsResponse struct {
	PlatformAddress     string `json:"platform_address" doc:"Platform address"`
	TaggingFee          string `json:"tagging_fee" doc:"Fee per net-new tag in wei"`
	PlatformPercentage  int    `json:"platform_percentage" doc:"Platform share of each tag fee"`
	RelayerPercentage   int    `json:"relayer_percentage" doc:"Relayer share of each tag fee"`
	MaxRecordTypeLength int    `json:"max_record_type_length" doc:"Maximum record type length in bytes"`
	TagMinLength        int    `json:"tag_min_length" doc:"Minimum tag length in bytes"`
	TagMaxLength        int    `json:"tag_max_length" doc:"Maximum tag length in bytes"`
}

// ParamsOutput wraps the params response for huma.
type ParamsOutput struct {
	Body ParamsResponse
}

// === Handlers ===

type (
	rawMutationFunc       func(context.Context, domain.Address, service.RawTaggingRequest) (*service.MutationResult, error)
	compositeMutationFunc func(context.Context, domain.Address, service.CompositeTaggingRequest) (*service.MutationResult, error)
	recordMutationFunc    func(context.Context, domain.Address, domain.Hash, service.RecordTaggingRequest) (*service.MutationResult, error)
)

func (s *Server) rawMutation(fn rawMutationFunc) func(context.Context, *RawTaggingInput) (*MutationOutput, error) {
	return func(ctx context.Context, input *RawTaggingInput) (*MutationOutput, error) {
		caller, err := GetCaller(ctx)
		if err != nil {
			return nil, err
		}

		res, err := fn(ctx, caller, service.RawTaggingRequest{
			TargetURI:  input.Body.TargetURI,
			Tags:       input.Body.Tags,
			RecordType: input.Body.RecordType,
			Tagger:     input.Body.Tagger,
			Value:      input.Body.Value,
		})
		if err != nil {
			return nil, err
		}
		return newMutationOutput(res), nil
	}
}

func (s *Server) compositeMutation(fn compositeMutationFunc) func(context.Context, *CompositeTaggingInput) (*MutationOutput, error) {
	return func(ctx context.Context, input *CompositeTaggingInput) (*MutationOutput, error) {
		caller, err := GetCaller(ctx)
		if err != nil {
			return nil, err
		}

		res, err := fn(ctx, caller, service.CompositeTaggingRequest{
			TargetID:   input.Body.TargetID,
			TagIDs:     input.Body.TagIDs,
			RecordType: input.Body.RecordType,
			Tagger:     input.Body.Tagger,
			Value:      input.Body.Value,
		})
		if err != nil {
			return nil, err
		}
		return newMutationOutput(res), nil
	}
}

func (s *Server) recordMutation(fn recordMutationFunc) func(context.Context, *RecordTaggingInput) (*MutationOutput, error) {
	return func(ctx context.Context, input *RecordTaggingInput) (*MutationOutput, error) {
		caller, err := GetCaller(ctx)
		if err != nil {
			return nil, err
		}
		id, err := parseHashParam("record id", input.ID)
		if err != nil {
			return nil, err
		}

		res, err := fn(ctx, caller, id, service.RecordTaggingRequest{
			TagIDs: input.Body.TagIDs,
			Tagger: input.Body.Tagger,
			Value:  input.Body.Value,
		})
		if err != nil {
			return nil, err
		}
		return newMutationOutput(res), nil
	}
}

func (s *Server) handleComputeFee(ctx context.Context, input *FeeInput) (*FeeOutput, error) {
	q, err := s.services.Tagging.ComputeFee(ctx, service.RawFeeRequest{
		TargetURI:  input.Body.TargetURI,
		Tags:       input.Body.Tags,
		RecordType: input.Body.RecordType,
		Relayer:    input.Body.Relayer,
		Tagger:     input.Body.Tagger,
		Action:     input.Body.Action,
	})
	if err != nil {
		return nil, err
	}
	return newFeeOutput(q), nil
}

func (s *Server) handleComputeFeeComposite(ctx context.Context, input *CompositeFeeInput) (*FeeOutput, error) {
	q, err := s.services.Tagging.ComputeFeeComposite(ctx, service.CompositeFeeRequest{
		TargetID:   input.Body.TargetID,
		TagIDs:     input.Body.TagIDs,
		RecordType: input.Body.RecordType,
		Relayer:    input.Body.Relayer,
		Tagger:     input.Body.Tagger,
		Action:     input.Body.Action,
	})
	if err != nil {
		return nil, err
	}
	return newFeeOutput(q), nil
}

func (s *Server) handleComputeFeeByID(ctx context.Context, input *RecordFeeInput) (*FeeOutput, error) {
	id, err := parseHashParam("record id", input.ID)
	if err != nil {
		return nil, err
	}

	q, err := s.services.Tagging.ComputeFeeByID(ctx, id, service.RecordFeeRequest{
		TagIDs: input.Body.TagIDs,
		Action: input.Body.Action,
	})
	if err != nil {
		return nil, err
	}
	return newFeeOutput(q), nil
}

func (s *Server) handleGetRecord(ctx context.Context, input *GetRecordInput) (*RecordOutput, error) {
	id, err := parseHashParam("record id", input.ID)
	if err != nil {
		return nil, err
	}

	r, err := s.services.Tagging.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RecordOutput{Body: newRecordResponse(r)}, nil
}

func (s *Server) handleListRecords(ctx context.Context, input *ListRecordsInput) (*ListRecordsOutput, error) {
	var (
		filter store.RecordFilter
		err    error
	)
	if filter.TargetID, err = optionalHash("target_id", input.TargetID); err != nil {
		return nil, err
	}
	if filter.Tagger, err = optionalAddress("tagger", input.Tagger); err != nil {
		return nil, err
	}
	if filter.Relayer, err = optionalAddress("relayer", input.Relayer); err != nil {
		return nil, err
	}

	res, err := s.services.Tagging.ListRecords(ctx, filter, input.params())
	if err != nil {
		return nil, err
	}
	return &ListRecordsOutput{Body: newPage(res, newRecordResponse)}, nil
}

func (s *Server) handleRecordID(_ context.Context, input *RecordIDInput) (*RecordIDOutput, error) {
	var targetID domain.Hash
	switch {
	case input.TargetID != "":
		id, err := parseHashParam("target_id", input.TargetID)
		if err != nil {
			return nil, err
		}
		targetID = id
	case input.TargetURI != "":
		targetID = tagging.ComputeTargetID(input.TargetURI)
	default:
		return nil, domainerrors.Validation("target_id or target_uri is required")
	}

	relayer, err := parseAddressParam("relayer", input.Relayer)
	if err != nil {
		return nil, err
	}
	tagger, err := parseAddressParam("tagger", input.Tagger)
	if err != nil {
		return nil, err
	}

	return &RecordIDOutput{Body: RecordIDResponse{
		RecordID: s.services.Tagging.RecordID(targetID, input.RecordType, relayer, tagger).String(),
		TargetID: targetID.String(),
	}}, nil
}

func (s *Server) handleGetParams(_ context.Context, _ *ParamsInput) (*ParamsOutput, error) {
	p := s.services.Tagging.Params()
	fee := p.TaggingFee
	if fee == nil {
		fee = new(big.Int)
	}
	return &ParamsOutput{Body: ParamsResponse{
		PlatformAddress:     p.Platform.String(),
		TaggingFee:          fee.String(),
		PlatformPercentage:  p.PlatformPercentage,
		RelayerPercentage:   p.RelayerPercentage,
		MaxRecordTypeLength: p.MaxRecordTypeLength,
		TagMinLength:        p.TagMinLength,
		TagMaxLength:        p.TagMaxLength,
	}}, nil
}
