package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

// FeeQuote is the price of a hypothetical mutation.
type FeeQuote struct {
	Fee         *big.Int
	NewTagCount int
}

// RawFeeRequest prices a mutation given raw input.
type RawFeeRequest struct {
	TargetURI  string   `json:"target_uri" validate:"required,max=2048"`
	Tags       []string `json:"tags"`
	RecordType string   `json:"record_type"`
	Relayer    string   `json:"relayer" validate:"required,ethaddr"`
	Tagger     string   `json:"tagger" validate:"required,ethaddr"`
	Action     string   `json:"action" validate:"required"`
}

// CompositeFeeRequest prices a mutation given a composite key.
type CompositeFeeRequest struct {
	TargetID   string   `json:"target_id" validate:"required,hash32"`
	TagIDs     []string `json:"tag_ids" validate:"dive,hash32"`
	RecordType string   `json:"record_type"`
	Relayer    string   `json:"relayer" validate:"required,ethaddr"`
	Tagger     string   `json:"tagger" validate:"required,ethaddr"`
	Action     string   `json:"action" validate:"required"`
}

// RecordFeeRequest prices a mutation of a record addressed by id.
type RecordFeeRequest struct {
	TagIDs []string `json:"tag_ids" validate:"dive,hash32"`
	Action string   `json:"action" validate:"required"`
}

// ComputeFee prices a raw-input mutation. A record that does not exist yet
// is priced as empty.
func (s *TaggingService) ComputeFee(ctx context.Context, req RawFeeRequest) (*FeeQuote, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	action, err := tagging.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}
	tagIDs, _, err := s.resolveTagStrings(action, req.Tags)
	if err != nil {
		return nil, err
	}
	relayer, _ := domain.ParseAddress(req.Relayer)
	tagger, _ := domain.ParseAddress(req.Tagger)

	id := tagging.ComputeRecordID(tagging.ComputeTargetID(req.TargetURI), req.RecordType, relayer, tagger)
	return s.quote(ctx, id, tagIDs, action, true)
}

// ComputeFeeComposite prices a composite-key mutation.
func (s *TaggingService) ComputeFeeComposite(ctx context.Context, req CompositeFeeRequest) (*FeeQuote, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	action, err := tagging.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}
	targetID, _ := domain.ParseHash(req.TargetID)
	relayer, _ := domain.ParseAddress(req.Relayer)
	tagger, _ := domain.ParseAddress(req.Tagger)
	tagIDs, _ := domain.ParseHashes(req.TagIDs)

	id := tagging.ComputeRecordID(targetID, req.RecordType, relayer, tagger)
	return s.quote(ctx, id, tagIDs, action, true)
}

// ComputeFeeByID prices a mutation of the record id. Only an existing record
// can be mutated by id, so a missing one quotes zero.
func (s *TaggingService) ComputeFeeByID(ctx context.Context, id domain.Hash, req RecordFeeRequest) (*FeeQuote, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	action, err := tagging.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}
	tagIDs, _ := domain.ParseHashes(req.TagIDs)
	return s.quote(ctx, id, tagIDs, action, false)
}

// quote prices tagIDs against the stored record id. creatable reports
// whether the calling convention may create a missing record.
func (s *TaggingService) quote(ctx context.Context, id domain.Hash, tagIDs []domain.Hash, action tagging.Action, creatable bool) (*FeeQuote, error) {
	existing, err := s.store.GetRecord(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get record: %w", err)
		}
		if !creatable {
			return &FeeQuote{Fee: new(big.Int)}, nil
		}
		existing = nil
	}

	fee, count, err := s.engine.Quote(existing, tagIDs, action)
	if err != nil {
		return nil, err
	}
	return &FeeQuote{Fee: fee, NewTagCount: count}, nil
}
