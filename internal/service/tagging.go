package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	domainerrors "github.com/ethereum-tag-service/ets-server/internal/errors"
	"github.com/ethereum-tag-service/ets-server/internal/sse"
	"github.com/ethereum-tag-service/ets-server/internal/store"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

// TaggingService runs tagging mutations. The three calling conventions (raw
// input, composite key, record id) resolve their identifiers and then share
// one mutation path, which runs under a single lock: plan against the stored
// record, commit every write in one transaction, then emit events.
type TaggingService struct {
	mu     sync.Mutex
	store  store.Store
	engine *tagging.Engine
	events EventEmitter
	logger *slog.Logger
	now    func() time.Time
}

// NewTaggingService creates a new tagging service.
func NewTaggingService(store store.Store, engine *tagging.Engine, events EventEmitter, logger *slog.Logger) *TaggingService {
	if events == nil {
		events = NoopEmitter{}
	}
	return &TaggingService{
		store:  store,
		engine: engine,
		events: events,
		logger: loggerOrDefault(logger),
		now:    time.Now,
	}
}

// RawTaggingRequest addresses a record by target URI and tag strings. The
// relayer is the caller.
type RawTaggingRequest struct {
	TargetURI  string   `json:"target_uri" validate:"required,max=2048"`
	Tags       []string `json:"tags"`
	RecordType string   `json:"record_type"`
	Tagger     string   `json:"tagger" validate:"required,ethaddr"`
	Value      string   `json:"value" validate:"omitempty,wei"`
}

// CompositeTaggingRequest addresses a record by its composite key, using
// already registered target and tag ids. The relayer is the caller.
type CompositeTaggingRequest struct {
	TargetID   string   `json:"target_id" validate:"required,hash32"`
	TagIDs     []string `json:"tag_ids" validate:"dive,hash32"`
	RecordType string   `json:"record_type"`
	Tagger     string   `json:"tagger" validate:"required,ethaddr"`
	Value      string   `json:"value" validate:"omitempty,wei"`
}

// RecordTaggingRequest mutates a record addressed by id.
type RecordTaggingRequest struct {
	TagIDs []string `json:"tag_ids" validate:"dive,hash32"`
	Tagger string   `json:"tagger" validate:"required,ethaddr"`
	Value  string   `json:"value" validate:"omitempty,wei"`
}

// MutationResult is the outcome of a tagging mutation.
type MutationResult struct {
	Record      *domain.TaggingRecord
	Added       []domain.Hash
	Removed     []domain.Hash
	Fee         *big.Int
	NewTagCount int
	Created     bool
}

// mutationInput is a tagging request with every identifier resolved.
type mutationInput struct {
	action   tagging.Action
	key      *tagging.Key // nil when addressed by recordID
	recordID domain.Hash
	create   bool
	caller   domain.Address
	tagger   domain.Address
	tagIDs   []domain.Hash
	payment  *big.Int

	// Raw input only: unknown targets and tags are registered on first use.
	targetURI string
	displays  map[domain.Hash]string
}

// ApplyTags appends tags to the record of (target, record type, caller,
// tagger), creating the record, the target and any new tags as needed.
func (s *TaggingService) ApplyTags(ctx context.Context, caller domain.Address, req RawTaggingRequest) (*MutationResult, error) {
	in, err := s.rawInput(tagging.ActionAppend, caller, req, true)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, in)
}

// ApplyTagsComposite appends registered tags to the record of the composite
// key, creating the record if needed.
func (s *TaggingService) ApplyTagsComposite(ctx context.Context, caller domain.Address, req CompositeTaggingRequest) (*MutationResult, error) {
	in, err := compositeInput(tagging.ActionAppend, caller, req, true)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, in)
}

// AppendTags appends registered tags to an existing record.
func (s *TaggingService) AppendTags(ctx context.Context, caller domain.Address, recordID domain.Hash, req RecordTaggingRequest) (*MutationResult, error) {
	in, err := recordInput(tagging.ActionAppend, caller, recordID, req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, in)
}

// ReplaceTags makes the record's tag set equal req.Tags. The record is
// created if it does not exist.
func (s *TaggingService) ReplaceTags(ctx context.Context, caller domain.Address, req RawTaggingRequest) (*MutationResult, error) {
	in, err := s.rawInput(tagging.ActionReplace, caller, req, true)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, in)
}

// ReplaceTagsComposite is ReplaceTags addressed by composite key.
func (s *TaggingService) ReplaceTagsComposite(ctx context.Context, caller domain.Address, req CompositeTaggingRequest) (*MutationResult, error) {
	in, err := compositeInput(tagging.ActionReplace, caller, req, true)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, in)
}

// ReplaceTagsByID replaces the tag set of an existing record.
func (s *TaggingService) ReplaceTagsByID(ctx context.Context, caller domain.Address, recordID domain.Hash, req RecordTaggingRequest) (*MutationResult, error) {
	in, err := recordInput(tagging.ActionReplace, caller, recordID, req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, in)
}

// RemoveTags removes tags from an existing record. Removal is free and never
// creates a record, target or tag.
func (s *TaggingService) RemoveTags(ctx context.Context, caller domain.Address, req RawTaggingRequest) (*MutationResult, error) {
	in, err := s.rawInput(tagging.ActionRemove, caller, req, false)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, in)
}

// RemoveTagsComposite is RemoveTags addressed by composite key.
func (s *TaggingService) RemoveTagsComposite(ctx context.Context, caller domain.Address, req CompositeTaggingRequest) (*MutationResult, error) {
	in, err := compositeInput(tagging.ActionRemove, caller, req, false)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, in)
}

// RemoveTagsByID removes tags from a record addressed by id.
func (s *TaggingService) RemoveTagsByID(ctx context.Context, caller domain.Address, recordID domain.Hash, req RecordTaggingRequest) (*MutationResult, error) {
	in, err := recordInput(tagging.ActionRemove, caller, recordID, req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, in)
}

func (s *TaggingService) rawInput(action tagging.Action, caller domain.Address, req RawTaggingRequest, create bool) (*mutationInput, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if err := tagging.ValidateTargetURI(req.TargetURI); err != nil {
		return nil, err
	}
	tagger, _ := domain.ParseAddress(req.Tagger)
	payment, err := parseWei("value", req.Value)
	if err != nil {
		return nil, err
	}

	tagIDs, displays, err := s.resolveTagStrings(action, req.Tags)
	if err != nil {
		return nil, err
	}

	return &mutationInput{
		action: action,
		key: &tagging.Key{
			TargetID:   tagging.ComputeTargetID(req.TargetURI),
			RecordType: req.RecordType,
			Relayer:    caller,
			Tagger:     tagger,
		},
		create:    create,
		caller:    caller,
		tagger:    tagger,
		tagIDs:    tagIDs,
		payment:   payment,
		targetURI: req.TargetURI,
		displays:  displays,
	}, nil
}

// resolveTagStrings maps tag strings to ids, remembering the first display
// form of each. Removal does not validate: a malformed tag cannot be present.
func (s *TaggingService) resolveTagStrings(action tagging.Action, tags []string) ([]domain.Hash, map[domain.Hash]string, error) {
	p := s.engine.Params()
	ids := make([]domain.Hash, 0, len(tags))
	displays := make(map[domain.Hash]string, len(tags))
	for _, tag := range tags {
		if action != tagging.ActionRemove {
			if err := tagging.ValidateTag(tag, p); err != nil {
				return nil, nil, err
			}
		}
		id := tagging.ComputeTagID(tag)
		if _, seen := displays[id]; !seen {
			displays[id] = tag
		}
		ids = append(ids, id)
	}
	return ids, displays, nil
}

func compositeInput(action tagging.Action, caller domain.Address, req CompositeTaggingRequest, create bool) (*mutationInput, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	targetID, _ := domain.ParseHash(req.TargetID)
	tagger, _ := domain.ParseAddress(req.Tagger)
	tagIDs, _ := domain.ParseHashes(req.TagIDs)
	payment, err := parseWei("value", req.Value)
	if err != nil {
		return nil, err
	}
	return &mutationInput{
		action: action,
		key: &tagging.Key{
			TargetID:   targetID,
			RecordType: req.RecordType,
			Relayer:    caller,
			Tagger:     tagger,
		},
		create:  create,
		caller:  caller,
		tagger:  tagger,
		tagIDs:  tagIDs,
		payment: payment,
	}, nil
}

func recordInput(action tagging.Action, caller domain.Address, recordID domain.Hash, req RecordTaggingRequest) (*mutationInput, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	tagger, _ := domain.ParseAddress(req.Tagger)
	tagIDs, _ := domain.ParseHashes(req.TagIDs)
	payment, err := parseWei("value", req.Value)
	if err != nil {
		return nil, err
	}
	return &mutationInput{
		action:   action,
		recordID: recordID,
		caller:   caller,
		tagger:   tagger,
		tagIDs:   tagIDs,
		payment:  payment,
	}, nil
}

// mutate is the single mutation path. Every check runs before the commit, so
// a rejected mutation leaves no trace.
func (s *TaggingService) mutate(ctx context.Context, in *mutationInput) (*MutationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordID := in.recordID
	if in.key != nil {
		recordID = in.key.ID()
	}
	existing, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get record: %w", err)
		}
		existing = nil
	}

	m := tagging.Mutation{
		Action:  in.action,
		Record:  existing,
		Create:  in.create && in.key != nil,
		Caller:  in.caller,
		Tagger:  in.tagger,
		TagIDs:  in.tagIDs,
		Payment: in.payment,
	}
	if in.key != nil {
		m.Key = *in.key
	}

	plan, err := s.engine.Plan(ctx, m)
	if err != nil {
		return nil, err
	}

	result := &MutationResult{
		Record:      plan.Record,
		Added:       nonNil(plan.Added),
		Removed:     nonNil(plan.Removed),
		Fee:         plan.Fee,
		NewTagCount: plan.NewTagCount,
		Created:     plan.Created,
	}
	if !plan.Created && len(plan.Added) == 0 && len(plan.Removed) == 0 {
		// Nothing changed; leave the stored record untouched.
		result.Record = existing
		return result, nil
	}

	commit := &store.TaggingCommit{Record: plan.Record, Created: plan.Created}
	if plan.Created {
		commit.Target, err = s.newTarget(ctx, plan.Record.TargetID, in)
		if err != nil {
			return nil, err
		}
	}

	addedTags, newTags, err := s.resolveAddedTags(ctx, plan, in)
	if err != nil {
		return nil, err
	}
	commit.NewTags = newTags
	commit.Credits = tagging.SplitFee(plan.Params, in.caller, addedTags)

	if err := s.store.CommitTagging(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit tagging: %w", err)
	}

	s.emitMutation(plan, newTags, commit.Credits)

	s.logger.Info("tagging record updated",
		"record_id", plan.Record.ID.String(),
		"action", in.action.String(),
		"created", plan.Created,
		"added", len(plan.Added),
		"removed", len(plan.Removed),
		"new_tags", len(newTags),
		"fee", plan.Fee.String(),
	)

	return result, nil
}

// newTarget returns the target to register with a new record, or nil when
// it is already known. Only raw input may register a target.
func (s *TaggingService) newTarget(ctx context.Context, id domain.Hash, in *mutationInput) (*domain.Target, error) {
	_, err := s.store.GetTarget(ctx, id)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get target: %w", err)
	}
	if in.targetURI == "" {
		return nil, domainerrors.NotFoundf("target %s not found", id)
	}
	return &domain.Target{
		ID:        id,
		URI:       in.targetURI,
		CreatedBy: in.caller,
		CreatedAt: s.now(),
	}, nil
}

// resolveAddedTags loads every added tag for fee routing. Tags that do not
// exist yet are minted to the platform when the request carried their
// display form, and rejected otherwise.
func (s *TaggingService) resolveAddedTags(ctx context.Context, plan *tagging.Plan, in *mutationInput) (added, minted []*domain.Tag, err error) {
	if len(plan.Added) == 0 {
		return nil, nil, nil
	}
	stored, err := s.store.GetTags(ctx, plan.Added)
	if err != nil {
		return nil, nil, fmt.Errorf("get tags: %w", err)
	}

	now := s.now()
	added = make([]*domain.Tag, 0, len(plan.Added))
	for _, id := range plan.Added {
		if t, ok := stored[id]; ok {
			added = append(added, t)
			continue
		}
		display, ok := in.displays[id]
		if !ok {
			return nil, nil, domainerrors.NotFoundf("tag %s not found", id)
		}
		t := &domain.Tag{
			ID:        id,
			Display:   display,
			Creator:   in.tagger,
			Relayer:   in.caller,
			Owner:     plan.Params.Platform,
			CreatedAt: now,
			UpdatedAt: now,
		}
		added = append(added, t)
		minted = append(minted, t)
	}
	return added, minted, nil
}

// emitMutation publishes the events of one committed mutation: new tags,
// record creation, removals before additions, then credits.
func (s *TaggingService) emitMutation(plan *tagging.Plan, minted []*domain.Tag, credits []domain.Credit) {
	events := make([]sse.Event, 0, len(minted)+3+len(credits))
	for _, t := range minted {
		events = append(events, sse.NewTagCreatedEvent(t))
	}
	if plan.Created {
		events = append(events, sse.NewRecordCreatedEvent(plan.Record))
	}
	if len(plan.Removed) > 0 {
		events = append(events, sse.NewTagsRemovedEvent(plan.Record, plan.Removed))
	}
	if len(plan.Added) > 0 {
		events = append(events, sse.NewTagsAddedEvent(plan.Record, plan.Added))
	}
	for _, c := range credits {
		events = append(events, sse.NewAccrualCreditedEvent(c))
	}
	s.events.Emit(events...)
}

// GetRecord retrieves a tagging record by id.
func (s *TaggingService) GetRecord(ctx context.Context, id domain.Hash) (*domain.TaggingRecord, error) {
	return s.store.GetRecord(ctx, id)
}

// ListRecords lists tagging records matching filter.
func (s *TaggingService) ListRecords(ctx context.Context, filter store.RecordFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.TaggingRecord], error) {
	params.Validate()
	return s.store.ListRecords(ctx, filter, params)
}

// RecordID derives the id of a composite key without touching storage.
func (s *TaggingService) RecordID(targetID domain.Hash, recordType string, relayer, tagger domain.Address) domain.Hash {
	return tagging.ComputeRecordID(targetID, recordType, relayer, tagger)
}

// Params returns the protocol parameters in force.
func (s *TaggingService) Params() tagging.Params {
	return s.engine.Params()
}

// ApplyParams swaps the engine's protocol parameters. Mutations already
// planned keep the parameters they started with.
func (s *TaggingService) ApplyParams(p tagging.Params) error {
	if err := s.engine.SetParams(p); err != nil {
		return err
	}
	s.events.Emit(sse.NewParamsUpdatedEvent(sse.ParamsEventData{
		TaggingFee:         p.TaggingFee.String(),
		PlatformPercentage: p.PlatformPercentage,
		RelayerPercentage:  p.RelayerPercentage,
	}))
	return nil
}

func nonNil(ids []domain.Hash) []domain.Hash {
	if ids == nil {
		return []domain.Hash{}
	}
	return ids
}
