package tagging

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/errors"
)

// Engine plans tagging mutations against the current protocol parameters.
// Parameters can be swapped at runtime; each plan sees one consistent set.
type Engine struct {
	params atomic.Pointer[Params]
	oracle AuthorizationOracle
	now    func() time.Time
}

// NewEngine creates an engine. p must be valid.
func NewEngine(p Params, oracle AuthorizationOracle) (*Engine, error) {
	e := &Engine{oracle: oracle, now: time.Now}
	if err := e.SetParams(p); err != nil {
		return nil, err
	}
	return e, nil
}

// Params returns a copy of the active parameters.
func (e *Engine) Params() Params {
	p := *e.params.Load()
	p.TaggingFee = new(big.Int).Set(p.TaggingFee)
	return p
}

// SetParams validates and installs new parameters.
func (e *Engine) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeValidation, "invalid protocol parameters")
	}
	p.TaggingFee = new(big.Int).Set(p.TaggingFee)
	e.params.Store(&p)
	return nil
}

// Key is the composite key of a tagging record.
type Key struct {
	TargetID   domain.Hash
	RecordType string
	Relayer    domain.Address
	Tagger     domain.Address
}

// ID returns the record id the key derives.
func (k Key) ID() domain.Hash {
	return ComputeRecordID(k.TargetID, k.RecordType, k.Relayer, k.Tagger)
}

// Mutation is a resolved tagging request. Record is the stored record, or nil
// when none exists. Key is required when Record is nil and Create is set.
type Mutation struct {
	Action  Action
	Record  *domain.TaggingRecord
	Key     Key
	Create  bool // a missing record may be created
	Caller  domain.Address
	Tagger  domain.Address
	TagIDs  []domain.Hash
	Payment *big.Int
}

// Plan is the outcome of a successful mutation, ready to be committed.
type Plan struct {
	Record      *domain.TaggingRecord
	Created     bool
	Added       []domain.Hash
	Removed     []domain.Hash
	Fee         *big.Int
	NewTagCount int
	Params      Params
}

// Plan validates, authorizes and prices m without touching m.Record. Checks
// run in order: tag list, record type, relayer status, record existence,
// record attribution, payment.
func (e *Engine) Plan(ctx context.Context, m Mutation) (*Plan, error) {
	p := e.Params()

	if len(m.TagIDs) == 0 {
		return nil, errors.Validation("tag list must not be empty")
	}
	if m.Record == nil && m.Create {
		if err := ValidateRecordType(m.Key.RecordType, p); err != nil {
			return nil, err
		}
	}

	if err := AuthorizeRelayer(ctx, e.oracle, m.Caller); err != nil {
		return nil, err
	}

	var (
		record  *domain.TaggingRecord
		created bool
	)
	switch {
	case m.Record != nil:
		if err := checkAttribution(m.Record, m.Caller, m.Tagger); err != nil {
			return nil, err
		}
		record = m.Record.Clone()
	case m.Create:
		if m.Key.Relayer != m.Caller || m.Key.Tagger != m.Tagger {
			return nil, errors.Forbidden("record key does not match caller and tagger")
		}
		now := e.now()
		record = &domain.TaggingRecord{
			ID:         m.Key.ID(),
			TargetID:   m.Key.TargetID,
			RecordType: m.Key.RecordType,
			Relayer:    m.Key.Relayer,
			Tagger:     m.Key.Tagger,
			TagIDs:     []domain.Hash{},
			CreatedAt:  now,
		}
		created = true
	default:
		return nil, errors.NotFound("tagging record not found")
	}

	fee, count, err := ComputeFee(record.TagIDs, m.TagIDs, m.Action, p.TaggingFee)
	if err != nil {
		return nil, err
	}
	if err := CheckPayment(fee, m.Payment); err != nil {
		return nil, err
	}

	plan := &Plan{Record: record, Created: created, Fee: fee, NewTagCount: count, Params: p}
	switch m.Action {
	case ActionAppend:
		record.TagIDs, plan.Added = Apply(record.TagIDs, m.TagIDs)
	case ActionReplace:
		record.TagIDs, plan.Removed, plan.Added = Replace(record.TagIDs, m.TagIDs)
	case ActionRemove:
		record.TagIDs, plan.Removed = Remove(record.TagIDs, m.TagIDs)
	}
	record.UpdatedAt = e.now()
	return plan, nil
}

// Quote prices a hypothetical mutation against existing (nil for a record
// that does not exist yet) without authorization or payment checks.
func (e *Engine) Quote(existing *domain.TaggingRecord, tagIDs []domain.Hash, action Action) (*big.Int, int, error) {
	var current []domain.Hash
	if existing != nil {
		current = existing.TagIDs
	}
	return ComputeFee(current, tagIDs, action, e.Params().TaggingFee)
}
