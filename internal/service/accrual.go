package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/sse"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

// AccrualService exposes the fee ledger: balances, drawdowns and receipts.
type AccrualService struct {
	store  store.Store
	events EventEmitter
	logger *slog.Logger
	now    func() time.Time
}

// NewAccrualService creates a new accrual service.
func NewAccrualService(store store.Store, events EventEmitter, logger *slog.Logger) *AccrualService {
	if events == nil {
		events = NoopEmitter{}
	}
	return &AccrualService{store: store, events: events, logger: loggerOrDefault(logger), now: time.Now}
}

// GetAccrual returns the balance of addr. Unknown addresses have a zero
// balance.
func (s *AccrualService) GetAccrual(ctx context.Context, addr domain.Address) (*domain.Accrual, error) {
	return s.store.GetAccrual(ctx, addr)
}

// DrawDown pays out the full outstanding balance of beneficiary. Anyone may
// trigger it for anyone. With nothing outstanding the returned payout has a
// zero amount and nothing is recorded.
func (s *AccrualService) DrawDown(ctx context.Context, beneficiary domain.Address) (*domain.Payout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	receiptID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate receipt id: %w", err)
	}

	payout := &domain.Payout{
		ID:          receiptID.String(),
		Beneficiary: beneficiary,
		CreatedAt:   s.now(),
	}
	if err := s.store.DrawDown(ctx, payout); err != nil {
		return nil, fmt.Errorf("draw down: %w", err)
	}

	if payout.Amount.Sign() == 0 {
		s.logger.Debug("drawdown with nothing outstanding", "beneficiary", beneficiary.String())
		return payout, nil
	}

	s.events.Emit(sse.NewDrawnDownEvent(payout))
	s.logger.Info("accrual drawn down",
		"beneficiary", beneficiary.String(),
		"amount", payout.Amount.String(),
		"payout_id", payout.ID,
	)
	return payout, nil
}

// ListPayouts returns the drawdown receipts of addr, oldest first.
func (s *AccrualService) ListPayouts(ctx context.Context, addr domain.Address, params store.PaginationParams) (*store.PaginatedResult[*domain.Payout], error) {
	params.Validate()
	return s.store.ListPayouts(ctx, addr, params)
}
