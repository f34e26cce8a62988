package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

func (s *Server) registerAccrualRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getAccrual",
		Method:      http.MethodGet,
		Path:        "/api/v1/accruals/{address}",
		Summary:     "Get accrual",
		Description: "Returns accrued, paid and outstanding amounts for an address",
		Tags:        []string{"Accruals"},
	}, s.handleGetAccrual)

	huma.Register(s.api, huma.Operation{
		OperationID: "drawDown",
		Method:      http.MethodPost,
		Path:        "/api/v1/accruals/{address}/drawdown",
		Summary:     "Draw down accrual",
		Description: "Pays out everything outstanding to the address. Anyone may trigger it for anyone; the funds only go to the beneficiary.",
		Tags:        []string{"Accruals"},
	}, s.handleDrawDown)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPayouts",
		Method:      http.MethodGet,
		Path:        "/api/v1/accruals/{address}/payouts",
		Summary:     "List payouts",
		Description: "Lists drawdown receipts of an address, oldest first",
		Tags:        []string{"Accruals"},
	}, s.handleListPayouts)
}

// === DTOs ===

// AccrualInput contains the beneficiary address.
type AccrualInput struct {
	Address string `path:"address" doc:"Beneficiary address"`
}

// AccrualResponse contains accrual data in API responses. Amounts are wei.
type AccrualResponse struct {
	Address     string    `json:"address" doc:"Beneficiary address"`
	Accrued     string    `json:"accrued" doc:"Total ever credited"`
	Paid        string    `json:"paid" doc:"Total ever drawn down"`
	Outstanding string    `json:"outstanding" doc:"Accrued minus paid"`
	UpdatedAt   time.Time `json:"updated_at,omitzero" doc:"Last credit or drawdown"`
}

// AccrualOutput wraps the accrual response for huma.
type AccrualOutput struct {
	Body AccrualResponse
}

// PayoutResponse is a drawdown receipt.
type PayoutResponse struct {
	ID          string    `json:"id" doc:"Receipt ID"`
	Beneficiary string    `json:"beneficiary" doc:"Beneficiary address"`
	Amount      string    `json:"amount" doc:"Amount paid in wei; zero when nothing was outstanding"`
	CreatedAt   time.Time `json:"created_at" doc:"Drawdown time"`
}

func newPayoutResponse(p *domain.Payout) PayoutResponse {
	return PayoutResponse{
		ID:          p.ID,
		Beneficiary: p.Beneficiary.String(),
		Amount:      p.Amount.String(),
		CreatedAt:   p.CreatedAt,
	}
}

// PayoutOutput wraps a payout for huma.
type PayoutOutput struct {
	Body PayoutResponse
}

// ListPayoutsInput contains parameters for listing payouts.
type ListPayoutsInput struct {
	PageQuery
	Address string `path:"address" doc:"Beneficiary address"`
}

// ListPayoutsOutput wraps a page of payouts for huma.
type ListPayoutsOutput struct {
	Body Page[PayoutResponse]
}

// === Handlers ===

func (s *Server) handleGetAccrual(ctx context.Context, input *AccrualInput) (*AccrualOutput, error) {
	addr, err := parseAddressParam("address", input.Address)
	if err != nil {
		return nil, err
	}

	a, err := s.services.Accrual.GetAccrual(ctx, addr)
	if err != nil {
		return nil, err
	}

	return &AccrualOutput{Body: AccrualResponse{
		Address:     a.Address.String(),
		Accrued:     a.Accrued.String(),
		Paid:        a.Paid.String(),
		Outstanding: a.Outstanding().String(),
		UpdatedAt:   a.UpdatedAt,
	}}, nil
}

func (s *Server) handleDrawDown(ctx context.Context, input *AccrualInput) (*PayoutOutput, error) {
	addr, err := parseAddressParam("address", input.Address)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Accrual.DrawDown(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &PayoutOutput{Body: newPayoutResponse(p)}, nil
}

func (s *Server) handleListPayouts(ctx context.Context, input *ListPayoutsInput) (*ListPayoutsOutput, error) {
	addr, err := parseAddressParam("address", input.Address)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Accrual.ListPayouts(ctx, addr, input.params())
	if err != nil {
		return nil, err
	}
	return &ListPayoutsOutput{Body: newPage(res, newPayoutResponse)}, nil
}
