package teller

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andinafx/cambio/pkg/domain"
	"github.com/andinafx/cambio/pkg/gateway"
)

type balanceDTO struct {
	CurrencyCode string          `json:"currency_code" validate:"required,len=3"`
	Amount       decimal.Decimal `json:"amount"`
}

func toBalances(dtos []balanceDTO) []gateway.Balance {
	out := make([]gateway.Balance, 0, len(dtos))
	for _, b := range dtos {
		out = append(out, gateway.Balance{
			CurrencyCode: b.CurrencyCode,
			Amount:       b.Amount,
		})
	}
	return out
}

type openWindowRequest struct {
	WindowID        int64        `json:"window_id" validate:"required,gt=0"`
	ExchangeHouseID int64        `json:"exchange_house_id" validate:"required,gt=0"`
	OperatorID      int64        `json:"operator_id" validate:"required,gt=0"`
	OpeningBalances []balanceDTO `json:"opening_balances" validate:"dive"`
}

type closeWindowRequest struct {
	ClosingBalances []balanceDTO `json:"closing_balances" validate:"dive"`
}

// selectionRequest identifies a rate by ID within a house rather than
// trusting client-supplied rate values; the server-side rate list is the
// authority.
type selectionRequest struct {
	ExchangeHouseID int64  `json:"exchange_house_id" validate:"required,gt=0"`
	RateID          int64  `json:"rate_id" validate:"required,gt=0"`
	Kind            string `json:"kind" validate:"required,oneof=buy sell"`
	SourceAmount    string `json:"source_amount" validate:"required"`
	OverrideRate    string `json:"override_rate"`
	OverrideActive  bool   `json:"override_active"`
}

type submitTransactionRequest struct {
	selectionRequest
	Note string `json:"note" validate:"max=500"`
}

type refreshRatesRequest struct {
	ExchangeHouseID int64 `json:"exchange_house_id" validate:"required,gt=0"`
}

type sessionResponse struct {
	domain.WindowSession
	PausedForSeconds int64 `json:"paused_for_seconds,omitempty"`
}

func sessionView(view domain.WindowSession, pausedFor time.Duration) sessionResponse {
	return sessionResponse{
		WindowSession:    view,
		PausedForSeconds: int64(pausedFor / time.Second),
	}
}
