// Package gateway is the HTTP client for the remote cambio platform API.
// All persistence, authorization enforcement, and transactional integrity
// live behind it; this side only packages requests and decodes responses.
package gateway

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andinafx/cambio/pkg/domain"
)

// Balance is one currency position in an opening or closing declaration.
type Balance struct {
	CurrencyCode string          `json:"currency_code"`
	Amount       decimal.Decimal `json:"amount"`
}

// OpenWindowRequest asks the platform to open a teller window and commit its
// opening balances.
type OpenWindowRequest struct {
	WindowID        int64     `json:"window_id"`
	ExchangeHouseID int64     `json:"exchange_house_id"`
	OperatorID      int64     `json:"operator_id"`
	OpeningBalances []Balance `json:"opening_balances"`
}

// WindowConfirmation is the platform's acknowledgement of an opened window.
type WindowConfirmation struct {
	WindowID          int64     `json:"window_id"`
	WindowName        string    `json:"window_name"`
	OperatorName      string    `json:"operator_name"`
	ExchangeHouseName string    `json:"exchange_house_name"`
	OpenedAt          time.Time `json:"opened_at"`
}

// CloseWindowRequest closes a window, reconciling its closing balances.
type CloseWindowRequest struct {
	WindowID        int64     `json:"window_id"`
	ClosingBalances []Balance `json:"closing_balances"`
}

// SubmitConversionRequest records one buy/sell transaction against an open
// window. RequestID deduplicates accidental resubmissions server-side.
type SubmitConversionRequest struct {
	RequestID    string               `json:"request_id"`
	WindowID     int64                `json:"window_id"`
	RateID       int64                `json:"rate_id"`
	Kind         domain.OperationKind `json:"kind"`
	SourceAmount decimal.Decimal      `json:"source_amount"`
	AppliedRate  decimal.Decimal      `json:"applied_rate"`
	Note         string               `json:"note,omitempty"`
}

// Transaction is the created conversion record.
type Transaction struct {
	ID                int64                `json:"id"`
	WindowID          int64                `json:"window_id"`
	Kind              domain.OperationKind `json:"kind"`
	SourceAmount      decimal.Decimal      `json:"source_amount"`
	DestinationAmount decimal.Decimal      `json:"destination_amount"`
	AppliedRate       decimal.Decimal      `json:"applied_rate"`
	Profit            decimal.Decimal      `json:"profit"`
	CreatedAt         time.Time            `json:"created_at"`
}

// APIError is a non-2xx platform response.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API returned %d: %s", e.Status, e.Message)
}
