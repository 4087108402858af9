// Package domain holds the core types of the cambio back office: exchange
// rates, conversion selections and results, and the teller-window session.
//
// Invariants:
//   - ExchangeRate pairs always satisfy SellRate > BuyRate; the remote
//     platform enforces this and the client only reads rates.
//   - A ConversionResult is valid only when a rate is selected and the
//     source amount parses to a positive finite number.
package domain

import "github.com/shopspring/decimal"

// Currency describes a currency as the rate feed presents it.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// ExchangeRate is a published buy/sell rate pair for a currency pair,
// scoped to one exchange house. Read-only to this codebase.
type ExchangeRate struct {
	ID                  int64           `json:"id"`
	BuyRate             decimal.Decimal `json:"buy_rate"`
	SellRate            decimal.Decimal `json:"sell_rate"`
	OriginCurrency      Currency        `json:"origin_currency"`
	DestinationCurrency Currency        `json:"destination_currency"`
}

// OperationKind distinguishes the two sides of a window operation.
type OperationKind string

const (
	// OperationBuy: the house buys foreign currency from the client and
	// pays out local currency.
	OperationBuy OperationKind = "buy"
	// OperationSell: the house sells foreign currency to the client and
	// receives local currency.
	OperationSell OperationKind = "sell"
)

// Valid reports whether k is one of the two known operation kinds.
func (k OperationKind) Valid() bool {
	return k == OperationBuy || k == OperationSell
}

// OperationSelection is the working state of the conversion form: the rate
// row the teller picked, the operation side, the raw amount input, and an
// optional override rate.
type OperationSelection struct {
	Rate           *ExchangeRate `json:"rate,omitempty"`
	Kind           OperationKind `json:"kind"`
	SourceAmount   string        `json:"source_amount"`
	OverrideRate   string        `json:"override_rate,omitempty"`
	OverrideActive bool          `json:"override_active,omitempty"`
}

// ConversionResult is derived from an OperationSelection on every input
// change. It is never persisted. All decimal fields are rounded to four
// fractional digits, half up.
type ConversionResult struct {
	DestinationAmount decimal.Decimal `json:"destination_amount"`
	AppliedRate       decimal.Decimal `json:"applied_rate"`
	Profit            decimal.Decimal `json:"profit"`
	Valid             bool            `json:"valid"`
	Reason            string          `json:"reason,omitempty"`
}
