// Package exchange implements the buy/sell conversion arithmetic of the
// cambio back office as a pure, deterministic calculation.
package exchange

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andinafx/cambio/pkg/domain"
)

// Stable reason identifiers for invalid results. The UI maps these to
// localized messages, so they must not change casually.
const (
	ReasonNoRateSelected  = "no_rate_selected"
	ReasonInvalidAmount   = "invalid_amount"
	ReasonInvalidOverride = "invalid_override_rate"
	ReasonInvalidRatePair = "invalid_rate_pair"
	ReasonUnknownKind     = "unknown_operation_kind"
)

// resultScale is the number of fractional digits every output carries.
const resultScale = 4

// Calculate computes the destination amount, applied rate, and spread profit
// for a conversion selection. It never panics and never returns an error:
// bad input yields a result with Valid=false and a Reason identifier.
//
// Profit is always netted against the unmodified opposite-side published
// rate, even when an override rate is active. The override changes the
// revenue recognized against the untouched published rate, not against
// itself. That is house policy, not an oversight; do not "fix" it.
func Calculate(sel domain.OperationSelection) domain.ConversionResult {
	if sel.Rate == nil {
		return invalid(ReasonNoRateSelected)
	}
	if !sel.Kind.Valid() {
		return invalid(ReasonUnknownKind)
	}
	if !sel.Rate.BuyRate.IsPositive() || !sel.Rate.SellRate.IsPositive() {
		return invalid(ReasonInvalidRatePair)
	}

	amount, ok := parsePositive(sel.SourceAmount)
	if !ok {
		return invalid(ReasonInvalidAmount)
	}

	var rate decimal.Decimal
	if sel.OverrideActive {
		rate, ok = parsePositive(sel.OverrideRate)
		if !ok {
			return invalid(ReasonInvalidOverride)
		}
	} else if sel.Kind == domain.OperationBuy {
		rate = sel.Rate.BuyRate
	} else {
		rate = sel.Rate.SellRate
	}

	var destination, profit decimal.Decimal
	switch sel.Kind {
	case domain.OperationBuy:
		destination = amount.Mul(rate)
		profit = amount.Mul(sel.Rate.SellRate.Sub(rate))
	case domain.OperationSell:
		destination = amount.Div(rate)
		profit = destination.Mul(rate.Sub(sel.Rate.BuyRate))
	}

	return domain.ConversionResult{
		DestinationAmount: destination.Round(resultScale),
		AppliedRate:       rate.Round(resultScale),
		Profit:            profit.Round(resultScale),
		Valid:             true,
	}
}

// parsePositive parses a user-entered decimal string and accepts only
// strictly positive values.
func parsePositive(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

func invalid(reason string) domain.ConversionResult {
	return domain.ConversionResult{Valid: false, Reason: reason}
}
