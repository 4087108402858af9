// Package teller exposes the teller-window session and conversion
// operations over HTTP.
package teller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/andinafx/cambio/pkg/config"
	"github.com/andinafx/cambio/pkg/domain"
	"github.com/andinafx/cambio/pkg/session"
	tellersvc "github.com/andinafx/cambio/pkg/service/teller"
	"github.com/andinafx/cambio/webapi/common"
	"github.com/andinafx/cambio/webapi/middleware"
)

// Routes registers the teller-window routes. Everything is operator-only.
func Routes(app *fiber.App, svc *tellersvc.Service, sessions *session.Manager, cfg *config.App) {
	api := app.Group("/api", middleware.JwtProtected(cfg.Auth))

	windows := api.Group("/windows")
	windows.Post("/open", OpenWindow(sessions))
	windows.Post("/pause", PauseWindow(sessions))
	windows.Post("/resume", ResumeWindow(sessions))
	windows.Post("/close", CloseWindow(sessions))
	windows.Get("/current", CurrentWindow(sessions))

	api.Get("/rates", ActiveRates(svc))
	api.Post("/rates/refresh", RefreshRates(svc))
	api.Get("/currencies", Currencies(svc))

	api.Post("/quotes", QuoteConversion(svc))
	api.Post("/transactions", SubmitTransaction(svc))
}

// OpenWindow commits opening balances and opens the teller window.
func OpenWindow(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[openWindowRequest](c)
		if err != nil {
			return nil
		}
		view, err := sessions.Open(c.Context(), session.OpenRequest{
			WindowID:        req.WindowID,
			ExchangeHouseID: req.ExchangeHouseID,
			OperatorID:      req.OperatorID,
			OpeningBalances: toBalances(req.OpeningBalances),
		})
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to open window", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Window opened", sessionView(view, 0))
	}
}

// PauseWindow locks the window client-side without touching the platform.
func PauseWindow(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := sessions.Pause(c.Context())
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to pause window", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Window paused", sessionView(view, 0))
	}
}

// ResumeWindow lifts the pause lock and resets the pause counter.
func ResumeWindow(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := sessions.Resume(c.Context())
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to resume window", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Window resumed", sessionView(view, 0))
	}
}

// CloseWindow reconciles closing balances and ends the session.
func CloseWindow(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[closeWindowRequest](c)
		if err != nil {
			return nil
		}
		if err := sessions.Close(c.Context(), session.CloseRequest{
			ClosingBalances: toBalances(req.ClosingBalances),
		}); err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to close window", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Window closed", nil)
	}
}

// CurrentWindow reports the session as restored/held by this process.
func CurrentWindow(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view := sessions.Current()
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Current session",
			sessionView(view, sessions.PausedFor()))
	}
}

// ActiveRates lists the published rates for an exchange house, served from
// the rate cache.
func ActiveRates(svc *tellersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		houseID := c.QueryInt("house_id", 0)
		if houseID <= 0 {
			return common.ProblemJSON(c, fiber.StatusBadRequest, "Missing house_id", "house_id must be a positive integer")
		}
		rates, err := svc.ActiveRates(c.Context(), int64(houseID))
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to fetch rates", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Active rates", rates)
	}
}

// Currencies lists the supported currencies, served from the long-lived
// reference-data cache.
func Currencies(svc *tellersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		currencies, err := svc.Currencies(c.Context())
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to fetch currencies", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Supported currencies", currencies)
	}
}

// RefreshRates invalidates the cached rates for a house and refetches.
func RefreshRates(svc *tellersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[refreshRatesRequest](c)
		if err != nil {
			return nil
		}
		rates, err := svc.RefreshRates(c.Context(), req.ExchangeHouseID)
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to refresh rates", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rates refreshed", rates)
	}
}

// QuoteConversion recomputes the conversion result for the given selection.
// Invalid input is a 200 with Valid=false so the UI can surface the reason
// inline; only gating and lookup failures are problem responses.
func QuoteConversion(svc *tellersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[selectionRequest](c)
		if err != nil {
			return nil
		}
		sel, err := buildSelection(c, svc, *req)
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to resolve rate", err)
		}
		result, err := svc.Quote(sel)
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Conversion not allowed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Conversion calculated", result)
	}
}

// SubmitTransaction validates and records a conversion transaction.
func SubmitTransaction(svc *tellersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[submitTransactionRequest](c)
		if err != nil {
			return nil
		}
		sel, err := buildSelection(c, svc, req.selectionRequest)
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to resolve rate", err)
		}
		tx, err := svc.Submit(c.Context(), tellersvc.SubmitRequest{
			Selection: sel,
			Note:      req.Note,
		})
		if err != nil {
			return common.ProblemJSON(c, common.ErrorToStatusCode(err), "Failed to submit transaction", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Transaction recorded", tx)
	}
}

// buildSelection resolves the rate ID against the cached house rates. An
// unknown rate leaves Rate nil so the calculator reports no_rate_selected.
func buildSelection(c *fiber.Ctx, svc *tellersvc.Service, req selectionRequest) (domain.OperationSelection, error) {
	rates, err := svc.ActiveRates(c.Context(), req.ExchangeHouseID)
	if err != nil {
		return domain.OperationSelection{}, err
	}
	sel := domain.OperationSelection{
		Kind:           domain.OperationKind(req.Kind),
		SourceAmount:   req.SourceAmount,
		OverrideRate:   req.OverrideRate,
		OverrideActive: req.OverrideActive,
	}
	for i := range rates {
		if rates[i].ID == req.RateID {
			sel.Rate = &rates[i]
			break
		}
	}
	return sel, nil
}
