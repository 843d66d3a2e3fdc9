package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/priyankishorems/rampgate/internal/ramp"
	"github.com/shopspring/decimal"
)

type moonpayWebhook struct {
	Type string `json:"type"`
	Data struct {
		ID           string              `json:"id"`
		Status       string              `json:"status"`
		CryptoAmount decimal.NullDecimal `json:"cryptoAmount"`
	} `json:"data"`
}

// MoonpayWebhookHandler answers 200 for unknown transactions too, so the
// processor does not keep retrying them.
func (h *Handlers) MoonpayWebhookHandler(c echo.Context) error {
	var payload moonpayWebhook
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		log.Errorf("moonpay webhook: decode body: %v", err)
		return c.String(http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
	}

	applied, err := h.Ramp.ApplyWebhook(c.Request().Context(), ramp.WebhookEvent{
		MoonpayTransactionID: payload.Data.ID,
		Status:               payload.Data.Status,
		CryptoAmount:         payload.Data.CryptoAmount,
	})
	if err != nil {
		log.Errorf("moonpay webhook %s (%s): %v", payload.Data.ID, payload.Type, err)
		return c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}

	if applied {
		log.Infof("moonpay webhook %s applied, status %s", payload.Data.ID, payload.Data.Status)
	}
	return c.String(http.StatusOK, "OK")
}
