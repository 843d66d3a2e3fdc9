package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/priyankishorems/rampgate/internal/data"
	"github.com/priyankishorems/rampgate/internal/moonpay"
	"github.com/priyankishorems/rampgate/internal/ramp"
	"github.com/priyankishorems/rampgate/utils"
)

type Cake map[string]interface{}
type Handlers struct {
	Config   utils.Config
	Validate *validator.Validate
	Utils    utils.Utilities
	Data     data.Models
	Ramp     *ramp.Service
}

func (h *Handlers) HomeFunc(c echo.Context) error {
	msg := Cake{
		"message": "Welcome to Rampgate API",
		"status":  "available",
		"system_info": Cake{
			"environment": h.Config.Env,
			"port":        h.Config.Port,
			"events":      h.Config.Events.Driver,
		},
	}
	return c.JSON(http.StatusOK, msg)
}

// rampError maps orchestrator errors onto HTTP responses.
func (h *Handlers) rampError(c echo.Context, err error) error {
	var perr *moonpay.ProcessorError

	switch {
	case errors.Is(err, ramp.ErrUserNotFound):
		h.Utils.NotFoundResponse(c, "user not found")
	case errors.Is(err, ramp.ErrTransactionNotFound), errors.Is(err, moonpay.ErrTransactionNotFound):
		h.Utils.NotFoundResponse(c, "transaction not found")
	case errors.Is(err, data.ErrEditConflict):
		h.Utils.EditConflictResponse(c)
	case errors.As(err, &perr):
		details := perr.Body
		if details == "" {
			details = perr.Error()
		}
		h.Utils.CustomErrorResponse(c, utils.Cake{
			"error":   "payment processor request failed",
			"details": details,
		}, http.StatusInternalServerError, err)
	default:
		h.Utils.CustomErrorResponse(c, utils.Cake{
			"error":   "server encountered an error and could not process your request",
			"details": err.Error(),
		}, http.StatusInternalServerError, err)
	}
	return nil
}
