package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type Cake map[string]interface{}

func (u *utilsImpl) logError(c echo.Context, err error) {
	if err == nil {
		return
	}
	log.Errorf("%s %s [%s]: %v", c.Request().Method, c.Request().URL.Path, c.Response().Header().Get(echo.HeaderXRequestID), err)
}

func (u *utilsImpl) resposeError(c echo.Context, status int, message interface{}) {
	err := c.JSON(status, Cake{"error": message})
	if err != nil {
		u.logError(c, err)
		c.Response().WriteHeader(http.StatusInternalServerError)
	}
}

func (u *utilsImpl) InternalServerError(c echo.Context, err error) {
	u.logError(c, err)
	message := "server encountered an error and could not process your request"
	u.resposeError(c, http.StatusInternalServerError, message)
}

func (u *utilsImpl) BadRequest(c echo.Context, err error) {
	u.logError(c, err)
	message := "you have given a bad or invalid request, please try again"
	if err != nil {
		message = err.Error()
	}
	u.resposeError(c, http.StatusBadRequest, message)
}

func (u *utilsImpl) NotFoundResponse(c echo.Context, message string) {
	if message == "" {
		message = "the request is not found"
	}
	u.resposeError(c, http.StatusNotFound, message)
}

func (u *utilsImpl) EditConflictResponse(c echo.Context) {
	message := "unable to update the record due to edit conflict, please try again"
	u.resposeError(c, http.StatusConflict, message)
}

func (u *utilsImpl) UserUnAuthorizedResponse(c echo.Context, err error) {
	message := "You are not authorized to access this"
	u.logError(c, err)
	u.resposeError(c, http.StatusUnauthorized, message)
}

func (u *utilsImpl) RateLimitExceededResponse(c echo.Context) {
	message := "Rate limit exceeded"
	u.resposeError(c, http.StatusTooManyRequests, message)
}

// CustomErrorResponse writes body as-is instead of wrapping it in {"error": ...}.
func (u *utilsImpl) CustomErrorResponse(c echo.Context, body Cake, status int, err error) {
	u.logError(c, err)
	if jerr := c.JSON(status, body); jerr != nil {
		u.logError(c, jerr)
		c.Response().WriteHeader(http.StatusInternalServerError)
	}
}

func (u *utilsImpl) ValidationError(c echo.Context, err error) {
	var validErrs validator.ValidationErrors
	if !errors.As(err, &validErrs) {
		u.BadRequest(c, err)
		return
	}

	validationError := make(map[string]interface{})
	for _, e := range validErrs {
		var errMsg string

		switch e.Tag() {
		case "required", "required_if":
			errMsg = "is required"
		case "email":
			errMsg = fmt.Sprint(e.Field(), " must be a type of email")
		case "gt", "gte":
			errMsg = "value must be greater than 0"
		case "lte":
			errMsg = "value must be lesser than the given value"
		case "oneof":
			errMsg = fmt.Sprintf("must be one of: %s", e.Param())
		case "iso4217":
			errMsg = "must be an ISO 4217 currency code"
		case "credit_card":
			errMsg = "must be a valid card number"

		default:
			errMsg = fmt.Sprintf("Validation error on %s: %s", e.Field(), e.Tag())
		}

		validationError[e.Field()] = errMsg
	}
	u.resposeError(c, http.StatusUnprocessableEntity, validationError)
}
