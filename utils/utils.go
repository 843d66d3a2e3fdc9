package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type Utilities interface {
	ReadIntParam(c echo.Context, str string) (int64, error)
	ReadJSON(c echo.Context, dst interface{}) error
	ReadIntQuery(qs url.Values, key string, defaultValue int) int
	AddHeaderIfMissing(w http.ResponseWriter, key, value string)

	InternalServerError(c echo.Context, err error)
	BadRequest(c echo.Context, err error)
	NotFoundResponse(c echo.Context, message string)
	EditConflictResponse(c echo.Context)
	UserUnAuthorizedResponse(c echo.Context, err error)
	RateLimitExceededResponse(c echo.Context)
	CustomErrorResponse(c echo.Context, body Cake, status int, err error)
	ValidationError(c echo.Context, err error)
}

type utilsImpl struct {
}

func NewUtils() Utilities {
	return &utilsImpl{}
}

// NewValidator returns a validator that reports json field names and knows
// how to compare decimal amounts.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

func (u *utilsImpl) ReadIntParam(c echo.Context, str string) (int64, error) {
	param := c.Param(str)
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid parameter")
	}

	return id, nil
}

func (u *utilsImpl) ReadJSON(c echo.Context, dst interface{}) error {
	maxBytes := 1_048_576
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, int64(maxBytes))

	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError
		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}
	err = dec.Decode(&struct{}{})
	if err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func (u *utilsImpl) ReadIntQuery(qs url.Values, key string, defaultValue int) int {

	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}

	res, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return res
}

func (u *utilsImpl) AddHeaderIfMissing(w http.ResponseWriter, key, value string) {
	for _, h := range w.Header()[key] {
		if h == value {
			return
		}
	}
	w.Header().Add(key, value)
}
