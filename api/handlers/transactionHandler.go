package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/priyankishorems/rampgate/internal/data"
	"github.com/priyankishorems/rampgate/internal/moonpay"
	"github.com/priyankishorems/rampgate/internal/ramp"
	"github.com/shopspring/decimal"
)

type cardDetails struct {
	Number      string `json:"number" validate:"required,credit_card"`
	ExpiryMonth string `json:"expiryMonth" validate:"required,numeric,len=2"`
	ExpiryYear  string `json:"expiryYear" validate:"required,numeric,len=4"`
	CVV         string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	HolderName  string `json:"holderName" validate:"required"`
}

type userDetails struct {
	WalletAddress string `json:"walletAddress" validate:"required,max=128"`
}

type createTransactionRequest struct {
	UserID         int64           `json:"userId" validate:"required,gt=0"`
	Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Currency       string          `json:"currency" validate:"required,iso4217"`
	CryptoCurrency string          `json:"cryptoCurrency" validate:"required,alphanum,max=16"`
	PaymentMethod  string          `json:"paymentMethod" validate:"required,oneof=mobile_money card"`
	CardDetails    *cardDetails    `json:"cardDetails" validate:"required_if=PaymentMethod card"`
	UserDetails    userDetails     `json:"userDetails"`
}

func (r *createTransactionRequest) normalize() {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.CryptoCurrency = strings.ToLower(strings.TrimSpace(r.CryptoCurrency))
	r.UserDetails.WalletAddress = strings.TrimSpace(r.UserDetails.WalletAddress)
	if r.PaymentMethod != data.PaymentCard {
		r.CardDetails = nil
	}
}

func (r *createTransactionRequest) paymentMethod() moonpay.PaymentMethod {
	if r.PaymentMethod == data.PaymentCard && r.CardDetails != nil {
		return moonpay.Card{
			Number:      r.CardDetails.Number,
			ExpiryMonth: r.CardDetails.ExpiryMonth,
			ExpiryYear:  r.CardDetails.ExpiryYear,
			CVV:         r.CardDetails.CVV,
			HolderName:  r.CardDetails.HolderName,
		}
	}
	return moonpay.MobileMoney{}
}

func (h *Handlers) CreateTransactionHandler(c echo.Context) error {
	var input createTransactionRequest
	if err := h.Utils.ReadJSON(c, &input); err != nil {
		h.Utils.BadRequest(c, err)
		return nil
	}

	input.normalize()
	if err := h.Validate.Struct(input); err != nil {
		h.Utils.ValidationError(c, err)
		return nil
	}

	txn, redirectURL, err := h.Ramp.Create(c.Request().Context(), ramp.CreateInput{
		UserID:         input.UserID,
		Amount:         input.Amount,
		Currency:       input.Currency,
		CryptoCurrency: input.CryptoCurrency,
		WalletAddress:  input.UserDetails.WalletAddress,
		PaymentMethod:  input.paymentMethod(),
	})
	if err != nil {
		return h.rampError(c, err)
	}

	return c.JSON(http.StatusOK, Cake{
		"transaction": txn,
		"moonpayUrl":  redirectURL,
	})
}

func (h *Handlers) GetTransactionHandler(c echo.Context) error {
	id, err := h.Utils.ReadIntParam(c, "id")
	if err != nil {
		h.Utils.NotFoundResponse(c, "transaction not found")
		return nil
	}

	txn, err := h.Ramp.Get(c.Request().Context(), id)
	if err != nil {
		return h.rampError(c, err)
	}

	return c.JSON(http.StatusOK, txn)
}

type listQuery struct {
	Page     int `validate:"gte=1,lte=10000000"`
	PageSize int `validate:"gte=1,lte=100"`
}

func (h *Handlers) ListUserTransactionsHandler(c echo.Context) error {
	userID, err := h.Utils.ReadIntParam(c, "userId")
	if err != nil {
		h.Utils.NotFoundResponse(c, "user not found")
		return nil
	}

	qs := c.QueryParams()
	q := listQuery{
		Page:     h.Utils.ReadIntQuery(qs, "page", 1),
		PageSize: h.Utils.ReadIntQuery(qs, "page_size", 20),
	}
	if err := h.Validate.Struct(q); err != nil {
		h.Utils.ValidationError(c, err)
		return nil
	}

	txns, metadata, err := h.Ramp.ListForUser(c.Request().Context(), userID, data.Filters{Page: q.Page, PageSize: q.PageSize})
	if err != nil {
		return h.rampError(c, err)
	}

	return c.JSON(http.StatusOK, Cake{
		"transactions": txns,
		"metadata":     metadata,
	})
}
