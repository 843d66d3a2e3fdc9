package moonpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrTransactionNotFound = errors.New("moonpay: transaction not found")

// Processor is the subset of the MoonPay API the gateway relies on.
type Processor interface {
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreatedTransaction, error)
	GetTransaction(ctx context.Context, externalID string) (*RemoteTransaction, error)
}

// ProcessorError is returned for any failed round trip to the processor.
// StatusCode is zero when no HTTP response was received.
type ProcessorError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProcessorError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("moonpay %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("moonpay %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// PaymentMethod is either MobileMoney or Card.
type PaymentMethod interface {
	paymentMethod()
}

type MobileMoney struct{}

type Card struct {
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
	HolderName  string
}

func (MobileMoney) paymentMethod() {}
func (Card) paymentMethod()        {}

type Customer struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	IDNumber    string
}

type CreateTransactionRequest struct {
	LocalID        int64
	CustomerID     int64
	WalletAddress  string
	CryptoCurrency string
	Amount         decimal.Decimal
	Currency       string
	Customer       Customer
	PaymentMethod  PaymentMethod
}

type CreatedTransaction struct {
	ID          string
	Status      string
	RedirectURL string
}

type RemoteTransaction struct {
	ID           string
	Status       string
	CryptoAmount decimal.NullDecimal
}

// wire shapes

type customerPayload struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	IDNumber    string `json:"idNumber,omitempty"`
}

type cardPayload struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CVC         string `json:"cvc"`
	HolderName  string `json:"holderName"`
}

type createPayload struct {
	BaseCurrencyAmount    json.Number     `json:"baseCurrencyAmount"`
	BaseCurrencyCode      string          `json:"baseCurrencyCode"`
	CurrencyCode          string          `json:"currencyCode"`
	WalletAddress         string          `json:"walletAddress"`
	ExternalTransactionID string          `json:"externalTransactionId"`
	ExternalCustomerID    string          `json:"externalCustomerId"`
	PaymentMethod         string          `json:"paymentMethod"`
	Customer              customerPayload `json:"customer"`
	Card                  *cardPayload    `json:"card,omitempty"`
}

type transactionPayload struct {
	ID           string              `json:"id"`
	Status       string              `json:"status"`
	RedirectURL  string              `json:"redirectUrl"`
	CryptoAmount decimal.NullDecimal `json:"cryptoAmount"`
}

func encodePaymentMethod(pm PaymentMethod) (string, *cardPayload, error) {
	switch m := pm.(type) {
	case MobileMoney:
		return "mobile_money", nil, nil
	case Card:
		return "credit_debit_card", &cardPayload{
			Number:      m.Number,
			ExpiryMonth: m.ExpiryMonth,
			ExpiryYear:  m.ExpiryYear,
			CVC:         m.CVV,
			HolderName:  m.HolderName,
		}, nil
	default:
		return "", nil, fmt.Errorf("moonpay: unsupported payment method %T", pm)
	}
}
