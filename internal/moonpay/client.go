package moonpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.moonpay.com"

// maxBodyBytes caps how much of an upstream response is read into memory.
const maxBodyBytes = 1 << 20

type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Processor = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("moonpay: api key is required")
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("moonpay: invalid base url %q: %w", base, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreatedTransaction, error) {
	method, card, err := encodePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	payload := createPayload{
		BaseCurrencyAmount:    json.Number(req.Amount.String()),
		BaseCurrencyCode:      strings.ToLower(req.Currency),
		CurrencyCode:          strings.ToLower(req.CryptoCurrency),
		WalletAddress:         req.WalletAddress,
		ExternalTransactionID: strconv.FormatInt(req.LocalID, 10),
		ExternalCustomerID:    strconv.FormatInt(req.CustomerID, 10),
		PaymentMethod:         method,
		Customer: customerPayload{
			FirstName:   req.Customer.FirstName,
			LastName:    req.Customer.LastName,
			Email:       req.Customer.Email,
			PhoneNumber: req.Customer.PhoneNumber,
			IDNumber:    req.Customer.IDNumber,
		},
		Card: card,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("moonpay: encode create request: %w", err)
	}

	var resp transactionPayload
	if err := c.do(ctx, "create transaction", http.MethodPost, "/v1/transactions", body, &resp); err != nil {
		return nil, err
	}

	return &CreatedTransaction{
		ID:          resp.ID,
		Status:      resp.Status,
		RedirectURL: resp.RedirectURL,
	}, nil
}

func (c *Client) GetTransaction(ctx context.Context, externalID string) (*RemoteTransaction, error) {
	var resp transactionPayload
	path := "/v1/transactions/" + url.PathEscape(externalID)
	if err := c.do(ctx, "get transaction", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &RemoteTransaction{
		ID:           resp.ID,
		Status:       resp.Status,
		CryptoAmount: resp.CryptoAmount,
	}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, dst any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &ProcessorError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProcessorError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &ProcessorError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return ErrTransactionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProcessorError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Err:        fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return &ProcessorError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}
