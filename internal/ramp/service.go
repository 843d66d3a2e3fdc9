// Package ramp orchestrates purchase transactions between the local store and
// the payment processor.
package ramp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/priyankishorems/rampgate/internal/data"
	"github.com/priyankishorems/rampgate/internal/events"
	"github.com/priyankishorems/rampgate/internal/moonpay"
	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type UserStore interface {
	Get(ctx context.Context, id int64) (*data.User, error)
}

type TransactionStore interface {
	Insert(ctx context.Context, txn *data.Transaction) error
	Get(ctx context.Context, id int64) (*data.Transaction, error)
	GetByExternalID(ctx context.Context, externalID string) (*data.Transaction, error)
	Update(ctx context.Context, id int64, upd data.TxnUpdate) (*data.Transaction, error)
	ListByUser(ctx context.Context, userID int64, filters data.Filters) ([]*data.Transaction, data.Metadata, error)
	ListOpen(ctx context.Context, limit int) ([]*data.Transaction, error)
}

type Service struct {
	users     UserStore
	txns      TransactionStore
	processor moonpay.Processor
	publisher events.Publisher
	now       func() time.Time
}

func NewService(users UserStore, txns TransactionStore, processor moonpay.Processor, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		users:     users,
		txns:      txns,
		processor: processor,
		publisher: publisher,
		now:       time.Now,
	}
}

type CreateInput struct {
	UserID         int64
	Amount         decimal.Decimal
	Currency       string
	CryptoCurrency string
	WalletAddress  string
	PaymentMethod  moonpay.PaymentMethod
}

// Create records a pending transaction and submits it to the processor. When the
// processor call fails the pending record is kept without an external id.
func (s *Service) Create(ctx context.Context, in CreateInput) (*data.Transaction, string, error) {
	user, err := s.users.Get(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("load user %d: %w", in.UserID, err)
	}

	txn := &data.Transaction{
		UserID:         user.ID,
		Amount:         in.Amount,
		Currency:       in.Currency,
		CryptoCurrency: in.CryptoCurrency,
		Status:         data.StatusPending,
		PaymentMethod:  paymentMethodName(in.PaymentMethod),
	}
	if err := s.txns.Insert(ctx, txn); err != nil {
		return nil, "", fmt.Errorf("create local transaction: %w", err)
	}

	remote, err := s.processor.CreateTransaction(ctx, moonpay.CreateTransactionRequest{
		LocalID:        txn.ID,
		CustomerID:     user.ID,
		WalletAddress:  in.WalletAddress,
		CryptoCurrency: in.CryptoCurrency,
		Amount:         in.Amount,
		Currency:       in.Currency,
		Customer: moonpay.Customer{
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			Email:       user.Email,
			PhoneNumber: user.PhoneNumber,
			IDNumber:    user.IDNumber,
		},
		PaymentMethod: in.PaymentMethod,
	})
	if err != nil {
		log.Errorf("transaction %d left pending, processor create failed: %v", txn.ID, err)
		return nil, "", err
	}

	updated, err := s.txns.Update(ctx, txn.ID, data.TxnUpdate{
		Status:               &remote.Status,
		MoonpayTransactionID: &remote.ID,
	})
	if err != nil {
		return nil, "", fmt.Errorf("merge processor response into transaction %d: %w", txn.ID, err)
	}

	s.publishIfChanged(ctx, "create", txn.Status, updated)
	return updated, remote.RedirectURL, nil
}

// Get returns the transaction, reconciled with the processor when it has an
// external id. A failed processor lookup fails the read.
func (s *Service) Get(ctx context.Context, id int64) (*data.Transaction, error) {
	txn, err := s.txns.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if !txn.HasExternalID() {
		return txn, nil
	}

	return s.reconcile(ctx, "fetch", txn)
}

func (s *Service) reconcile(ctx context.Context, source string, txn *data.Transaction) (*data.Transaction, error) {
	remote, err := s.processor.GetTransaction(ctx, *txn.MoonpayTransactionID)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, source, txn, remote.Status, remote.CryptoAmount)
}

func (s *Service) apply(ctx context.Context, source string, txn *data.Transaction, status string, cryptoAmount decimal.NullDecimal) (*data.Transaction, error) {
	updated, err := s.txns.Update(ctx, txn.ID, data.TxnUpdate{
		Status:       &status,
		CryptoAmount: &cryptoAmount,
	})
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("update transaction %d: %w", txn.ID, err)
	}

	s.publishIfChanged(ctx, source, txn.Status, updated)
	return updated, nil
}

type WebhookEvent struct {
	MoonpayTransactionID string
	Status               string
	CryptoAmount         decimal.NullDecimal
}

// ApplyWebhook merges a processor callback. Unknown external ids are ignored
// and reported with applied == false.
func (s *Service) ApplyWebhook(ctx context.Context, ev WebhookEvent) (bool, error) {
	if ev.MoonpayTransactionID == "" {
		return false, nil
	}

	txn, err := s.txns.GetByExternalID(ctx, ev.MoonpayTransactionID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			log.Warnf("webhook for unknown moonpay transaction %s dropped", ev.MoonpayTransactionID)
			return false, nil
		}
		return false, err
	}

	if _, err := s.apply(ctx, "webhook", txn, ev.Status, ev.CryptoAmount); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64, filters data.Filters) ([]*data.Transaction, data.Metadata, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, data.Metadata{}, ErrUserNotFound
		}
		return nil, data.Metadata{}, err
	}
	return s.txns.ListByUser(ctx, userID, filters)
}

type ReconcileReport struct {
	Checked int
	Changed int
	Failed  int
}

// ReconcileOpen refreshes up to limit open transactions from the processor.
// Individual failures are counted and logged; only a failed listing aborts.
func (s *Service) ReconcileOpen(ctx context.Context, limit int) (ReconcileReport, error) {
	var report ReconcileReport

	txns, err := s.txns.ListOpen(ctx, limit)
	if err != nil {
		return report, err
	}

	for _, txn := range txns {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Checked++
		updated, err := s.reconcile(ctx, "reconcile", txn)
		if err != nil {
			report.Failed++
			log.Errorf("reconcile transaction %d (%s): %v", txn.ID, *txn.MoonpayTransactionID, err)
			continue
		}
		if updated.Status != txn.Status {
			report.Changed++
		}
	}

	return report, nil
}

func (s *Service) publishIfChanged(ctx context.Context, source, previous string, txn *data.Transaction) {
	if previous == txn.Status {
		return
	}

	ev := events.Event{
		Type:           events.StatusChanged,
		TransactionID:  txn.ID,
		UserID:         txn.UserID,
		PreviousStatus: previous,
		Status:         txn.Status,
		CryptoAmount:   txn.CryptoAmount,
		Source:         source,
		OccurredAt:     s.now().UTC(),
	}
	if txn.MoonpayTransactionID != nil {
		ev.MoonpayTransactionID = *txn.MoonpayTransactionID
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Errorf("publish %s for transaction %d: %v", ev.Type, txn.ID, err)
	}
}

func paymentMethodName(pm moonpay.PaymentMethod) string {
	if _, ok := pm.(moonpay.Card); ok {
		return data.PaymentCard
	}
	return data.PaymentMobileMoney
}
