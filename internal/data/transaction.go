package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	PaymentMobileMoney = "mobile_money"
	PaymentCard        = "card"
)

type TxnModel struct {
	DB *sqlx.DB
}

type Transaction struct {
	ID                   int64               `db:"id" json:"id"`
	UserID               int64               `db:"user_id" json:"userId"`
	Amount               decimal.Decimal     `db:"amount" json:"amount"`
	Currency             string              `db:"currency" json:"currency"`
	CryptoAmount         decimal.NullDecimal `db:"crypto_amount" json:"cryptoAmount"`
	CryptoCurrency       string              `db:"crypto_currency" json:"cryptoCurrency"`
	Status               string              `db:"status" json:"status"`
	PaymentMethod        string              `db:"payment_method" json:"paymentMethod"`
	MoonpayTransactionID *string             `db:"moonpay_transaction_id" json:"moonpayTransactionId"`
	CreatedAt            time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time           `db:"updated_at" json:"updatedAt"`
}

// HasExternalID reports whether the processor has accepted the transaction.
func (t *Transaction) HasExternalID() bool {
	return t.MoonpayTransactionID != nil && *t.MoonpayTransactionID != ""
}

// TxnUpdate carries the only fields that may change after creation.
// Nil fields are left untouched.
type TxnUpdate struct {
	Status               *string
	CryptoAmount         *decimal.NullDecimal
	MoonpayTransactionID *string
}

type Filters struct {
	Page     int
	PageSize int
}

func (f Filters) limit() int {
	return f.PageSize
}

func (f Filters) offset() int {
	return (f.Page - 1) * f.PageSize
}

type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

func calculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     (totalRecords + pageSize - 1) / pageSize,
		TotalRecords: totalRecords,
	}
}

const txnColumns = `id, user_id, amount, currency, crypto_amount, crypto_currency, status,
	payment_method, moonpay_transaction_id, created_at, updated_at`

func (t TxnModel) Insert(ctx context.Context, txn *Transaction) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	txn.CreatedAt, txn.UpdatedAt = now, now
	if txn.Status == "" {
		txn.Status = StatusPending
	}

	query := t.DB.Rebind(`
	INSERT INTO transactions (
		user_id, amount, currency, crypto_amount, crypto_currency, status,
		payment_method, moonpay_transaction_id, created_at, updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id`)

	err := t.DB.GetContext(ctx, &txn.ID, query,
		txn.UserID,
		txn.Amount,
		txn.Currency,
		txn.CryptoAmount,
		txn.CryptoCurrency,
		txn.Status,
		txn.PaymentMethod,
		txn.MoonpayTransactionID,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert txn: %w", err)
	}
	return nil
}

func (t TxnModel) Get(ctx context.Context, id int64) (*Transaction, error) {
	return t.getBy(ctx, "id", id)
}

func (t TxnModel) GetByExternalID(ctx context.Context, externalID string) (*Transaction, error) {
	return t.getBy(ctx, "moonpay_transaction_id", externalID)
}

func (t TxnModel) getBy(ctx context.Context, column string, value any) (*Transaction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := t.DB.Rebind(fmt.Sprintf(`SELECT %s FROM transactions WHERE %s = ?`, txnColumns, column))

	var txn Transaction
	if err := t.DB.GetContext(ctx, &txn, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get txn by %s: %w", column, err)
	}
	return &txn, nil
}

// Update merges upd into the row and bumps updated_at. An external id that is
// already set can only be rewritten with the same value.
func (t TxnModel) Update(ctx context.Context, id int64, upd TxnUpdate) (*Transaction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if upd.CryptoAmount != nil {
		sets = append(sets, "crypto_amount = ?")
		args = append(args, *upd.CryptoAmount)
	}
	if upd.MoonpayTransactionID != nil {
		sets = append(sets, "moonpay_transaction_id = ?")
		args = append(args, *upd.MoonpayTransactionID)
	}

	where := "id = ?"
	args = append(args, id)
	if upd.MoonpayTransactionID != nil {
		where += " AND (moonpay_transaction_id IS NULL OR moonpay_transaction_id = ?)"
		args = append(args, *upd.MoonpayTransactionID)
	}

	query := t.DB.Rebind(fmt.Sprintf(`UPDATE transactions SET %s WHERE %s`, strings.Join(sets, ", "), where))

	res, err := t.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update txn %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update txn %d: %w", id, err)
	}
	if n == 0 {
		if _, err := t.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrEditConflict
	}

	return t.Get(ctx, id)
}

func (t TxnModel) ListByUser(ctx context.Context, userID int64, filters Filters) ([]*Transaction, Metadata, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var total int
	countQuery := t.DB.Rebind(`SELECT COUNT(*) FROM transactions WHERE user_id = ?`)
	if err := t.DB.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, Metadata{}, fmt.Errorf("count txns: %w", err)
	}

	query := t.DB.Rebind(fmt.Sprintf(`
	SELECT %s
	FROM transactions
	WHERE user_id = ?
	ORDER BY created_at DESC, id DESC
	LIMIT ? OFFSET ?`, txnColumns))

	txns := []*Transaction{}
	if err := t.DB.SelectContext(ctx, &txns, query, userID, filters.limit(), filters.offset()); err != nil {
		return nil, Metadata{}, fmt.Errorf("list txns: %w", err)
	}

	return txns, calculateMetadata(total, filters.Page, filters.PageSize), nil
}

// ListOpen returns processor-accepted transactions that have not reached a
// terminal status, least recently updated first.
func (t TxnModel) ListOpen(ctx context.Context, limit int) ([]*Transaction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := t.DB.Rebind(fmt.Sprintf(`
	SELECT %s
	FROM transactions
	WHERE moonpay_transaction_id IS NOT NULL
	  AND status NOT IN (?, ?)
	ORDER BY updated_at ASC, id ASC
	LIMIT ?`, txnColumns))

	txns := []*Transaction{}
	if err := t.DB.SelectContext(ctx, &txns, query, StatusCompleted, StatusFailed, limit); err != nil {
		return nil, fmt.Errorf("list open txns: %w", err)
	}
	return txns, nil
}
