package data

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrEditConflict   = errors.New("edit conflict")
)

func Handlectx() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	return ctx, cancel
}

func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, time.Second*10)
}

type Models struct {
	Users        UsersModel
	Transactions TxnModel
}

func NewModel(db *sqlx.DB) Models {
	return Models{
		Users:        UsersModel{DB: db},
		Transactions: TxnModel{DB: db},
	}
}
