package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type UsersModel struct {
	DB *sqlx.DB
}

type User struct {
	ID          int64     `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"firstName"`
	LastName    string    `db:"last_name" json:"lastName"`
	Email       string    `db:"email" json:"email"`
	PhoneNumber string    `db:"phone_number" json:"phoneNumber"`
	IDNumber    string    `db:"id_number" json:"idNumber"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

func (u UsersModel) Insert(ctx context.Context, user *User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	user.CreatedAt = time.Now().UTC()

	query := u.DB.Rebind(`
	INSERT INTO users (first_name, last_name, email, phone_number, id_number, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	RETURNING id`)

	err := u.DB.GetContext(ctx, &user.ID, query,
		user.FirstName, user.LastName, user.Email, user.PhoneNumber, user.IDNumber, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (u UsersModel) Get(ctx context.Context, id int64) (*User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := u.DB.Rebind(`
	SELECT id, first_name, last_name, email, phone_number, id_number, created_at
	FROM users
	WHERE id = ?`)

	var user User
	if err := u.DB.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}
