package data

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/gommon/log"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DB struct {
	Driver   string
	Database string
	Host     string
	Port     string
	Username string
	Password string
}

type dbInfo struct {
	Seq  int    `db:"seq"`
	Name string `db:"name"`
	File string `db:"file"`
}

func (m DB) dsn() (string, error) {
	switch m.Driver {
	case DriverSQLite, "":
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", m.Database), nil
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			m.Host, m.Port, m.Username, m.Password, m.Database), nil
	default:
		return "", fmt.Errorf("unsupported db driver %q", m.Driver)
	}
}

func (m DB) Open() (*sqlx.DB, error) {
	dsn, err := m.dsn()
	if err != nil {
		return nil, err
	}

	driver := m.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// a single writer keeps sqlite from returning SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)

		var info dbInfo
		if err := db.Get(&info, "PRAGMA database_list;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to query database_list: %w", err)
		}
		log.Infof("Connected to SQLite DB file: %s", info.File)
		return db, nil
	}

	log.Infof("Connected to Postgres DB %s on %s:%s", m.Database, m.Host, m.Port)
	return db, nil
}

// sqlite keeps amounts as TEXT so decimals round-trip without float conversion.
var schema = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name   TEXT NOT NULL,
			last_name    TEXT NOT NULL,
			email        TEXT NOT NULL UNIQUE,
			phone_number TEXT NOT NULL DEFAULT '',
			id_number    TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id                INTEGER NOT NULL REFERENCES users(id),
			amount                 TEXT NOT NULL,
			currency               TEXT NOT NULL,
			crypto_amount          TEXT,
			crypto_currency        TEXT NOT NULL,
			status                 TEXT NOT NULL DEFAULT 'pending',
			payment_method         TEXT NOT NULL,
			moonpay_transaction_id TEXT,
			created_at             DATETIME NOT NULL,
			updated_at             DATETIME NOT NULL
		)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id           BIGSERIAL PRIMARY KEY,
			first_name   TEXT NOT NULL,
			last_name    TEXT NOT NULL,
			email        TEXT NOT NULL UNIQUE,
			phone_number TEXT NOT NULL DEFAULT '',
			id_number    TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id                     BIGSERIAL PRIMARY KEY,
			user_id                BIGINT NOT NULL REFERENCES users(id),
			amount                 NUMERIC(20,8) NOT NULL,
			currency               TEXT NOT NULL,
			crypto_amount          NUMERIC(30,18),
			crypto_currency        TEXT NOT NULL,
			status                 TEXT NOT NULL DEFAULT 'pending',
			payment_method         TEXT NOT NULL,
			moonpay_transaction_id TEXT,
			created_at             TIMESTAMPTZ NOT NULL,
			updated_at             TIMESTAMPTZ NOT NULL
		)`,
	},
}

var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS transactions_moonpay_id_idx
		ON transactions (moonpay_transaction_id) WHERE moonpay_transaction_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS transactions_user_id_idx ON transactions (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS transactions_status_idx ON transactions (status, updated_at)`,
}

// Migrate creates the users and transactions tables if they do not exist yet.
func Migrate(db *sqlx.DB) error {
	ctx, cancel := Handlectx()
	defer cancel()

	stmts, ok := schema[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	for _, stmt := range append(stmts, indexes...) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
