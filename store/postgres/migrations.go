package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Teller store.
var Migrations = migrate.NewGroup("teller")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_teller_accounts",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS teller_accounts (
    id               TEXT PRIMARY KEY,
    number           TEXT NOT NULL,
    customer_id      TEXT NOT NULL DEFAULT '',
    balance_cents    BIGINT NOT NULL DEFAULT 0,
    balance_currency TEXT NOT NULL DEFAULT '',
    principal        BOOLEAN NOT NULL DEFAULT FALSE,
    active           BOOLEAN NOT NULL DEFAULT TRUE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT teller_accounts_balance_nonneg CHECK (balance_cents >= 0)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_teller_accounts_number ON teller_accounts (number);
CREATE INDEX IF NOT EXISTS idx_teller_accounts_customer ON teller_accounts (customer_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_teller_accounts_principal ON teller_accounts (customer_id) WHERE principal;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS teller_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_teller_loans",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS teller_loans (
    id                 TEXT PRIMARY KEY,
    customer_id        TEXT NOT NULL DEFAULT '',
    principal_cents    BIGINT NOT NULL DEFAULT 0,
    principal_currency TEXT NOT NULL DEFAULT '',
    active             BOOLEAN NOT NULL DEFAULT TRUE,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_teller_loans_customer ON teller_loans (customer_id, active);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS teller_loans`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_teller_installments",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS teller_installments (
    id              TEXT PRIMARY KEY,
    loan_id         TEXT NOT NULL REFERENCES teller_loans (id),
    sequence        INT NOT NULL DEFAULT 0,
    due_date        TIMESTAMPTZ NOT NULL,
    amount_cents    BIGINT NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    paid            BOOLEAN NOT NULL DEFAULT FALSE,
    overdue         BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_teller_installments_loan ON teller_installments (loan_id, sequence);
CREATE INDEX IF NOT EXISTS idx_teller_installments_due ON teller_installments (due_date) WHERE NOT paid;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS teller_installments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_teller_cards",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS teller_cards (
    id             TEXT PRIMARY KEY,
    number         TEXT NOT NULL,
    customer_id    TEXT NOT NULL DEFAULT '',
    limit_cents    BIGINT NOT NULL DEFAULT 0,
    limit_currency TEXT NOT NULL DEFAULT '',
    debt_cents     BIGINT NOT NULL DEFAULT 0,
    debt_currency  TEXT NOT NULL DEFAULT '',
    cvc_hash       TEXT NOT NULL DEFAULT '',
    active         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT teller_cards_debt_range CHECK (debt_cents >= 0 AND debt_cents <= limit_cents)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_teller_cards_number ON teller_cards (number);
CREATE INDEX IF NOT EXISTS idx_teller_cards_customer ON teller_cards (customer_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS teller_cards`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_teller_consumptions",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS teller_consumptions (
    id              TEXT PRIMARY KEY,
    card_id         TEXT NOT NULL REFERENCES teller_cards (id),
    amount_cents    BIGINT NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    merchant_ref    TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_teller_consumptions_card ON teller_consumptions (card_id, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS teller_consumptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_teller_beneficiaries",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS teller_beneficiaries (
    id             TEXT PRIMARY KEY,
    customer_id    TEXT NOT NULL DEFAULT '',
    account_number TEXT NOT NULL DEFAULT '',
    first_name     TEXT NOT NULL DEFAULT '',
    last_name      TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_teller_beneficiaries_key ON teller_beneficiaries (customer_id, account_number);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS teller_beneficiaries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_teller_commerces",
			Version: "20240101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS teller_commerces (
    id                        TEXT PRIMARY KEY,
    name                      TEXT NOT NULL DEFAULT '',
    settlement_account_number TEXT NOT NULL DEFAULT '',
    active                    BOOLEAN NOT NULL DEFAULT TRUE,
    created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS teller_commerces`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_teller_transactions",
			Version: "20240101000008",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS teller_transactions (
    id              TEXT PRIMARY KEY,
    type            TEXT NOT NULL DEFAULT '',
    amount_cents    BIGINT NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    source_ref      TEXT NOT NULL DEFAULT '',
    dest_ref        TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'approved',
    correlation_id  TEXT NOT NULL DEFAULT '',
    commerce_id     TEXT NOT NULL DEFAULT '',
    detail          TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_teller_txns_source ON teller_transactions (source_ref, created_at);
CREATE INDEX IF NOT EXISTS idx_teller_txns_dest ON teller_transactions (dest_ref, created_at);
CREATE INDEX IF NOT EXISTS idx_teller_txns_commerce ON teller_transactions (commerce_id, created_at) WHERE commerce_id != '';
CREATE INDEX IF NOT EXISTS idx_teller_txns_correlation ON teller_transactions (correlation_id) WHERE correlation_id != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS teller_transactions`)
				return err
			},
		},
	)
}
