package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
    account_id BIGINT NOT NULL,
    asset      TEXT NOT NULL,
    amount     NUMERIC(78, 18) NOT NULL DEFAULT 0 CHECK (amount >= 0),
    PRIMARY KEY (account_id, asset)
);

CREATE TABLE IF NOT EXISTS ledger_movements (
    id         UUID PRIMARY KEY,
    account_id BIGINT NOT NULL,
    asset      TEXT NOT NULL,
    kind       TEXT NOT NULL,
    amount     NUMERIC(78, 18) NOT NULL,
    balance    NUMERIC(78, 18) NOT NULL,
    actor      TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS ledger_movements_entry_idx
    ON ledger_movements (account_id, asset, created_at);
`

// PostgresLedger persists ledger entries and their movement journal in PostgreSQL.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// Open returns a migrated Postgres ledger when db is set and an in-memory
// ledger otherwise.
func Open(ctx context.Context, db *pgxpool.Pool) (Ledger, error) {
	if db == nil {
		return NewInMemory(), nil
	}
	pg := NewPostgresLedger(db)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Migrate creates the ledger tables when they do not exist yet.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

// Balance returns the recorded amount for the entry, zero when none exists.
func (l *PostgresLedger) Balance(ctx context.Context, account dsa.AccountID, asset Asset) (decimal.Decimal, error) {
	var raw string
	err := l.db.QueryRow(ctx, `SELECT amount::text FROM ledger_entries WHERE account_id = $1 AND asset = $2`,
		int64(account), asset.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Credit increments the entry, creating it on first deposit.
func (l *PostgresLedger) Credit(ctx context.Context, p Posting) (Movement, error) {
	if err := validate(p); err != nil {
		return Movement{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Movement{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var raw string
	if err := tx.QueryRow(ctx, `INSERT INTO ledger_entries (account_id, asset, amount) VALUES ($1, $2, $3::numeric)
        ON CONFLICT (account_id, asset) DO UPDATE SET amount = ledger_entries.amount + EXCLUDED.amount
        RETURNING amount::text`, int64(p.Account), p.Asset.String(), p.Amount.String()).Scan(&raw); err != nil {
		return Movement{}, err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return Movement{}, err
	}

	m, err := insertMovement(ctx, tx, p, KindDeposit, balance)
	if err != nil {
		return Movement{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Movement{}, err
	}
	return m, nil
}

// Debit locks the entry row, checks sufficiency and decrements it in one transaction.
func (l *PostgresLedger) Debit(ctx context.Context, p Posting) (Movement, error) {
	if err := validate(p); err != nil {
		return Movement{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Movement{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	current, err := lockEntry(ctx, tx, p.Account, p.Asset)
	if err != nil {
		return Movement{}, err
	}
	if current.LessThan(p.Amount) {
		return Movement{}, ErrInsufficientFunds
	}
	balance := current.Sub(p.Amount)
	if err := setEntry(ctx, tx, p.Account, p.Asset, balance); err != nil {
		return Movement{}, err
	}

	m, err := insertMovement(ctx, tx, p, KindWithdraw, balance)
	if err != nil {
		return Movement{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Movement{}, err
	}
	return m, nil
}

// Revert restores the entry a movement changed and deletes the journal row.
func (l *PostgresLedger) Revert(ctx context.Context, m Movement) error {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return fmt.Errorf("movement id: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var (
		accountID int64
		assetRaw  string
		kind      string
		amountRaw string
	)
	if err := tx.QueryRow(ctx, `SELECT account_id, asset, kind, amount::text FROM ledger_movements WHERE id = $1 FOR UPDATE`, id).
		Scan(&accountID, &assetRaw, &kind, &amountRaw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMovementNotFound
		}
		return err
	}
	asset, err := ParseAsset(assetRaw)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return err
	}

	account := dsa.AccountID(accountID)
	current, err := lockEntry(ctx, tx, account, asset)
	if err != nil {
		return err
	}
	if kind == KindWithdraw {
		current = current.Add(amount)
	} else {
		if current.LessThan(amount) {
			return ErrInsufficientFunds
		}
		current = current.Sub(amount)
	}
	if err := setEntry(ctx, tx, account, asset, current); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM ledger_movements WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// History lists the movements of an entry in the order they were recorded.
func (l *PostgresLedger) History(ctx context.Context, account dsa.AccountID, asset Asset) ([]Movement, error) {
	rows, err := l.db.Query(ctx, `SELECT id, kind, amount::text, balance::text, actor, created_at
        FROM ledger_movements WHERE account_id = $1 AND asset = $2 ORDER BY created_at, id`,
		int64(account), asset.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var (
			id         uuid.UUID
			amountRaw  string
			balanceRaw string
			actor      string
			m          Movement
		)
		if err := rows.Scan(&id, &m.Kind, &amountRaw, &balanceRaw, &actor, &m.CreatedAt); err != nil {
			return nil, err
		}
		if m.Amount, err = decimal.NewFromString(amountRaw); err != nil {
			return nil, err
		}
		if m.Balance, err = decimal.NewFromString(balanceRaw); err != nil {
			return nil, err
		}
		m.ID = id.String()
		m.Account = account
		m.Asset = asset
		m.Actor = common.HexToAddress(actor)
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// LastAccount scans both tables so a reverted-to-zero entry still counts.
func (l *PostgresLedger) LastAccount(ctx context.Context) (dsa.AccountID, error) {
	var last int64
	err := l.db.QueryRow(ctx, `SELECT COALESCE(MAX(account_id), 0) FROM (
        SELECT account_id FROM ledger_entries
        UNION ALL
        SELECT account_id FROM ledger_movements
    ) AS ids`).Scan(&last)
	if err != nil {
		return 0, err
	}
	return dsa.AccountID(last), nil
}

func lockEntry(ctx context.Context, tx pgx.Tx, account dsa.AccountID, asset Asset) (decimal.Decimal, error) {
	const query = `SELECT amount::text FROM ledger_entries WHERE account_id = $1 AND asset = $2 FOR UPDATE`
	var raw string
	if err := tx.QueryRow(ctx, query, int64(account), asset.String()).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func setEntry(ctx context.Context, tx pgx.Tx, account dsa.AccountID, asset Asset, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx, `INSERT INTO ledger_entries (account_id, asset, amount) VALUES ($1, $2, $3::numeric)
        ON CONFLICT (account_id, asset) DO UPDATE SET amount = EXCLUDED.amount`,
		int64(account), asset.String(), amount.String())
	return err
}

func insertMovement(ctx context.Context, tx pgx.Tx, p Posting, kind string, balance decimal.Decimal) (Movement, error) {
	m := Movement{
		ID:        uuid.NewString(),
		Account:   p.Account,
		Asset:     p.Asset,
		Kind:      kind,
		Amount:    p.Amount,
		Balance:   balance,
		Actor:     p.Actor,
		CreatedAt: time.Now().UTC(),
	}
	_, err := tx.Exec(ctx, `INSERT INTO ledger_movements (id, account_id, asset, kind, amount, balance, actor, created_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8)`,
		m.ID, int64(m.Account), m.Asset.String(), m.Kind, m.Amount.String(), m.Balance.String(), m.Actor.Hex(), m.CreatedAt)
	if err != nil {
		return Movement{}, err
	}
	return m, nil
}

var _ Ledger = (*PostgresLedger)(nil)
