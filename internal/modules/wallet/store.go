// README: Wallet store backed by PostgreSQL.
package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"courier/internal/infra"
	"courier/internal/types"
)

type Store struct {
	db infra.DB
}

func NewStore(db infra.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

func (s *Store) Create(ctx context.Context, w *Wallet) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO driver_wallets (
			id, driver_id, currency, balance, cash_on_hand,
			total_earnings, total_withdrawn, last_withdrawal_at,
			active, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12
		)`,
		string(w.ID),
		string(w.DriverID),
		w.Balance.Currency,
		w.Balance.Amount,
		w.CashOnHand.Amount,
		w.TotalEarnings.Amount,
		w.TotalWithdrawn.Amount,
		w.LastWithdrawalAt,
		w.Active,
		w.Version,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetByDriver(ctx context.Context, driverID types.ID) (*Wallet, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, driver_id, currency, balance, cash_on_hand,
		       total_earnings, total_withdrawn, last_withdrawal_at,
		       active, version, created_at, updated_at
		FROM driver_wallets
		WHERE driver_id = $1`, string(driverID),
	)

	var w Wallet
	var currency string
	var lastWithdrawalAt sql.NullTime
	err := row.Scan(
		&w.ID, &w.DriverID, &currency, &w.Balance.Amount, &w.CashOnHand.Amount,
		&w.TotalEarnings.Amount, &w.TotalWithdrawn.Amount, &lastWithdrawalAt,
		&w.Active, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.Balance.Currency = currency
	w.CashOnHand.Currency = currency
	w.TotalEarnings.Currency = currency
	w.TotalWithdrawn.Currency = currency
	w.LastWithdrawalAt = toTimePtr(lastWithdrawalAt)
	return &w, nil
}

// Update writes balances guarded by the loaded version. Reports false when a
// concurrent writer already bumped it.
func (s *Store) Update(ctx context.Context, w *Wallet) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE driver_wallets
		SET balance = $1,
		    cash_on_hand = $2,
		    total_earnings = $3,
		    total_withdrawn = $4,
		    last_withdrawal_at = $5,
		    active = $6,
		    version = version + 1,
		    updated_at = $7
		WHERE id = $8 AND version = $9`,
		w.Balance.Amount,
		w.CashOnHand.Amount,
		w.TotalEarnings.Amount,
		w.TotalWithdrawn.Amount,
		w.LastWithdrawalAt,
		w.Active,
		w.UpdatedAt,
		string(w.ID),
		w.Version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendTransaction(ctx context.Context, t *Transaction) error {
	var orderID *string
	if t.OrderID != nil {
		v := string(*t.OrderID)
		orderID = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO wallet_transactions (
			id, wallet_id, driver_id, type, currency, amount,
			balance_before, balance_after, order_id, reference, description, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12
		)`,
		string(t.ID),
		string(t.WalletID),
		string(t.DriverID),
		string(t.Type),
		t.Amount.Currency,
		t.Amount.Amount,
		t.BalanceBefore.Amount,
		t.BalanceAfter.Amount,
		orderID,
		t.Reference,
		t.Description,
		t.CreatedAt,
	)
	return err
}

// ListTransactions returns the wallet's ledger, newest first. An empty
// txType means all types.
func (s *Store) ListTransactions(ctx context.Context, walletID types.ID, txType TransactionType, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, wallet_id, driver_id, type, currency, amount,
		       balance_before, balance_after, order_id, reference, description, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1 AND ($2 = '' OR type = $2)
		ORDER BY created_at DESC
		LIMIT $3`, string(walletID), string(txType), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ListLedger returns the complete ledger in insertion order, oldest first.
func (s *Store) ListLedger(ctx context.Context, walletID types.ID) ([]*Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, wallet_id, driver_id, type, currency, amount,
		       balance_before, balance_after, order_id, reference, description, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at ASC`, string(walletID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]*Transaction, error) {
	var out []*Transaction
	for rows.Next() {
		var t Transaction
		var currency string
		var orderID sql.NullString
		if err := rows.Scan(
			&t.ID, &t.WalletID, &t.DriverID, &t.Type, &currency, &t.Amount.Amount,
			&t.BalanceBefore.Amount, &t.BalanceAfter.Amount, &orderID, &t.Reference, &t.Description, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		t.Amount.Currency = currency
		t.BalanceBefore.Currency = currency
		t.BalanceAfter.Currency = currency
		if orderID.Valid {
			id := types.ID(orderID.String)
			t.OrderID = &id
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
