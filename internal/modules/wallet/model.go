// README: Driver wallet aggregate with an append-only transaction ledger.
package wallet

import (
	"fmt"
	"time"

	"courier/internal/types"
)

type TransactionType string

const (
	TxOrderEarning  TransactionType = "order_earning"
	TxWithdrawal    TransactionType = "withdrawal"
	TxDeposit       TransactionType = "deposit"
	TxRefund        TransactionType = "refund"
	TxPenalty       TransactionType = "penalty"
	TxBonus         TransactionType = "bonus"
	TxCashCollected TransactionType = "cash_collected"
	TxCashReturned  TransactionType = "cash_returned"
)

// IsCredit reports whether the type increases the balance.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TxOrderEarning, TxDeposit, TxBonus, TxCashReturned, TxRefund:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. Every balance mutation writes
// exactly one; rows are never updated or deleted.
type Transaction struct {
	ID            types.ID
	WalletID      types.ID
	DriverID      types.ID
	Type          TransactionType
	Amount        types.Money
	BalanceBefore types.Money
	BalanceAfter  types.Money
	OrderID       *types.ID
	Reference     string
	Description   string
	CreatedAt     time.Time
}

type Wallet struct {
	ID       types.ID
	DriverID types.ID

	Balance        types.Money
	CashOnHand     types.Money
	TotalEarnings  types.Money
	TotalWithdrawn types.Money

	LastWithdrawalAt *time.Time
	Active           bool

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWallet opens an empty active wallet for the driver.
func NewWallet(id, driverID types.ID, currency string) *Wallet {
	now := time.Now().UTC()
	zero := types.Money{Amount: 0, Currency: currency}
	return &Wallet{
		ID:             id,
		DriverID:       driverID,
		Balance:        zero,
		CashOnHand:     zero,
		TotalEarnings:  zero,
		TotalWithdrawn: zero,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddOrderEarning credits the driver's share of a delivered order.
func (w *Wallet) AddOrderEarning(amount types.Money, orderID types.ID, description string) (*Transaction, error) {
	if err := w.checkAmount(amount); err != nil {
		return nil, err
	}
	if description == "" {
		description = fmt.Sprintf("Earnings from order %s", orderID)
	}
	tx := w.append(TxOrderEarning, amount, &orderID, "", description)
	w.Balance.Amount += amount.Amount
	w.TotalEarnings.Amount += amount.Amount
	w.touch()
	return tx, nil
}

// RecordCashCollection moves COD money the driver just collected out of the
// balance into cash on hand. The driver owes that cash back to the platform.
func (w *Wallet) RecordCashCollection(amount types.Money, orderID types.ID, reference string) (*Transaction, error) {
	if err := w.checkAmount(amount); err != nil {
		return nil, err
	}
	if w.Balance.Amount < amount.Amount {
		return nil, fmt.Errorf("%w: balance %s, required %s", ErrInsufficientBalance, w.Balance, amount)
	}
	tx := w.append(TxCashCollected, amount, &orderID, reference, fmt.Sprintf("COD collected from order %s", orderID))
	w.Balance.Amount -= amount.Amount
	w.CashOnHand.Amount += amount.Amount
	w.touch()
	return tx, nil
}

// ReturnCash settles collected COD back into the balance.
func (w *Wallet) ReturnCash(amount types.Money, reference, description string) (*Transaction, error) {
	if err := w.checkAmount(amount); err != nil {
		return nil, err
	}
	if w.CashOnHand.Amount < amount.Amount {
		return nil, fmt.Errorf("%w: cash on hand %s, required %s", ErrInsufficientCash, w.CashOnHand, amount)
	}
	if description == "" {
		description = "Cash returned to balance"
	}
	tx := w.append(TxCashReturned, amount, nil, reference, description)
	w.Balance.Amount += amount.Amount
	w.CashOnHand.Amount -= amount.Amount
	w.touch()
	return tx, nil
}

func (w *Wallet) Withdraw(amount types.Money, reference, description string) (*Transaction, error) {
	if err := w.checkAmount(amount); err != nil {
		return nil, err
	}
	if amount.Amount > w.Balance.Amount {
		return nil, fmt.Errorf("%w: balance %s, required %s", ErrInsufficientBalance, w.Balance, amount)
	}
	if description == "" {
		description = fmt.Sprintf("Withdrawal: %s", amount)
	}
	tx := w.append(TxWithdrawal, amount, nil, reference, description)
	now := time.Now().UTC()
	w.Balance.Amount -= amount.Amount
	w.TotalWithdrawn.Amount += amount.Amount
	w.LastWithdrawalAt = &now
	w.touch()
	return tx, nil
}

func (w *Wallet) Deposit(amount types.Money, reference, description string) (*Transaction, error) {
	if err := w.checkAmount(amount); err != nil {
		return nil, err
	}
	if description == "" {
		description = fmt.Sprintf("Deposit: %s", amount)
	}
	tx := w.append(TxDeposit, amount, nil, reference, description)
	w.Balance.Amount += amount.Amount
	w.touch()
	return tx, nil
}

func (w *Wallet) AddBonus(amount types.Money, reference, description string) (*Transaction, error) {
	if err := w.checkAmount(amount); err != nil {
		return nil, err
	}
	if description == "" {
		description = "Bonus added"
	}
	tx := w.append(TxBonus, amount, nil, reference, description)
	w.Balance.Amount += amount.Amount
	w.touch()
	return tx, nil
}

// ApplyPenalty debits the balance. Penalties are allowed to push the balance
// negative; the driver settles the debt through later earnings or deposits.
func (w *Wallet) ApplyPenalty(amount types.Money, reason, reference string) (*Transaction, error) {
	if err := w.checkAmount(amount); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: penalty reason cannot be empty", ErrValidation)
	}
	tx := w.append(TxPenalty, amount, nil, reference, reason)
	w.Balance.Amount -= amount.Amount
	w.touch()
	return tx, nil
}

func (w *Wallet) Refund(amount types.Money, orderID types.ID, reason, reference string) (*Transaction, error) {
	if err := w.checkAmount(amount); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = fmt.Sprintf("Refund for order %s", orderID)
	}
	tx := w.append(TxRefund, amount, &orderID, reference, reason)
	w.Balance.Amount += amount.Amount
	w.touch()
	return tx, nil
}

func (w *Wallet) Deactivate() {
	w.Active = false
	w.touch()
}

func (w *Wallet) Activate() {
	w.Active = true
	w.touch()
}

func (w *Wallet) checkAmount(amount types.Money) error {
	if !w.Active {
		return fmt.Errorf("%w: no ledger operations on an inactive wallet", ErrInactive)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	if amount.Currency != w.Balance.Currency {
		return fmt.Errorf("%w: currency mismatch: wallet holds %s, got %s", ErrValidation, w.Balance.Currency, amount.Currency)
	}
	return nil
}

// append records the entry with before/after balances. The caller mutates the
// balance right after, so "after" is derived from the type's polarity here.
func (w *Wallet) append(t TransactionType, amount types.Money, orderID *types.ID, reference, description string) *Transaction {
	after := w.Balance
	if t.IsCredit() {
		after.Amount += amount.Amount
	} else {
		after.Amount -= amount.Amount
	}
	return &Transaction{
		ID:            newID(),
		WalletID:      w.ID,
		DriverID:      w.DriverID,
		Type:          t,
		Amount:        amount,
		BalanceBefore: w.Balance,
		BalanceAfter:  after,
		OrderID:       orderID,
		Reference:     reference,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	}
}

func (w *Wallet) touch() {
	w.UpdatedAt = time.Now().UTC()
}
