// README: Wallet ledger tests (polarity, guards, before/after balances).
package wallet

import (
	"errors"
	"testing"

	"courier/internal/types"
)

func usd(amount int64) types.Money {
	return types.Money{Amount: amount, Currency: defaultCurrency}
}

func TestTransactionPolarity(t *testing.T) {
	credits := []TransactionType{TxOrderEarning, TxDeposit, TxBonus, TxCashReturned, TxRefund}
	debits := []TransactionType{TxWithdrawal, TxPenalty, TxCashCollected}
	for _, c := range credits {
		if !c.IsCredit() {
			t.Errorf("%s should be a credit", c)
		}
	}
	for _, d := range debits {
		if d.IsCredit() {
			t.Errorf("%s should be a debit", d)
		}
	}
}

func TestOrderEarning(t *testing.T) {
	w := NewWallet("w1", "d1", defaultCurrency)

	tx, err := w.AddOrderEarning(usd(1550), "o1", "")
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	if w.Balance.Amount != 1550 || w.TotalEarnings.Amount != 1550 {
		t.Fatalf("balance=%d total=%d", w.Balance.Amount, w.TotalEarnings.Amount)
	}
	if tx.BalanceBefore.Amount != 0 || tx.BalanceAfter.Amount != 1550 {
		t.Fatalf("before=%d after=%d", tx.BalanceBefore.Amount, tx.BalanceAfter.Amount)
	}
	if tx.OrderID == nil || *tx.OrderID != "o1" {
		t.Fatal("expected order reference on earning")
	}

	if _, err := w.AddOrderEarning(usd(0), "o2", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero earning: expected ErrValidation, got %v", err)
	}
	if _, err := w.AddOrderEarning(usd(-100), "o2", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative earning: expected ErrValidation, got %v", err)
	}
}

func TestWithdrawGuard(t *testing.T) {
	w := NewWallet("w1", "d1", defaultCurrency)
	if _, err := w.AddOrderEarning(usd(1000), "o1", ""); err != nil {
		t.Fatalf("earn: %v", err)
	}

	if _, err := w.Withdraw(usd(1001), "", ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraw: expected ErrInsufficientBalance, got %v", err)
	}

	tx, err := w.Withdraw(usd(1000), "BANK-1", "")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if w.Balance.Amount != 0 || w.TotalWithdrawn.Amount != 1000 {
		t.Fatalf("balance=%d withdrawn=%d", w.Balance.Amount, w.TotalWithdrawn.Amount)
	}
	if w.LastWithdrawalAt == nil {
		t.Fatal("expected last_withdrawal_at to be set")
	}
	if tx.BalanceAfter.Amount != 0 {
		t.Fatalf("after=%d", tx.BalanceAfter.Amount)
	}
}

func TestCashCollectionCycle(t *testing.T) {
	w := NewWallet("w1", "d1", defaultCurrency)
	if _, err := w.AddOrderEarning(usd(5000), "o1", ""); err != nil {
		t.Fatalf("earn: %v", err)
	}

	// collecting more COD than the balance covers is refused
	if _, err := w.RecordCashCollection(usd(6000), "o2", ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if _, err := w.RecordCashCollection(usd(3000), "o2", "COD-1"); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if w.Balance.Amount != 2000 || w.CashOnHand.Amount != 3000 {
		t.Fatalf("balance=%d cash=%d", w.Balance.Amount, w.CashOnHand.Amount)
	}

	// returning more than held is refused
	if _, err := w.ReturnCash(usd(3001), "", ""); !errors.Is(err, ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}

	if _, err := w.ReturnCash(usd(3000), "SETTLE-1", ""); err != nil {
		t.Fatalf("return: %v", err)
	}
	if w.Balance.Amount != 5000 || w.CashOnHand.Amount != 0 {
		t.Fatalf("balance=%d cash=%d", w.Balance.Amount, w.CashOnHand.Amount)
	}
}

func TestPenaltyMayOverdraw(t *testing.T) {
	w := NewWallet("w1", "d1", defaultCurrency)
	if _, err := w.AddOrderEarning(usd(500), "o1", ""); err != nil {
		t.Fatalf("earn: %v", err)
	}

	if _, err := w.ApplyPenalty(usd(800), "late delivery", ""); err != nil {
		t.Fatalf("penalty: %v", err)
	}
	if w.Balance.Amount != -300 {
		t.Fatalf("expected negative balance -300, got %d", w.Balance.Amount)
	}

	if _, err := w.ApplyPenalty(usd(100), "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty reason: expected ErrValidation, got %v", err)
	}
}

func TestDeactivateBlocksOperations(t *testing.T) {
	w := NewWallet("w1", "d1", defaultCurrency)
	if _, err := w.AddOrderEarning(usd(1000), "o1", ""); err != nil {
		t.Fatalf("earn: %v", err)
	}

	w.Deactivate()
	if w.Active {
		t.Fatal("expected wallet to be inactive")
	}
	if _, err := w.Deposit(usd(100), "", ""); !errors.Is(err, ErrInactive) {
		t.Fatalf("deposit on inactive wallet: expected ErrInactive, got %v", err)
	}
	if _, err := w.Withdraw(usd(100), "", ""); !errors.Is(err, ErrInactive) {
		t.Fatalf("withdraw on inactive wallet: expected ErrInactive, got %v", err)
	}
	if w.Balance.Amount != 1000 {
		t.Fatalf("balance changed while inactive: %d", w.Balance.Amount)
	}

	w.Activate()
	if _, err := w.Deposit(usd(100), "", ""); err != nil {
		t.Fatalf("deposit after reactivation: %v", err)
	}
	if w.Balance.Amount != 1100 {
		t.Fatalf("expected balance 1100, got %d", w.Balance.Amount)
	}
}

func TestCurrencyMismatch(t *testing.T) {
	w := NewWallet("w1", "d1", defaultCurrency)
	if _, err := w.Deposit(types.Money{Amount: 100, Currency: "EUR"}, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on currency mismatch, got %v", err)
	}
}

func TestLedgerBalancesChain(t *testing.T) {
	w := NewWallet("w1", "d1", defaultCurrency)

	var txs []*Transaction
	step := func(tx *Transaction, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("op: %v", err)
		}
		txs = append(txs, tx)
	}
	step(w.AddOrderEarning(usd(1000), "o1", ""))
	step(w.AddBonus(usd(200), "", ""))
	step(w.ApplyPenalty(usd(50), "spill", ""))
	step(w.Withdraw(usd(500), "", ""))
	step(w.Deposit(usd(75), "", ""))
	step(w.Refund(usd(25), "o1", "", ""))

	// each entry's after equals the next entry's before
	for i := 1; i < len(txs); i++ {
		if txs[i].BalanceBefore.Amount != txs[i-1].BalanceAfter.Amount {
			t.Fatalf("entry %d: before=%d, previous after=%d", i, txs[i].BalanceBefore.Amount, txs[i-1].BalanceAfter.Amount)
		}
	}
	if w.Balance.Amount != txs[len(txs)-1].BalanceAfter.Amount {
		t.Fatalf("wallet balance %d != last after %d", w.Balance.Amount, txs[len(txs)-1].BalanceAfter.Amount)
	}
	if w.Balance.Amount != 750 {
		t.Fatalf("expected final balance 750, got %d", w.Balance.Amount)
	}
}
