// README: Wallet service: one transaction per balance mutation.
package wallet

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"courier/internal/events"
	"courier/internal/infra"
	"courier/internal/types"
)

var (
	ErrValidation          = errors.New("wallet validation failed")
	ErrNotFound            = errors.New("wallet not found")
	ErrConflict            = errors.New("wallet was modified concurrently")
	ErrDuplicate           = errors.New("wallet already exists for this driver")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientCash    = errors.New("insufficient cash on hand")
	ErrInactive            = errors.New("wallet is inactive")
)

const defaultCurrency = "USD"

type Service struct {
	pool   *pgxpool.Pool
	store  *Store
	events events.Publisher
	log    *slog.Logger
}

func NewService(pool *pgxpool.Pool, publisher events.Publisher, log *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{pool: pool, store: NewStore(pool), events: publisher, log: log}
}

type EarnCommand struct {
	DriverID    types.ID
	OrderID     types.ID
	Amount      types.Money
	Description string
}

type WithdrawCommand struct {
	DriverID    types.ID
	Amount      types.Money
	Reference   string
	Description string
}

type DepositCommand struct {
	DriverID    types.ID
	Amount      types.Money
	Reference   string
	Description string
}

type BonusCommand struct {
	DriverID    types.ID
	Amount      types.Money
	Reference   string
	Description string
}

type PenaltyCommand struct {
	DriverID  types.ID
	Amount    types.Money
	Reason    string
	Reference string
}

type RefundCommand struct {
	DriverID  types.ID
	OrderID   types.ID
	Amount    types.Money
	Reason    string
	Reference string
}

type CollectCashCommand struct {
	DriverID  types.ID
	OrderID   types.ID
	Amount    types.Money
	Reference string
}

type ReturnCashCommand struct {
	DriverID    types.ID
	Amount      types.Money
	Reference   string
	Description string
}

// Get returns the driver's wallet, creating an empty one on first use.
func (s *Service) Get(ctx context.Context, driverID types.ID) (*Wallet, error) {
	return s.getOrCreate(ctx, s.store, driverID)
}

// Transactions returns the most recent entries, newest first, optionally
// filtered by type.
func (s *Service) Transactions(ctx context.Context, driverID types.ID, txType TransactionType, limit int) ([]*Transaction, error) {
	w, err := s.store.GetByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, w.ID, txType, limit)
}

// Ledger returns the driver's full ledger in insertion order.
func (s *Service) Ledger(ctx context.Context, driverID types.ID) ([]*Transaction, error) {
	w, err := s.store.GetByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return s.store.ListLedger(ctx, w.ID)
}

func (s *Service) AddOrderEarning(ctx context.Context, cmd EarnCommand) (*Wallet, error) {
	return s.mutate(ctx, cmd.DriverID, func(w *Wallet) (*Transaction, error) {
		return w.AddOrderEarning(cmd.Amount, cmd.OrderID, cmd.Description)
	})
}

func (s *Service) Withdraw(ctx context.Context, cmd WithdrawCommand) (*Wallet, error) {
	return s.mutate(ctx, cmd.DriverID, func(w *Wallet) (*Transaction, error) {
		return w.Withdraw(cmd.Amount, cmd.Reference, cmd.Description)
	})
}

func (s *Service) Deposit(ctx context.Context, cmd DepositCommand) (*Wallet, error) {
	return s.mutate(ctx, cmd.DriverID, func(w *Wallet) (*Transaction, error) {
		return w.Deposit(cmd.Amount, cmd.Reference, cmd.Description)
	})
}

func (s *Service) AddBonus(ctx context.Context, cmd BonusCommand) (*Wallet, error) {
	return s.mutate(ctx, cmd.DriverID, func(w *Wallet) (*Transaction, error) {
		return w.AddBonus(cmd.Amount, cmd.Reference, cmd.Description)
	})
}

func (s *Service) ApplyPenalty(ctx context.Context, cmd PenaltyCommand) (*Wallet, error) {
	return s.mutate(ctx, cmd.DriverID, func(w *Wallet) (*Transaction, error) {
		return w.ApplyPenalty(cmd.Amount, cmd.Reason, cmd.Reference)
	})
}

func (s *Service) Refund(ctx context.Context, cmd RefundCommand) (*Wallet, error) {
	return s.mutate(ctx, cmd.DriverID, func(w *Wallet) (*Transaction, error) {
		return w.Refund(cmd.Amount, cmd.OrderID, cmd.Reason, cmd.Reference)
	})
}

func (s *Service) CollectCash(ctx context.Context, cmd CollectCashCommand) (*Wallet, error) {
	return s.mutate(ctx, cmd.DriverID, func(w *Wallet) (*Transaction, error) {
		return w.RecordCashCollection(cmd.Amount, cmd.OrderID, cmd.Reference)
	})
}

// Deactivate freezes the wallet; every ledger operation fails until it is
// activated again. The ledger itself stays readable.
func (s *Service) Deactivate(ctx context.Context, driverID types.ID) (*Wallet, error) {
	return s.mutate(ctx, driverID, func(w *Wallet) (*Transaction, error) {
		w.Deactivate()
		return nil, nil
	})
}

func (s *Service) Activate(ctx context.Context, driverID types.ID) (*Wallet, error) {
	return s.mutate(ctx, driverID, func(w *Wallet) (*Transaction, error) {
		w.Activate()
		return nil, nil
	})
}

func (s *Service) ReturnCash(ctx context.Context, cmd ReturnCashCommand) (*Wallet, error) {
	return s.mutate(ctx, cmd.DriverID, func(w *Wallet) (*Transaction, error) {
		return w.ReturnCash(cmd.Amount, cmd.Reference, cmd.Description)
	})
}

// EarnInTx credits an order earning inside a caller-owned transaction. Used
// by trip orchestration so driver payout and trip completion commit together.
func (s *Service) EarnInTx(ctx context.Context, db infra.DB, cmd EarnCommand) error {
	store := &Store{db: db}
	w, err := s.getOrCreate(ctx, store, cmd.DriverID)
	if err != nil {
		return err
	}
	tx, err := w.AddOrderEarning(cmd.Amount, cmd.OrderID, cmd.Description)
	if err != nil {
		return err
	}
	ok, err := store.Update(ctx, w)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return store.AppendTransaction(ctx, tx)
}

// CollectCashInTx records a COD collection inside a caller-owned transaction.
func (s *Service) CollectCashInTx(ctx context.Context, db infra.DB, cmd CollectCashCommand) error {
	store := &Store{db: db}
	w, err := s.getOrCreate(ctx, store, cmd.DriverID)
	if err != nil {
		return err
	}
	tx, err := w.RecordCashCollection(cmd.Amount, cmd.OrderID, cmd.Reference)
	if err != nil {
		return err
	}
	ok, err := store.Update(ctx, w)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return store.AppendTransaction(ctx, tx)
}

// mutate runs one ledger operation atomically: wallet CAS update and the
// transaction row commit or roll back together.
func (s *Service) mutate(ctx context.Context, driverID types.ID, apply func(*Wallet) (*Transaction, error)) (*Wallet, error) {
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer dbtx.Rollback(ctx)

	store := s.store.WithTx(dbtx)
	w, err := s.getOrCreate(ctx, store, driverID)
	if err != nil {
		return nil, err
	}
	t, err := apply(w)
	if err != nil {
		return nil, err
	}
	ok, err := store.Update(ctx, w)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	// activation flips carry no ledger entry
	if t != nil {
		if err := store.AppendTransaction(ctx, t); err != nil {
			return nil, err
		}
	}
	if err := dbtx.Commit(ctx); err != nil {
		return nil, err
	}
	w.Version++

	if t != nil {
		s.publish(ctx, w, t)
	}
	return w, nil
}

func (s *Service) getOrCreate(ctx context.Context, store *Store, driverID types.ID) (*Wallet, error) {
	w, err := store.GetByDriver(ctx, driverID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	w = NewWallet(newID(), driverID, defaultCurrency)
	if err := store.Create(ctx, w); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return store.GetByDriver(ctx, driverID)
		}
		return nil, err
	}
	return w, nil
}

func (s *Service) publish(ctx context.Context, w *Wallet, t *Transaction) {
	e := events.Event{
		Name:        "wallet." + string(t.Type),
		AggregateID: w.ID,
		DriverID:    w.DriverID,
		Payload: map[string]any{
			"amount":        t.Amount.Float64(),
			"balance_after": t.BalanceAfter.Float64(),
			"currency":      t.Amount.Currency,
		},
		OccurredAt: t.CreatedAt,
	}
	if t.OrderID != nil {
		e.OrderID = *t.OrderID
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish wallet event failed", "event", e.Name, "driver_id", w.DriverID, "err", err)
	}
}

func newID() types.ID {
	return types.ID(uuid.NewString())
}
