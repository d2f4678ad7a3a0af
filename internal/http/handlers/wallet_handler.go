// README: Wallet handlers (balance, ledger, cash cycle, withdrawals, adjustments).
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/wallet"
	"courier/internal/types"
)

type WalletHandler struct {
	wallets *wallet.Service
}

func NewWalletHandler(svc *wallet.Service) *WalletHandler {
	return &WalletHandler{wallets: svc}
}

type walletDTO struct {
	ID               string     `json:"id"`
	DriverID         string     `json:"driver_id"`
	Balance          moneyDTO   `json:"balance"`
	CashOnHand       moneyDTO   `json:"cash_on_hand"`
	TotalEarnings    moneyDTO   `json:"total_earnings"`
	TotalWithdrawn   moneyDTO   `json:"total_withdrawn"`
	LastWithdrawalAt *time.Time `json:"last_withdrawal_at,omitempty"`
	Active           bool       `json:"active"`
}

func toWalletDTO(w *wallet.Wallet) walletDTO {
	return walletDTO{
		ID:               string(w.ID),
		DriverID:         string(w.DriverID),
		Balance:          toMoneyDTO(w.Balance),
		CashOnHand:       toMoneyDTO(w.CashOnHand),
		TotalEarnings:    toMoneyDTO(w.TotalEarnings),
		TotalWithdrawn:   toMoneyDTO(w.TotalWithdrawn),
		LastWithdrawalAt: w.LastWithdrawalAt,
		Active:           w.Active,
	}
}

type transactionDTO struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Amount        moneyDTO  `json:"amount"`
	BalanceBefore moneyDTO  `json:"balance_before"`
	BalanceAfter  moneyDTO  `json:"balance_after"`
	OrderID       string    `json:"order_id,omitempty"`
	Reference     string    `json:"reference,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTransactionDTO(t *wallet.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:            string(t.ID),
		Type:          string(t.Type),
		Amount:        toMoneyDTO(t.Amount),
		BalanceBefore: toMoneyDTO(t.BalanceBefore),
		BalanceAfter:  toMoneyDTO(t.BalanceAfter),
		Reference:     t.Reference,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
	}
	if t.OrderID != nil {
		dto.OrderID = string(*t.OrderID)
	}
	return dto
}

func (h *WalletHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	w, err := h.wallets.Get(c.Request.Context(), id)
	if err != nil {
		writeWalletError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toWalletDTO(w))
}

// Transactions lists ledger entries. Without limit or type filters the full
// ledger comes back in insertion order; otherwise newest first.
func (h *WalletHandler) Transactions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var txs []*wallet.Transaction
	var err error
	if c.Query("limit") == "" && c.Query("type") == "" {
		txs, err = h.wallets.Ledger(c.Request.Context(), id)
	} else {
		limit := 0
		if v := c.Query("limit"); v != "" {
			n, aerr := strconv.Atoi(v)
			if aerr != nil || n < 0 {
				writeError(c, http.StatusBadRequest, "validation", "invalid limit")
				return
			}
			limit = n
		}
		txs, err = h.wallets.Transactions(c.Request.Context(), id, wallet.TransactionType(c.Query("type")), limit)
	}
	if err != nil {
		writeWalletError(c, err)
		return
	}
	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionDTO(t))
	}
	writeJSON(c, http.StatusOK, map[string]any{"transactions": out})
}

// Deactivate freezes the wallet. Admin only; the ledger stays readable.
func (h *WalletHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	w, err := h.wallets.Deactivate(c.Request.Context(), id)
	if err != nil {
		writeWalletError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toWalletDTO(w))
}

func (h *WalletHandler) Activate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	w, err := h.wallets.Activate(c.Request.Context(), id)
	if err != nil {
		writeWalletError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toWalletDTO(w))
}

type walletMutationReq struct {
	moneyReq
	OrderID     string `json:"order_id"`
	Reason      string `json:"reason"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

func (h *WalletHandler) mutation(c *gin.Context, apply func(types.ID, walletMutationReq) (*wallet.Wallet, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req walletMutationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "invalid json")
		return
	}
	w, err := apply(id, req)
	if err != nil {
		writeWalletError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toWalletDTO(w))
}

func (h *WalletHandler) Deposit(c *gin.Context) {
	h.mutation(c, func(id types.ID, req walletMutationReq) (*wallet.Wallet, error) {
		return h.wallets.Deposit(c.Request.Context(), wallet.DepositCommand{
			DriverID:    id,
			Amount:      req.money(),
			Reference:   req.Reference,
			Description: req.Description,
		})
	})
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.mutation(c, func(id types.ID, req walletMutationReq) (*wallet.Wallet, error) {
		return h.wallets.Withdraw(c.Request.Context(), wallet.WithdrawCommand{
			DriverID:    id,
			Amount:      req.money(),
			Reference:   req.Reference,
			Description: req.Description,
		})
	})
}

func (h *WalletHandler) CollectCash(c *gin.Context) {
	h.mutation(c, func(id types.ID, req walletMutationReq) (*wallet.Wallet, error) {
		return h.wallets.CollectCash(c.Request.Context(), wallet.CollectCashCommand{
			DriverID:  id,
			OrderID:   types.ID(req.OrderID),
			Amount:    req.money(),
			Reference: req.Reference,
		})
	})
}

func (h *WalletHandler) ReturnCash(c *gin.Context) {
	h.mutation(c, func(id types.ID, req walletMutationReq) (*wallet.Wallet, error) {
		return h.wallets.ReturnCash(c.Request.Context(), wallet.ReturnCashCommand{
			DriverID:    id,
			Amount:      req.money(),
			Reference:   req.Reference,
			Description: req.Description,
		})
	})
}

func (h *WalletHandler) Bonus(c *gin.Context) {
	h.mutation(c, func(id types.ID, req walletMutationReq) (*wallet.Wallet, error) {
		return h.wallets.AddBonus(c.Request.Context(), wallet.BonusCommand{
			DriverID:    id,
			Amount:      req.money(),
			Reference:   req.Reference,
			Description: req.Description,
		})
	})
}

func (h *WalletHandler) Penalty(c *gin.Context) {
	h.mutation(c, func(id types.ID, req walletMutationReq) (*wallet.Wallet, error) {
		return h.wallets.ApplyPenalty(c.Request.Context(), wallet.PenaltyCommand{
			DriverID:  id,
			Amount:    req.money(),
			Reason:    req.Reason,
			Reference: req.Reference,
		})
	})
}

func (h *WalletHandler) Refund(c *gin.Context) {
	h.mutation(c, func(id types.ID, req walletMutationReq) (*wallet.Wallet, error) {
		return h.wallets.Refund(c.Request.Context(), wallet.RefundCommand{
			DriverID:  id,
			OrderID:   types.ID(req.OrderID),
			Amount:    req.money(),
			Reason:    req.Reason,
			Reference: req.Reference,
		})
	})
}
