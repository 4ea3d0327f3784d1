package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/pipeline"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// TransactionHandler is the HTTP face of the posting pipeline.
type TransactionHandler struct {
	DB       *gorm.DB
	Pipeline *pipeline.Service
	Log      *slog.Logger
	PageSize int
}

func NewTransactionHandler(db *gorm.DB, p *pipeline.Service, log *slog.Logger, pageSize int) *TransactionHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &TransactionHandler{DB: db, Pipeline: p, Log: log, PageSize: pageSize}
}

type createTransactionReq struct {
	AccountID   uint   `json:"account_id" binding:"required"`
	Type        string `json:"type" binding:"required,oneof=income expense saving transfer_out transfer_in"`
	CategoryID  *uint  `json:"category_id"`
	GoalID      *uint  `json:"goal_id"`
	AmountMinor int64  `json:"amount_minor" binding:"required"`
	Currency    string `json:"currency"`
	// ExchangeRate converts amount_minor into the account currency;
	// required exactly when currency differs from it. Decimal text,
	// up to six fractional digits.
	ExchangeRate string `json:"exchange_rate"`
	Date         string `json:"date"`
	Description  string `json:"description" binding:"max=255"`

	NInstallments   int    `json:"n_installments"`
	InstallmentRate string `json:"installment_rate"`
	FirstDueDate    string `json:"first_due_date"`
}

func transactionResp(tx *models.Transaction) gin.H {
	resp := gin.H{
		"id":           tx.ID,
		"account_id":   tx.AccountID,
		"type":         tx.Type,
		"amount_minor": tx.AmountMinor,
		"currency":     tx.Currency,
		"date":         tx.Date.Format("2006-01-02"),
		"description":  tx.Description,
		"created_at":   tx.CreatedAt,
	}
	if tx.CategoryID != nil {
		resp["category_id"] = *tx.CategoryID
	}
	if tx.GoalID != nil {
		resp["goal_id"] = *tx.GoalID
	}
	if tx.OriginalCurrency != "" {
		resp["original_currency"] = tx.OriginalCurrency
		resp["original_amount_minor"] = tx.OriginalAmountMinor
		resp["exchange_rate"] = tx.ExchangeRate
	}
	if tx.TransferGroupID != "" {
		resp["transfer_group_id"] = tx.TransferGroupID
	}
	if tx.InstallmentPlan != nil {
		resp["installment_plan"] = planResp(tx.InstallmentPlan)
	}
	return resp
}

func planResp(p *models.InstallmentPlan) gin.H {
	rows := make([]gin.H, 0, len(p.Installments))
	for i := range p.Installments {
		r := &p.Installments[i]
		rows = append(rows, gin.H{
			"index":               r.Index,
			"due_date":            r.DueDate.Format("2006-01-02"),
			"principal_minor":     r.PrincipalMinor,
			"interest_minor":      r.InterestMinor,
			"balance_after_minor": r.BalanceAfterMinor,
		})
	}
	return gin.H{
		"id":                    p.ID,
		"transaction_id":        p.TransactionID,
		"n_installments":        p.NInstallments,
		"monthly_rate":          p.MonthlyRate,
		"principal_minor":       p.PrincipalMinor,
		"total_interest_minor":  p.TotalInterestMinor,
		"total_principal_minor": p.TotalPrincipalMinor,
		"total_amount_minor":    p.TotalAmountMinor,
		"installments":          rows,
	}
}

// Create posts one transaction through the pipeline.
func (h *TransactionHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createTransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	date, err := util.ParseOptionalDate(req.Date)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid date")
		return
	}

	in := pipeline.PostInput{
		AccountID:       req.AccountID,
		Type:            models.TransactionType(req.Type),
		CategoryID:      req.CategoryID,
		GoalID:          req.GoalID,
		AmountMinor:     req.AmountMinor,
		Currency:        req.Currency,
		ExchangeRate:    req.ExchangeRate,
		Date:            date,
		Description:     req.Description,
		NInstallments:   req.NInstallments,
		InstallmentRate: req.InstallmentRate,
	}
	if req.FirstDueDate != "" {
		due, err := util.ParseDate(req.FirstDueDate)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid first_due_date")
			return
		}
		in.FirstDueDate = &due
	}

	tx, err := h.Pipeline.Post(c.Request.Context(), user.ID, in)
	if err != nil {
		util.FromError(c, h.Log, err)
		return
	}

	// Reload with the plan so the response carries the schedule.
	if req.NInstallments >= 1 {
		_ = h.DB.Preload("InstallmentPlan.Installments").First(tx, tx.ID).Error
	}
	util.Success(c, util.Response{"transaction": transactionResp(tx)})
}

type transferReq struct {
	FromAccountID uint   `json:"from_account_id" binding:"required"`
	ToAccountID   uint   `json:"to_account_id" binding:"required"`
	AmountMinor   int64  `json:"amount_minor" binding:"required"`
	ExchangeRate  string `json:"exchange_rate"`
	Date          string `json:"date"`
	Description   string `json:"description" binding:"max=255"`
}

// Transfer posts both legs of an account-to-account move atomically.
func (h *TransactionHandler) Transfer(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req transferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	date, err := util.ParseOptionalDate(req.Date)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid date")
		return
	}

	out, in, err := h.Pipeline.Transfer(c.Request.Context(), user.ID, pipeline.TransferInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		AmountMinor:   req.AmountMinor,
		ExchangeRate:  req.ExchangeRate,
		Date:          date,
		Description:   req.Description,
	})
	if err != nil {
		util.FromError(c, h.Log, err)
		return
	}

	util.Success(c, util.Response{
		"out": transactionResp(out),
		"in":  transactionResp(in),
	})
}

// List returns the user's transactions, newest first, with optional
// filters on account, category, type and date range.
func (h *TransactionHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	page, size, offset := pageParams(c, h.PageSize)

	q := h.DB.Model(&models.Transaction{}).Where("user_id = ?", user.ID)
	if v := c.Query("account_id"); v != "" {
		q = q.Where("account_id = ?", v)
	}
	if v := c.Query("category_id"); v != "" {
		q = q.Where("category_id = ?", v)
	}
	if v := c.Query("type"); v != "" {
		q = q.Where("type = ?", v)
	}
	if v := c.Query("from"); v != "" {
		t, err := util.ParseDate(v)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid from date")
			return
		}
		q = q.Where("date >= ?", t)
	}
	if v := c.Query("to"); v != "" {
		t, err := util.ParseDate(v)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid to date")
			return
		}
		q = q.Where("date < ?", t.AddDate(0, 0, 1))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to count transactions")
		return
	}

	var list []models.Transaction
	if err := q.Order("date DESC, id DESC").
		Limit(size).
		Offset(offset).
		Find(&list).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list transactions")
		return
	}

	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, transactionResp(&list[i]))
	}
	util.Success(c, util.Response{
		"transactions": items,
		"total":        total,
		"page":         page,
		"page_size":    size,
	})
}

func (h *TransactionHandler) Get(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var tx models.Transaction
	if err := h.DB.Preload("InstallmentPlan.Installments").
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&tx).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "transaction not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load transaction")
		}
		return
	}

	util.Success(c, util.Response{"transaction": transactionResp(&tx)})
}

// GetPlan returns the amortization schedule of a financed purchase.
func (h *TransactionHandler) GetPlan(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var tx models.Transaction
	if err := h.DB.Preload("InstallmentPlan.Installments").
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&tx).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "transaction not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load transaction")
		}
		return
	}
	if tx.InstallmentPlan == nil {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "transaction has no installment plan")
		return
	}

	util.Success(c, util.Response{"plan": planResp(tx.InstallmentPlan)})
}

// Delete reverts a transaction: balances, goal accruals and plans are
// rolled back, and a reverted transfer takes its paired leg with it.
func (h *TransactionHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	if err := h.Pipeline.Revert(c.Request.Context(), user.ID, id); err != nil {
		util.FromError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"message": "transaction reverted"})
}
