package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/money"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// AccountHandler serves account CRUD. Balances are never set directly;
// they only move through the posting pipeline.
type AccountHandler struct {
	DB              *gorm.DB
	DefaultCurrency string
}

func NewAccountHandler(db *gorm.DB, defaultCurrency string) *AccountHandler {
	return &AccountHandler{DB: db, DefaultCurrency: defaultCurrency}
}

type createAccountReq struct {
	Name             string `json:"name" binding:"required,max=64"`
	Type             string `json:"type" binding:"required,oneof=asset liability"`
	Category         string `json:"category" binding:"required,oneof=cash savings credit other"`
	Currency         string `json:"currency"`
	CreditLimitMinor int64  `json:"credit_limit_minor"`
}

func accountResp(a *models.Account) gin.H {
	return gin.H{
		"id":                 a.ID,
		"name":               a.Name,
		"type":               a.Type,
		"category":           a.Category,
		"currency":           a.Currency,
		"balance_minor":      a.BalanceMinor,
		"credit_limit_minor": a.CreditLimitMinor,
		"active":             a.Active,
		"created_at":         a.CreatedAt,
	}
}

func (h *AccountHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.DefaultCurrency
	}
	if _, err := money.ParseCurrency(currency); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "unsupported currency")
		return
	}

	// Credit category belongs on liability accounts; a credit limit
	// means nothing anywhere else.
	if models.AccountCategory(req.Category) == models.AccountCredit &&
		models.AccountType(req.Type) != models.AccountLiability {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "credit accounts must be liabilities")
		return
	}
	if req.CreditLimitMinor < 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "credit limit must not be negative")
		return
	}
	if req.CreditLimitMinor > 0 && models.AccountType(req.Type) != models.AccountLiability {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "credit limit only applies to liability accounts")
		return
	}

	account := models.Account{
		UserID:           user.ID,
		Name:             strings.TrimSpace(req.Name),
		Type:             models.AccountType(req.Type),
		Category:         models.AccountCategory(req.Category),
		Currency:         currency,
		CreditLimitMinor: req.CreditLimitMinor,
		Active:           true,
	}
	if err := h.DB.Create(&account).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create account")
		return
	}

	util.Success(c, util.Response{"account": accountResp(&account)})
}

func (h *AccountHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var accounts []models.Account
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("id ASC").
		Find(&accounts).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list accounts")
		return
	}

	items := make([]gin.H, 0, len(accounts))
	for i := range accounts {
		items = append(items, accountResp(&accounts[i]))
	}
	util.Success(c, util.Response{"accounts": items})
}

func (h *AccountHandler) Get(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var account models.Account
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "account not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load account")
		}
		return
	}

	util.Success(c, util.Response{"account": accountResp(&account)})
}

type updateAccountReq struct {
	Name             *string `json:"name" binding:"omitempty,max=64"`
	CreditLimitMinor *int64  `json:"credit_limit_minor"`
	Active           *bool   `json:"active"`
}

// Update renames or (de)activates an account. Type, category and
// currency are fixed after creation, balances only move through
// transactions.
func (h *AccountHandler) Update(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var req updateAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	var account models.Account
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "account not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load account")
		}
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "name must not be empty")
			return
		}
		account.Name = name
	}
	if req.CreditLimitMinor != nil {
		if *req.CreditLimitMinor < 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "credit limit must not be negative")
			return
		}
		if account.Type != models.AccountLiability && *req.CreditLimitMinor > 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "credit limit only applies to liability accounts")
			return
		}
		account.CreditLimitMinor = *req.CreditLimitMinor
	}
	if req.Active != nil {
		account.Active = *req.Active
	}

	if err := h.DB.Save(&account).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update account")
		return
	}

	util.Success(c, util.Response{"account": accountResp(&account)})
}

// Delete removes an account with no transactions; otherwise it only
// deactivates, so history stays reconstructible.
func (h *AccountHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var account models.Account
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "account not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load account")
		}
		return
	}

	var txCount int64
	if err := h.DB.Model(&models.Transaction{}).
		Where("account_id = ?", account.ID).
		Count(&txCount).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check transactions")
		return
	}

	if txCount > 0 {
		account.Active = false
		if err := h.DB.Save(&account).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to deactivate account")
			return
		}
		util.Success(c, util.Response{"message": "account has transactions, deactivated instead"})
		return
	}

	if err := h.DB.Delete(&account).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to delete account")
		return
	}
	util.Success(c, util.Response{"message": "account deleted"})
}
