package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/budgets"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// BudgetHandler serves budget CRUD plus the consumption read side.
type BudgetHandler struct {
	DB *gorm.DB
}

func NewBudgetHandler(db *gorm.DB) *BudgetHandler {
	return &BudgetHandler{DB: db}
}

type createBudgetReq struct {
	CategoryID uint    `json:"category_id" binding:"required"`
	Period     string  `json:"period" binding:"required,oneof=month week"`
	LimitMinor int64   `json:"limit_minor" binding:"required"`
	WarnPct    float64 `json:"warn_pct"`
	StartDate  string  `json:"start_date"`
}

func budgetResp(b *models.Budget, st *budgets.ConsumptionStatus) gin.H {
	resp := gin.H{
		"id":          b.ID,
		"category_id": b.CategoryID,
		"period":      b.Period,
		"limit_minor": b.LimitMinor,
		"warn_pct":    b.WarnPct,
		"start_date":  b.StartDate.Format("2006-01-02"),
		"active":      b.Active,
		"created_at":  b.CreatedAt,
	}
	if st != nil {
		resp["window_start"] = st.WindowStart.Format("2006-01-02")
		resp["window_end"] = st.WindowEnd.Format("2006-01-02")
		resp["consumed_minor"] = st.ConsumedMinor
		resp["ratio"] = st.Ratio
	}
	return resp
}

func (h *BudgetHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createBudgetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	if req.LimitMinor <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "limit must be positive")
		return
	}
	warnPct := req.WarnPct
	if warnPct == 0 {
		warnPct = 0.8
	}
	if warnPct <= 0 || warnPct > 1 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "warn_pct must be in (0,1]")
		return
	}

	startDate, err := util.ParseOptionalDate(req.StartDate)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid start_date")
		return
	}

	// The budgeted category must be the user's own and an expense one;
	// budgets on income make no sense.
	var cat models.Category
	if err := h.DB.Where("id = ? AND user_id = ?", req.CategoryID, user.ID).
		First(&cat).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "category not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load category")
		}
		return
	}
	if cat.Kind != models.CategoryExpense {
		util.Error(c, http.StatusUnprocessableEntity, util.CodeDomain, "budgets only apply to expense categories")
		return
	}

	// One active budget per (category, period).
	var count int64
	if err := h.DB.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ? AND period = ? AND active = ?",
			user.ID, req.CategoryID, req.Period, true).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check budgets")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict, "an active budget already exists for this category and period")
		return
	}

	b := models.Budget{
		UserID:     user.ID,
		CategoryID: req.CategoryID,
		Period:     models.BudgetPeriod(req.Period),
		LimitMinor: req.LimitMinor,
		WarnPct:    warnPct,
		StartDate:  startDate,
		Active:     true,
	}
	if err := h.DB.Create(&b).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create budget")
		return
	}

	util.Success(c, util.Response{"budget": budgetResp(&b, nil)})
}

// List returns the user's budgets with their current-window
// consumption.
func (h *BudgetHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	q := h.DB.Where("user_id = ?", user.ID)
	if c.Query("active") == "true" {
		q = q.Where("active = ?", true)
	}

	var list []models.Budget
	if err := q.Order("id ASC").Find(&list).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list budgets")
		return
	}

	now := time.Now()
	items := make([]gin.H, 0, len(list))
	for i := range list {
		st, err := budgets.StatusFor(h.DB, &list[i], now)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to compute consumption")
			return
		}
		items = append(items, budgetResp(&list[i], st))
	}
	util.Success(c, util.Response{"budgets": items})
}

func (h *BudgetHandler) Get(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var b models.Budget
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&b).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "budget not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load budget")
		}
		return
	}

	st, err := budgets.StatusFor(h.DB, &b, time.Now())
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to compute consumption")
		return
	}
	util.Success(c, util.Response{"budget": budgetResp(&b, st)})
}

type updateBudgetReq struct {
	LimitMinor *int64   `json:"limit_minor"`
	WarnPct    *float64 `json:"warn_pct"`
	Active     *bool    `json:"active"`
}

func (h *BudgetHandler) Update(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var req updateBudgetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	var b models.Budget
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&b).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "budget not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load budget")
		}
		return
	}

	if req.LimitMinor != nil {
		if *req.LimitMinor <= 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "limit must be positive")
			return
		}
		b.LimitMinor = *req.LimitMinor
	}
	if req.WarnPct != nil {
		if *req.WarnPct <= 0 || *req.WarnPct > 1 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "warn_pct must be in (0,1]")
			return
		}
		b.WarnPct = *req.WarnPct
	}
	if req.Active != nil && *req.Active && !b.Active {
		// Re-activation runs into the same one-active constraint.
		var count int64
		if err := h.DB.Model(&models.Budget{}).
			Where("user_id = ? AND category_id = ? AND period = ? AND active = ? AND id <> ?",
				user.ID, b.CategoryID, b.Period, true, b.ID).
			Count(&count).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check budgets")
			return
		}
		if count > 0 {
			util.Error(c, http.StatusConflict, util.CodeConflict, "an active budget already exists for this category and period")
			return
		}
	}
	if req.Active != nil {
		b.Active = *req.Active
	}

	if err := h.DB.Save(&b).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update budget")
		return
	}
	util.Success(c, util.Response{"budget": budgetResp(&b, nil)})
}

func (h *BudgetHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.Budget{})
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to delete budget")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "budget not found")
		return
	}
	util.Success(c, util.Response{"message": "budget deleted"})
}
