package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/money"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// GoalHandler serves savings-goal CRUD. SavedMinor moves only through
// the posting pipeline.
type GoalHandler struct {
	DB              *gorm.DB
	DefaultCurrency string
}

func NewGoalHandler(db *gorm.DB, defaultCurrency string) *GoalHandler {
	return &GoalHandler{DB: db, DefaultCurrency: defaultCurrency}
}

type createGoalReq struct {
	Name        string `json:"name" binding:"required,max=64"`
	TargetMinor int64  `json:"target_minor" binding:"required"`
	Currency    string `json:"currency"`
	TargetDate  string `json:"target_date"`
}

func goalResp(g *models.Goal) gin.H {
	progress := 0.0
	if g.TargetMinor > 0 {
		progress = float64(g.SavedMinor) / float64(g.TargetMinor)
	}
	resp := gin.H{
		"id":           g.ID,
		"name":         g.Name,
		"target_minor": g.TargetMinor,
		"saved_minor":  g.SavedMinor,
		"currency":     g.Currency,
		"progress":     progress,
		"completed":    g.CompletedAt != nil,
		"created_at":   g.CreatedAt,
	}
	if !g.TargetDate.IsZero() {
		resp["target_date"] = g.TargetDate.Format("2006-01-02")
	}
	if g.CompletedAt != nil {
		resp["completed_at"] = g.CompletedAt
	}
	return resp
}

func (h *GoalHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createGoalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	if req.TargetMinor <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "target must be positive")
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

	var targetDate time.Time
	if req.TargetDate != "" {
		t, err := util.ParseDate(req.TargetDate)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid target_date")
			return
		}
		targetDate = t
	}

	g := models.Goal{
		UserID:      user.ID,
		Name:        strings.TrimSpace(req.Name),
		TargetMinor: req.TargetMinor,
		Currency:    currency,
		TargetDate:  targetDate,
	}
	if err := h.DB.Create(&g).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create goal")
		return
	}

	util.Success(c, util.Response{"goal": goalResp(&g)})
}

func (h *GoalHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var goals []models.Goal
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("id ASC").
		Find(&goals).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list goals")
		return
	}

	items := make([]gin.H, 0, len(goals))
	for i := range goals {
		items = append(items, goalResp(&goals[i]))
	}
	util.Success(c, util.Response{"goals": items})
}

func (h *GoalHandler) Get(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var g models.Goal
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&g).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "goal not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load goal")
		}
		return
	}
	util.Success(c, util.Response{"goal": goalResp(&g)})
}

type updateGoalReq struct {
	Name        *string `json:"name" binding:"omitempty,max=64"`
	TargetMinor *int64  `json:"target_minor"`
	TargetDate  *string `json:"target_date"`
}

// Update adjusts name, target amount or target date. Raising the
// target of a completed goal does not reopen it; completion is owned
// by the pipeline.
func (h *GoalHandler) Update(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var req updateGoalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	var g models.Goal
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&g).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "goal not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load goal")
		}
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "name must not be empty")
			return
		}
		g.Name = name
	}
	if req.TargetMinor != nil {
		if *req.TargetMinor <= 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "target must be positive")
			return
		}
		g.TargetMinor = *req.TargetMinor
	}
	if req.TargetDate != nil {
		t, err := util.ParseDate(*req.TargetDate)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid target_date")
			return
		}
		g.TargetDate = t
	}

	if err := h.DB.Save(&g).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update goal")
		return
	}
	util.Success(c, util.Response{"goal": goalResp(&g)})
}

// Delete removes a goal; transactions that pointed at it keep their
// GoalID nulled by the FK.
func (h *GoalHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.Goal{})
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to delete goal")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "goal not found")
		return
	}
	util.Success(c, util.Response{"message": "goal deleted"})
}
