package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/rules"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// RuleHandler serves automatic-rule CRUD. Shape validation lives in
// the rules package; reference ownership is checked here, at save
// time, so the matcher never chases dangling ids.
type RuleHandler struct {
	DB  *gorm.DB
	Log *slog.Logger
}

func NewRuleHandler(db *gorm.DB, log *slog.Logger) *RuleHandler {
	return &RuleHandler{DB: db, Log: log}
}

type ruleReq struct {
	Name          string `json:"name" binding:"required,max=64"`
	Priority      *int   `json:"priority"`
	Enabled       *bool  `json:"enabled"`
	CriteriaType  string `json:"criteria_type" binding:"required"`
	CriteriaValue string `json:"criteria_value" binding:"required,max=256"`
	ActionType    string `json:"action_type" binding:"required"`
	ActionPayload string `json:"action_payload" binding:"max=64"`
}

func ruleResp(r *models.Rule) gin.H {
	return gin.H{
		"id":             r.ID,
		"name":           r.Name,
		"priority":       r.Priority,
		"enabled":        r.Enabled,
		"criteria_type":  r.CriteriaType,
		"criteria_value": r.CriteriaValue,
		"action_type":    r.ActionType,
		"action_payload": r.ActionPayload,
		"created_at":     r.CreatedAt,
	}
}

// checkReferences verifies that ids embedded in the rule belong to the
// user, and that an assign_category target can actually be applied.
func (h *RuleHandler) checkReferences(c *gin.Context, userID uint, r *models.Rule) bool {
	owned := func(model any, idStr, what string) bool {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid "+what+" id")
			return false
		}
		res := h.DB.Model(model).Where("id = ? AND user_id = ?", uint(id), userID)
		var count int64
		if err := res.Count(&count).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check "+what)
			return false
		}
		if count == 0 {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, what+" not found")
			return false
		}
		return true
	}

	switch r.CriteriaType {
	case models.CriteriaAccountEquals:
		if !owned(&models.Account{}, r.CriteriaValue, "account") {
			return false
		}
	case models.CriteriaCategoryEquals:
		if !owned(&models.Category{}, r.CriteriaValue, "category") {
			return false
		}
	}

	switch r.ActionType {
	case models.ActionAssignCategory:
		if !owned(&models.Category{}, r.ActionPayload, "category") {
			return false
		}
	case models.ActionAssignGoal:
		if !owned(&models.Goal{}, r.ActionPayload, "goal") {
			return false
		}
	}
	return true
}

func (h *RuleHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req ruleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	priority := 100
	if req.Priority != nil {
		priority = *req.Priority
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	r := models.Rule{
		UserID:        user.ID,
		Name:          strings.TrimSpace(req.Name),
		Priority:      priority,
		Enabled:       enabled,
		CriteriaType:  models.RuleCriteria(req.CriteriaType),
		CriteriaValue: req.CriteriaValue,
		ActionType:    models.RuleAction(req.ActionType),
		ActionPayload: req.ActionPayload,
	}
	if err := rules.Validate(&r); err != nil {
		util.FromError(c, h.Log, err)
		return
	}
	if !h.checkReferences(c, user.ID, &r) {
		return
	}

	if err := h.DB.Create(&r).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create rule")
		return
	}
	util.Success(c, util.Response{"rule": ruleResp(&r)})
}

// List returns the user's rules in evaluation order.
func (h *RuleHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var list []models.Rule
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("priority ASC, id ASC").
		Find(&list).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list rules")
		return
	}

	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, ruleResp(&list[i]))
	}
	util.Success(c, util.Response{"rules": items})
}

func (h *RuleHandler) Update(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var req ruleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	var r models.Rule
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&r).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "rule not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load rule")
		}
		return
	}

	r.Name = strings.TrimSpace(req.Name)
	if req.Priority != nil {
		r.Priority = *req.Priority
	}
	if req.Enabled != nil {
		r.Enabled = *req.Enabled
	}
	r.CriteriaType = models.RuleCriteria(req.CriteriaType)
	r.CriteriaValue = req.CriteriaValue
	r.ActionType = models.RuleAction(req.ActionType)
	r.ActionPayload = req.ActionPayload

	if err := rules.Validate(&r); err != nil {
		util.FromError(c, h.Log, err)
		return
	}
	if !h.checkReferences(c, user.ID, &r) {
		return
	}

	if err := h.DB.Save(&r).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update rule")
		return
	}
	util.Success(c, util.Response{"rule": ruleResp(&r)})
}

func (h *RuleHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.Rule{})
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to delete rule")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "rule not found")
		return
	}
	util.Success(c, util.Response{"message": "rule deleted"})
}
