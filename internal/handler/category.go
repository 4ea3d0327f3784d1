package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// CategoryHandler serves category CRUD. The kind is fixed at creation:
// changing it would silently re-sign historical transactions.
type CategoryHandler struct {
	DB *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{DB: db}
}

type createCategoryReq struct {
	Name string `json:"name" binding:"required,max=64"`
	Kind string `json:"kind" binding:"required,oneof=income expense saving transfer"`
}

func categoryResp(cat *models.Category) gin.H {
	return gin.H{
		"id":         cat.ID,
		"name":       cat.Name,
		"kind":       cat.Kind,
		"created_at": cat.CreatedAt,
	}
}

func (h *CategoryHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "name must not be empty")
		return
	}

	var count int64
	if err := h.DB.Model(&models.Category{}).
		Where("user_id = ? AND LOWER(name) = LOWER(?)", user.ID, name).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check category")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict, "category name already exists")
		return
	}

	cat := models.Category{
		UserID: user.ID,
		Name:   name,
		Kind:   models.CategoryKind(req.Kind),
	}
	if err := h.DB.Create(&cat).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create category")
		return
	}

	util.Success(c, util.Response{"category": categoryResp(&cat)})
}

func (h *CategoryHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	q := h.DB.Where("user_id = ?", user.ID)
	if kind := c.Query("kind"); kind != "" {
		q = q.Where("kind = ?", kind)
	}

	var cats []models.Category
	if err := q.Order("name ASC").Find(&cats).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list categories")
		return
	}

	items := make([]gin.H, 0, len(cats))
	for i := range cats {
		items = append(items, categoryResp(&cats[i]))
	}
	util.Success(c, util.Response{"categories": items})
}

type updateCategoryReq struct {
	Name string `json:"name" binding:"required,max=64"`
}

// Update renames a category. The kind is immutable.
func (h *CategoryHandler) Update(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var req updateCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "name must not be empty")
		return
	}

	var cat models.Category
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&cat).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "category not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load category")
		}
		return
	}

	cat.Name = name
	if err := h.DB.Save(&cat).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update category")
		return
	}

	util.Success(c, util.Response{"category": categoryResp(&cat)})
}

// Delete removes an unused category; one referenced by transactions,
// budgets or rules is rejected.
func (h *CategoryHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	var cat models.Category
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&cat).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "category not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load category")
		}
		return
	}

	var txCount, budgetCount, ruleCount int64
	if err := h.DB.Model(&models.Transaction{}).
		Where("category_id = ?", cat.ID).Count(&txCount).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check usage")
		return
	}
	if err := h.DB.Model(&models.Budget{}).
		Where("category_id = ?", cat.ID).Count(&budgetCount).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check usage")
		return
	}
	idStr := strconv.FormatUint(uint64(cat.ID), 10)
	if err := h.DB.Model(&models.Rule{}).
		Where("user_id = ? AND ((criteria_type = ? AND criteria_value = ?) OR (action_type = ? AND action_payload = ?))",
			user.ID, models.CriteriaCategoryEquals, idStr, models.ActionAssignCategory, idStr).
		Count(&ruleCount).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check usage")
		return
	}
	if txCount > 0 || budgetCount > 0 || ruleCount > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict, "category is in use")
		return
	}

	if err := h.DB.Delete(&cat).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to delete category")
		return
	}
	util.Success(c, util.Response{"message": "category deleted"})
}
