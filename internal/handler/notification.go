package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// NotificationHandler is the read side of the dispatcher. Withdrawn
// notifications stay in the table for idempotency but are never listed.
type NotificationHandler struct {
	DB       *gorm.DB
	PageSize int
}

func NewNotificationHandler(db *gorm.DB, pageSize int) *NotificationHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &NotificationHandler{DB: db, PageSize: pageSize}
}

func notificationResp(n *models.Notification) gin.H {
	return gin.H{
		"id":         n.ID,
		"type":       n.Type,
		"title":      n.Title,
		"message":    n.Message,
		"read":       n.Read,
		"created_at": n.CreatedAt,
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	page, size, offset := pageParams(c, h.PageSize)

	q := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND withdrawn = ?", user.ID, false)
	if c.Query("unread") == "true" {
		q = q.Where("read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to count notifications")
		return
	}

	var list []models.Notification
	if err := q.Order("id DESC").
		Limit(size).
		Offset(offset).
		Find(&list).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list notifications")
		return
	}

	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, notificationResp(&list[i]))
	}
	util.Success(c, util.Response{
		"notifications": items,
		"total":         total,
		"page":          page,
		"page_size":     size,
	})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := idParam(c)
	if id == 0 {
		return
	}

	res := h.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, user.ID).
		Update("read", true)
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update notification")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "notification not found")
		return
	}
	util.Success(c, util.Response{"message": "marked read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	res := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", user.ID, false).
		Update("read", true)
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update notifications")
		return
	}
	util.Success(c, util.Response{"updated": res.RowsAffected})
}
