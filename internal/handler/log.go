package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// LogHandler lists the caller's audit trail.
type LogHandler struct {
	DB       *gorm.DB
	PageSize int
}

func NewLogHandler(db *gorm.DB, pageSize int) *LogHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &LogHandler{DB: db, PageSize: pageSize}
}

func (h *LogHandler) ListLogs(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	page, size, offset := pageParams(c, h.PageSize)

	q := h.DB.Model(&models.AuditLog{}).Where("user_id = ?", user.ID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to count logs")
		return
	}

	var logs []models.AuditLog
	if err := q.Order("id DESC").
		Limit(size).
		Offset(offset).
		Find(&logs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list logs")
		return
	}

	items := make([]gin.H, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		items = append(items, gin.H{
			"id":         l.ID,
			"method":     l.Method,
			"path":       l.Path,
			"action":     l.Action,
			"ip":         l.IP,
			"user_agent": l.UserAgent,
			"created_at": l.CreatedAt,
		})
	}
	util.Success(c, util.Response{
		"logs":      items,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}
