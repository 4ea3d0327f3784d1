package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
)

// AuditMiddleware records mutating requests of authenticated users.
func AuditMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		c.Next()

		// Only record logged-in users; AuthMiddleware runs first on
		// protected routes.
		var userID *uint
		if user := CurrentUser(c); user != nil {
			userID = &user.ID
		}
		if userID == nil {
			return
		}

		// Reads are not worth an audit row.
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" {
			return
		}

		action := c.Request.Method + " " + c.Request.URL.Path
		if len(bodyBytes) > 0 && len(bodyBytes) < 2000 {
			action += " " + string(bodyBytes)
		}

		row := models.AuditLog{
			UserID:    userID,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Action:    action,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		_ = db.Create(&row).Error
	}
}
