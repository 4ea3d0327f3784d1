package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// UpdateProfile changes the display name.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	type req struct {
		DisplayName string `json:"display_name" binding:"max=64"`
	}
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			return
		}

		var body req
		if err := c.ShouldBindJSON(&body); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
			return
		}

		user.DisplayName = strings.TrimSpace(body.DisplayName)
		if err := db.Save(user).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update profile")
			return
		}
		util.Success(c, util.Response{
			"user": gin.H{
				"id":           user.ID,
				"username":     user.Username,
				"display_name": user.DisplayName,
			},
		})
	}
}

// ChangePassword verifies the old password and stores a new hash.
func ChangePassword(db *gorm.DB) gin.HandlerFunc {
	type req struct {
		OldPassword     string `json:"old_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
		ConfirmPassword string `json:"confirm_password" binding:"required"`
	}
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			return
		}

		var body req
		if err := c.ShouldBindJSON(&body); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.OldPassword)); err != nil {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "wrong password")
			return
		}
		if !isStrongPassword(body.NewPassword) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "password must be 8-32 chars with upper, lower and digit")
			return
		}
		if body.NewPassword != body.ConfirmPassword {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "passwords do not match")
			return
		}

		const bcryptCost = 12
		hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcryptCost)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to hash password")
			return
		}
		user.PasswordHash = string(hash)
		if err := db.Save(user).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to change password")
			return
		}
		util.Success(c, util.Response{"message": "password changed"})
	}
}
