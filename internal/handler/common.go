package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// currentUser pulls the authenticated user from the context. On a
// missing user it writes the 401 envelope and returns nil, so callers
// just bail out.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get("currentUser")
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return nil
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return nil
	}
	return user
}

// idParam parses the :id path segment. On failure it writes the 400
// envelope and returns 0.
func idParam(c *gin.Context) uint {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid id")
		return 0
	}
	return uint(id)
}

// pageParams reads ?page= and ?page_size= with sane bounds.
func pageParams(c *gin.Context, defaultSize int) (page, size, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if size <= 0 {
		size = defaultSize
	}
	if size > 100 {
		size = 100
	}
	offset = (page - 1) * size
	return
}
