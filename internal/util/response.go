package util

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/apperr"
)

// Response is the data payload of the JSON envelope.
type Response map[string]interface{}

// Business error codes carried alongside the HTTP status.
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeTimeout      = 40801
	CodeConflict     = 40901
	CodeDomain       = 42201
	CodeServerErr    = 50001
)

// Success writes the uniform success envelope.
func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Error writes the uniform error envelope.
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// FromError translates a tagged domain error into the envelope.
// Internal errors are logged with context and surfaced opaquely.
func FromError(c *gin.Context, log *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	var code int
	switch kind {
	case apperr.KindValidation:
		code = CodeInvalidParam
	case apperr.KindNotFound:
		code = CodeNotFound
	case apperr.KindForbidden:
		code = CodeForbidden
	case apperr.KindConflict:
		code = CodeConflict
	case apperr.KindTimeout:
		code = CodeTimeout
	case apperr.KindInternal:
		code = CodeServerErr
	default:
		code = CodeDomain
	}

	msg := err.Error()
	if kind == apperr.KindInternal {
		if log != nil {
			log.Error("internal error", "path", c.FullPath(), "err", err)
		}
		msg = "internal error"
	}
	Error(c, status, code, msg)
}
