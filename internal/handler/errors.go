package handler

import (
	"log/slog"
	"net/http"

	"matchwell/internal/domain"

	"github.com/gin-gonic/gin"
)

var statusByKind = map[domain.Kind]int{
	domain.KindNotFound:              http.StatusNotFound,
	domain.KindForbidden:             http.StatusForbidden,
	domain.KindInvalidState:          http.StatusConflict,
	domain.KindInvalidTarget:         http.StatusBadRequest,
	domain.KindDuplicateInterest:     http.StatusConflict,
	domain.KindReverseInterestExists: http.StatusConflict,
	domain.KindCapacityExceeded:      http.StatusForbidden,
	domain.KindConflict:              http.StatusConflict,
	domain.KindUnavailable:           http.StatusServiceUnavailable,
}

// respondError renders a classified error. Storage details stay in the log.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	kind := domain.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := domain.Message(err)
	if kind == domain.KindUnavailable {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg = domain.ErrUnavailable.Msg
	}
	c.JSON(status, gin.H{"error": msg, "code": kind})
}
