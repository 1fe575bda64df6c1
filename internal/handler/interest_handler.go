package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"matchwell/internal/middleware"
	"matchwell/internal/service"

	"github.com/gin-gonic/gin"
)

type InterestHandler struct {
	svc *service.InterestService
	log *slog.Logger
}

func NewInterestHandler(svc *service.InterestService, log *slog.Logger) *InterestHandler {
	return &InterestHandler{svc: svc, log: log}
}

func (h *InterestHandler) Send(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		ToUserID string  `json:"to_user_id" binding:"required"`
		Message  *string `json:"message" binding:"omitempty,max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Message != nil {
		trimmed := strings.TrimSpace(*req.Message)
		req.Message = &trimmed
		if trimmed == "" {
			req.Message = nil
		}
	}
	i, err := h.svc.Send(c.Request.Context(), userID, req.ToUserID, req.Message)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Interest sent successfully", "interest": service.NewInterestView(i)})
}

func (h *InterestHandler) Received(c *gin.Context) {
	list, err := h.svc.ListReceived(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interests": list})
}

func (h *InterestHandler) Sent(c *gin.Context) {
	list, err := h.svc.ListSent(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interests": list})
}

func (h *InterestHandler) Accept(c *gin.Context) {
	i, err := h.svc.Accept(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Interest accepted successfully", "interest": service.NewInterestView(i)})
}

func (h *InterestHandler) Reject(c *gin.Context) {
	i, err := h.svc.Reject(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Interest rejected", "interest": service.NewInterestView(i)})
}

func (h *InterestHandler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Interest canceled successfully"})
}

func (h *InterestHandler) Matches(c *gin.Context) {
	list, err := h.svc.Matches(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": list})
}

// Mutual reports whether the caller and :user_id are matched.
func (h *InterestHandler) Mutual(c *gin.Context) {
	ok, err := h.svc.MutualInterest(c.Request.Context(), middleware.GetUserID(c), c.Param("user_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mutual": ok})
}

// Limits shows the caller's usage of both caps.
func (h *InterestHandler) Limits(c *gin.Context) {
	sent, accepted, err := h.svc.Counts(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	p := h.svc.Policy()
	c.JSON(http.StatusOK, gin.H{
		"active_sent":     sent,
		"max_active_sent": p.MaxActiveSent,
		"accepted":        accepted,
		"max_accepted":    p.MaxAccepted,
	})
}
