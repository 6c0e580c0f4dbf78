package handler

import (
	"net/http"

	"GameHub/internal/service"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	svc *service.UserService
}

func NewEmailHandler(svc *service.UserService) *EmailHandler {
	return &EmailHandler{svc: svc}
}

// SendResetCode 发送重置密码验证码
func (h *EmailHandler) SendResetCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	if err := h.svc.SendResetCode(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Send code successfully"})
}
