package handler

import (
	"net/http"

	"GameHub/internal/model"
	"GameHub/internal/pkg"
	"GameHub/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *service.UserService
}

// RegisterReq 注册请求体
type RegisterReq struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"required,min=3"`
}

type LoginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ResetReq 忘记密码请求体
type ResetReq struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type UpdateProfileReq struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=3,max=64"`
	PhotoURL    *string `json:"photo_url" binding:"omitempty,max=512"`
}

type UpdateRoleReq struct {
	Role model.Role `json:"role" binding:"required,oneof=user moderator admin"`
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func tokenResponse(user *model.User, pair *pkg.Pair) gin.H {
	return gin.H{"user": user, "access_token": pair.AccessToken, "refresh_token": pair.RefreshToken}
}

// Register 注册后直接返回 token
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	user, pair, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokenResponse(user, pair))
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	user, pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(user, pair))
}

func (h *UserHandler) Logout(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), who.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// TokenRefresh 用 refresh token 换新的一对 token
func (h *UserHandler) TokenRefresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req ResetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "reset password successfully"})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), who.UserID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "change password successfully"})
}

// Profile 当前登录用户的资料
func (h *UserHandler) Profile(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	user, err := h.svc.GetProfile(c.Request.Context(), who.UserID)
	if err != nil {
		if who.Fallback {
			c.JSON(http.StatusOK, gin.H{"user": who, "fallback": true})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	user, err := h.svc.UpdateProfile(c.Request.Context(), who.UserID, service.ProfilePatch{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.svc.ListUsers(c.Request.Context(), who, queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *UserHandler) UpdateRole(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	user, err := h.svc.UpdateRole(c.Request.Context(), who, id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
