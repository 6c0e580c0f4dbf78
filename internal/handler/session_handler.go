package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"GameHub/internal/model"
	"GameHub/internal/service"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	svc *service.SessionService
}

type CreateSessionReq struct {
	GameID        uint64    `json:"game_id" binding:"required"`
	Title         string    `json:"title" binding:"required,min=5,max=200"`
	Description   string    `json:"description" binding:"required,min=10"`
	MaxPlayers    int       `json:"max_players" binding:"required,min=2,max=100"`
	ScheduledTime time.Time `json:"scheduled_time" binding:"required"`
}

type UpdateSessionReq struct {
	Title         *string    `json:"title" binding:"omitempty,min=5,max=200"`
	Description   *string    `json:"description" binding:"omitempty,min=10"`
	MaxPlayers    *int       `json:"max_players" binding:"omitempty,min=2,max=100"`
	ScheduledTime *time.Time `json:"scheduled_time"`
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Create(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req CreateSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	sess, err := h.svc.Create(c.Request.Context(), who, service.SessionInput{
		GameID:        req.GameID,
		Title:         req.Title,
		Description:   req.Description,
		MaxPlayers:    req.MaxPlayers,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sess.ID, "session": sess})
}

// List status=open 只看开放会话，host_id 按主持人过滤
func (h *SessionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		list []model.Session
		err  error
	)
	switch {
	case c.Query("status") == string(model.SessionOpen):
		list, err = h.svc.ListOpen(ctx)
	case c.Query("host_id") != "":
		hostID, perr := strconv.ParseUint(c.Query("host_id"), 10, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid host_id"})
			return
		}
		list, err = h.svc.ListByHost(ctx, hostID)
	default:
		list, err = h.svc.List(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *SessionHandler) ListByGame(c *gin.Context) {
	gameID, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListByGame(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sess, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *SessionHandler) Update(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	sess, err := h.svc.Update(c.Request.Context(), who, id, service.SessionPatch{
		Title:         req.Title,
		Description:   req.Description,
		MaxPlayers:    req.MaxPlayers,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *SessionHandler) Join(c *gin.Context) {
	h.membership(c, h.svc.Join)
}

func (h *SessionHandler) Leave(c *gin.Context) {
	h.membership(c, h.svc.Leave)
}

func (h *SessionHandler) membership(c *gin.Context, op func(context.Context, service.Identity, uint64) (*model.Session, error)) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sess, err := op(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *SessionHandler) Close(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Close(c.Request.Context(), who, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "closed"})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), who, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}
