package handler

import (
	"net/http"

	"GameHub/internal/service"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	svc *service.ReviewService
}

type CreateReviewReq struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"required,min=10"`
}

func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

func (h *ReviewHandler) Create(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	gameID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CreateReviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	review, err := h.svc.Create(c.Request.Context(), who, gameID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func (h *ReviewHandler) ListByGame(c *gin.Context) {
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

func (h *ReviewHandler) ListByUser(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// Mine 当前用户是否已评论该游戏
func (h *ReviewHandler) Mine(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	gameID, ok := parseID(c, "id")
	if !ok {
		return
	}
	reviewed, err := h.svc.HasUserReviewed(c.Request.Context(), gameID, who.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviewed": reviewed})
}

func (h *ReviewHandler) Rating(c *gin.Context) {
	gameID, ok := parseID(c, "id")
	if !ok {
		return
	}
	stats, err := h.svc.RatingStats(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ReviewHandler) Delete(c *gin.Context) {
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
