package handler

import (
	"net/http"
	"strconv"

	"GameHub/internal/service"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	svc *service.GameService
}

type CreateGameReq struct {
	Title       string   `json:"title" binding:"required,min=3,max=200"`
	Genre       string   `json:"genre" binding:"required,genre"`
	Description string   `json:"description" binding:"required,min=20"`
	ImageURL    string   `json:"image_url" binding:"required,url"`
	Platforms   []string `json:"platform" binding:"required,min=1,dive,platform"`
	ReleaseYear int      `json:"release_year" binding:"required,releaseyear"`
}

// UpdateGameReq 未传的字段保持不变
type UpdateGameReq struct {
	Title       *string  `json:"title" binding:"omitempty,min=3,max=200"`
	Genre       *string  `json:"genre" binding:"omitempty,genre"`
	Description *string  `json:"description" binding:"omitempty,min=20"`
	ImageURL    *string  `json:"image_url" binding:"omitempty,url"`
	Platforms   []string `json:"platform" binding:"omitempty,min=1,dive,platform"`
	ReleaseYear *int     `json:"release_year" binding:"omitempty,releaseyear"`
}

func NewGameHandler(svc *service.GameService) *GameHandler {
	return &GameHandler{svc: svc}
}

func (h *GameHandler) Create(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req CreateGameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	game, err := h.svc.Create(c.Request.Context(), who, service.GameInput{
		Title:       req.Title,
		Genre:       req.Genre,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Platforms:   req.Platforms,
		ReleaseYear: req.ReleaseYear,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": game.ID, "game": game})
}

// List 支持 q 搜索、author_id 过滤和 page/size 分页
func (h *GameHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	if q := c.Query("q"); q != "" {
		list, err := h.svc.Search(ctx, q)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"list": list})
		return
	}
	if raw := c.Query("author_id"); raw != "" {
		authorID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid author_id"})
			return
		}
		list, err := h.svc.ListByAuthor(ctx, authorID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"list": list})
		return
	}

	page, size := queryInt(c, "page", 1), queryInt(c, "size", 0)
	list, err := h.svc.List(ctx, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "page": page, "size": size})
}

func (h *GameHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	game, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (h *GameHandler) Update(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateGameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	game, err := h.svc.Update(c.Request.Context(), who, id, service.GamePatch{
		Title:       req.Title,
		Genre:       req.Genre,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Platforms:   req.Platforms,
		ReleaseYear: req.ReleaseYear,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (h *GameHandler) Delete(c *gin.Context) {
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
