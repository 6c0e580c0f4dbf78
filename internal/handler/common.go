package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"GameHub/internal/middleware"
	"GameHub/internal/model"
	"GameHub/internal/pkg"
	"GameHub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 注册表单用的自定义校验 tag
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	if err := v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
		return model.IsGenre(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		return model.IsPlatform(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("releaseyear", func(fl validator.FieldLevel) bool {
		y := int(fl.Field().Int())
		return y >= model.MinReleaseYear && y <= time.Now().Year()+1
	})
}

func badParams(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params", "field": fe.Field(), "rule": fe.Tag()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
}

// respondError 业务错误原样返回，其余错误记录日志后返回通用信息
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case service.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, service.ErrReviewNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrAlreadyReviewed),
		errors.Is(err, service.ErrAlreadyJoined),
		errors.Is(err, service.ErrSessionFull),
		errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, service.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotInSession),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrInvalidCode):
		status = http.StatusBadRequest
	case errors.Is(err, pkg.ErrUploadFailed):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"msg": "something went wrong, please try again"})
		return
	}
	if status == http.StatusBadGateway {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"msg": err.Error()})
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt 缺省或非法时返回 def
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// identity 路由已挂 AuthMiddleware
func identity(c *gin.Context) (service.Identity, bool) {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "unauthorized", "redirect": middleware.LoginPath})
		return service.Identity{}, false
	}
	return who, true
}
