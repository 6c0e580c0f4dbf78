package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"GameHub/internal/model"
	"GameHub/internal/pkg"
	"GameHub/internal/repository/redis"
	"GameHub/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	ContextIdentityKey = "identity"
	LoginPath          = "/login"
)

// IdentityResolver 由 UserService 实现
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, claims *pkg.Claims) service.Identity
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": msg, "redirect": LoginPath})
}

// AuthMiddleware 校验 Bearer token，与 redis 中的 token 比对后解析身份
func AuthMiddleware(j *pkg.JWT, tokens *redis.TokenRepository, resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			unauthorized(c, "invalid authorization format")
			return
		}
		tokenStr := parts[1]

		claims, err := j.ParseAccess(tokenStr)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		// redis校验是否是正确的token
		origin, err := tokens.GetUserToken(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, redis.ErrRedisUnavailable) {
				log.Printf("auth token lookup user=%d: %v", claims.UserID, err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"msg": "service unavailable, please retry"})
				return
			}
			unauthorized(c, "session expired, please sign in again")
			return
		}
		if origin != tokenStr {
			unauthorized(c, "Account has been logged in elsewhere")
			return
		}

		// 校验通过后续期
		if err = tokens.ExtendUserToken(c.Request.Context(), claims.UserID); err != nil {
			log.Printf("extend token user=%d: %v", claims.UserID, err)
		}

		c.Set(ContextIdentityKey, resolver.ResolveIdentity(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireRole 必须放在 AuthMiddleware 之后
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := IdentityFrom(c)
		if !ok {
			unauthorized(c, "missing identity")
			return
		}
		if !who.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "Access Denied", "required": roles})
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (service.Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return service.Identity{}, false
	}
	who, ok := v.(service.Identity)
	return who, ok
}
