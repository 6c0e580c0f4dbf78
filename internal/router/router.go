package router

import (
	"log"
	"slices"
	"time"

	"GameHub/internal/handler"
	"GameHub/internal/middleware"
	"GameHub/internal/model"
	"GameHub/internal/pkg"
	"GameHub/internal/repository/redis"
	"GameHub/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	JWT         *pkg.JWT
	Tokens      *redis.TokenRepository
	Users       *service.UserService
	Games       *service.GameService
	Reviews     *service.ReviewService
	Sessions    *service.SessionService
	Uploads     *service.UploadService
	CORSOrigins []string
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func InitRouter(d Deps) *gin.Engine {
	if err := handler.RegisterValidators(); err != nil {
		log.Printf("register validators: %v", err)
	}

	r := gin.Default()
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	user := handler.NewUserHandler(d.Users)
	email := handler.NewEmailHandler(d.Users)
	game := handler.NewGameHandler(d.Games)
	review := handler.NewReviewHandler(d.Reviews)
	session := handler.NewSessionHandler(d.Sessions)
	upload := handler.NewUploadHandler(d.Uploads)

	auth := middleware.AuthMiddleware(d.JWT, d.Tokens, d.Users)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	// 邮件相关接口
	emailGroup := r.Group("/api/email")
	{
		emailGroup.POST("/reset/code", email.SendResetCode)
	}

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/reset", user.ResetPassword)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(auth)
	{
		authGroup.GET("/profile", user.Profile)
		authGroup.PUT("/profile", user.UpdateProfile)
		authGroup.POST("/logout", user.Logout)
		authGroup.POST("/change-password", user.ChangePassword)
	}

	// 用户资料
	usersGroup := r.Group("/api/users")
	usersGroup.Use(auth)
	{
		usersGroup.GET("/:id", user.GetUser)
		usersGroup.GET("/:id/reviews", review.ListByUser)
	}

	// 游戏相关接口
	gameGroup := r.Group("/api/games")
	gameGroup.Use(auth)
	{
		gameGroup.GET("", game.List)
		gameGroup.POST("", game.Create)
		gameGroup.GET("/:id", game.Get)
		gameGroup.PUT("/:id", game.Update)
		gameGroup.PATCH("/:id", game.Update)
		gameGroup.DELETE("/:id", game.Delete)
		gameGroup.GET("/:id/reviews", review.ListByGame)
		gameGroup.POST("/:id/reviews", review.Create)
		gameGroup.GET("/:id/reviews/mine", review.Mine)
		gameGroup.GET("/:id/rating", review.Rating)
		gameGroup.GET("/:id/sessions", session.ListByGame)
	}

	reviewGroup := r.Group("/api/reviews")
	reviewGroup.Use(auth)
	{
		reviewGroup.DELETE("/:id", review.Delete)
	}

	// 会话：详情公开，其余需要登录
	sessionGroup := r.Group("/api/sessions")
	{
		sessionGroup.GET("/:id", session.Get)

		sessionGroup.GET("", auth, session.List)
		sessionGroup.POST("", auth, session.Create)
		sessionGroup.PUT("/:id", auth, session.Update)
		sessionGroup.DELETE("/:id", auth, session.Delete)
		sessionGroup.POST("/:id/join", auth, session.Join)
		sessionGroup.POST("/:id/leave", auth, session.Leave)
		sessionGroup.POST("/:id/close", auth, session.Close)
	}

	adminGroup := r.Group("/api/admin")
	adminGroup.Use(auth, adminOnly)
	{
		adminGroup.GET("/users", user.ListUsers)
		adminGroup.PUT("/users/:id/role", user.UpdateRole)
	}

	r.POST("/api/upload", auth, upload.UploadImage)

	return r
}
