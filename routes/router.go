package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lukewen/studyblog/config"
	"github.com/lukewen/studyblog/controllers"
	"github.com/lukewen/studyblog/middleware"
	"github.com/lukewen/studyblog/services"
	"github.com/lukewen/studyblog/utils"
)

// SetupRouter wires routes, middlewares, services and controllers.
func SetupRouter(cfg config.AppConfig, db *gorm.DB) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.RequestLogger())
	r.Use(gin.Recovery())
	r.Use(maxBodySize(int64(cfg.MaxUploadMB) * 1024 * 1024))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Stored media files are served straight from the upload directory.
	r.Static(services.PublicUploadPrefix, cfg.UploadDir)

	sessions := utils.NewSessionManager(cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)
	postService := services.NewPostService(db)
	uploadService := services.NewUploadService(cfg)

	postController := controllers.NewPostController(postService)
	authController := controllers.NewAuthController(sessions, cfg.AdminPassword)
	adminController := controllers.NewAdminController(postService, uploadService, cfg.MediaPerPost)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	r.GET("/", postController.Index)
	r.GET("/topic/:topic", postController.ListByTopic)
	r.GET("/post/:slug", postController.GetBySlug)

	r.GET("/login", authController.ShowLogin)
	r.POST("/login", middleware.RateLimit(cfg.RateLimitPerMinute), authController.Login)
	r.GET("/logout", authController.Logout)

	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired(sessions))
	admin.GET("", adminController.Dashboard)
	admin.GET("/new", adminController.NewForm)
	admin.POST("/new", adminController.Create)
	admin.GET("/edit/:id", adminController.EditForm)
	admin.POST("/edit/:id", adminController.Update)
	admin.POST("/delete/:id", adminController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

// maxBodySize caps the request body, mirroring the configured upload limit.
func maxBodySize(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		ctx.Next()
	}
}
