package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/yogaschool/internal/bootstrap"
	"anoa.com/yogaschool/internal/config"
	"anoa.com/yogaschool/internal/middleware"
	"anoa.com/yogaschool/internal/scheduler"
	"anoa.com/yogaschool/pkg/storage"

	adminHttp "anoa.com/yogaschool/internal/modules/admin/delivery/http"
	adminService "anoa.com/yogaschool/internal/modules/admin/service"

	attachmentHttp "anoa.com/yogaschool/internal/modules/attachment/delivery/http"
	attachmentRepo "anoa.com/yogaschool/internal/modules/attachment/repository"
	attachmentService "anoa.com/yogaschool/internal/modules/attachment/service"

	chatHttp "anoa.com/yogaschool/internal/modules/chat/delivery/http"
	"anoa.com/yogaschool/internal/modules/chat/realtime"
	chatRepo "anoa.com/yogaschool/internal/modules/chat/repository"
	chatService "anoa.com/yogaschool/internal/modules/chat/service"

	searchService "anoa.com/yogaschool/internal/modules/search/service"

	settingsHttp "anoa.com/yogaschool/internal/modules/settings/delivery/http"
	settingsRepo "anoa.com/yogaschool/internal/modules/settings/repository"
	settingsService "anoa.com/yogaschool/internal/modules/settings/service"

	userHttp "anoa.com/yogaschool/internal/modules/user/delivery/http"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	userService "anoa.com/yogaschool/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const orphanCleanupSpec = "@every 12h"

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	jobs        *scheduler.Scheduler
}

type repositories struct {
	users       userRepo.UserRepository
	chats       chatRepo.Repository
	settings    settingsRepo.SettingsRepository
	attachments attachmentRepo.AttachmentRepository
}

// newRepositories picks the gorm implementations when a database is connected and the
// in-memory ones otherwise.
func newRepositories(db *gorm.DB) repositories {
	if db == nil {
		return repositories{
			users:       userRepo.NewMemoryUserRepository(),
			chats:       chatRepo.NewMemoryRepository(),
			settings:    settingsRepo.NewMemorySettingsRepository(),
			attachments: attachmentRepo.NewMemoryAttachmentRepository(),
		}
	}
	return repositories{
		users:       userRepo.NewUserRepository(db),
		chats:       chatRepo.NewChatRepository(db),
		settings:    settingsRepo.NewSettingsRepository(db),
		attachments: attachmentRepo.NewAttachmentRepository(db),
	}
}

func newFileStorage(cfg *config.Config) (storage.FileStorage, error) {
	if cfg.CloudinaryEnabled() {
		return storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryCloudName, cfg.CloudinaryUploadFolder)
	}
	return storage.NewLocalStorage(cfg.UploadDir)
}

// NewServer wires every module. A nil db selects the in-memory store.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	repos := newRepositories(db)

	fileStorage, err := newFileStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	var messageIndex chatService.MessageIndex
	if cfg.MeiliSearchHost != "" {
		host := cfg.MeiliSearchHost
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host + ":7700"
		}
		messageIndex = searchService.NewMessageIndex(meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey)))
	} else {
		log.Println("[Search] MEILISEARCH_HOST not set, message search disabled")
	}

	forwardPolicy := chatService.ForwardAnywhere
	if cfg.ForwardPolicy == config.ForwardPolicyMembers {
		forwardPolicy = chatService.ForwardMembersOnly
	}

	authSvc := userService.NewAuthService(repos.users, fileStorage, cfg.JWTSecret, cfg.JWTTTL, cfg.ImageUploadMaxBytes)
	authHandler := userHttp.NewAuthHandler(authSvc)

	if !cfg.IsProduction() {
		if err := bootstrap.SeedDevelopmentUsers(context.Background(), repos.users, authSvc); err != nil {
			return nil, fmt.Errorf("failed to seed users: %w", err)
		}
	}

	adminSvc := adminService.NewAdminService(repos.users, repos.chats)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	settingsSvc := settingsService.NewSettingsService(repos.settings, fileStorage, cfg.ImageUploadMaxBytes)
	settingsHandler := settingsHttp.NewSettingsHandler(settingsSvc)

	roomSvc := chatService.NewRoomService(repos.chats, repos.users)
	messageSvc := chatService.NewMessageService(repos.chats, repos.users, chatService.MessageOptions{
		ForwardPolicy: forwardPolicy,
		SendCooldown:  cfg.RateLimitMessage,
		Redis:         redisClient,
		Index:         messageIndex,
	})
	unreadTracker := chatService.NewUnreadTracker(repos.chats)

	hub := realtime.NewHub()
	gateway := realtime.NewGateway(hub, roomSvc, messageSvc)
	chatHandler := chatHttp.NewChatHandler(roomSvc, messageSvc, unreadTracker, hub)

	attachmentSvc := attachmentService.NewAttachmentService(repos.attachments, repos.users, repos.chats, fileStorage, attachmentService.Options{
		MaxBytes: cfg.ChatUploadMaxBytes,
		Cooldown: cfg.RateLimitUpload,
		Redis:    redisClient,
	})
	attachmentHandler := attachmentHttp.NewAttachmentHandler(attachmentSvc)

	jobs := scheduler.New()
	if err := jobs.Register(scheduler.Job{
		Name: "OrphanAttachmentCleanup",
		Spec: orphanCleanupSpec,
		Run:  attachmentSvc.CleanupOrphanAttachments,
	}); err != nil {
		return nil, err
	}
	jobs.Start()

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/chat/ws"},
	}))

	if !cfg.CloudinaryEnabled() {
		router.Static(storage.LocalStoragePrefix, cfg.UploadDir)
	}

	authMiddleware := middleware.NewAuthMiddleware(repos.users, cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/forgot-password/verify-email", authHandler.VerifyEmail)
		auth.POST("/forgot-password/reset", authHandler.ResetPassword)
	}
	api.GET("/settings", settingsHandler.GetSettings)

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.PUT("/users/:id/profile-image", middleware.LimitUploadSize(cfg.ImageUploadMaxBytes), authHandler.UpdateProfileImage)

		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/users", adminHandler.GetAllUsers)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
		}

		settings := protected.Group("/settings")
		settings.Use(authMiddleware.RequireAdmin())
		{
			settings.POST("/qr-code", middleware.LimitUploadSize(cfg.ImageUploadMaxBytes), settingsHandler.UploadQRCode)
			settings.DELETE("/qr-code", settingsHandler.DeleteQRCode)
		}

		chat := protected.Group("/chat")
		{
			chat.GET("/ws", gateway.HandleWebSocket)
			chat.GET("/users", chatHandler.ListUsers)

			chat.POST("/groups", chatHandler.CreateGroup)
			chat.GET("/groups/:groupId", chatHandler.GetGroup)
			chat.DELETE("/groups/:groupId", chatHandler.DeleteGroup)
			chat.POST("/groups/:groupId/leave", chatHandler.LeaveGroup)
			chat.POST("/groups/:groupId/add-members", chatHandler.AddMembers)

			chat.POST("/dm", chatHandler.CreateOrGetDM)
			chat.GET("/my-chats/:userId", chatHandler.ListMyChats)

			chat.POST("/messages/upload", middleware.LimitUploadSize(cfg.ChatUploadMaxBytes), attachmentHandler.UploadChatFile)
			chat.POST("/messages/forward", chatHandler.ForwardMessage)
			chat.GET("/messages/by-id/:messageId", chatHandler.GetMessage)
			chat.GET("/messages/:roomId/:userId", chatHandler.FetchMessages)
			chat.DELETE("/messages/:messageId", chatHandler.DeleteMessage)

			chat.GET("/unread-count/:userId", chatHandler.UnreadCount)
			chat.POST("/mark-read/:roomId", chatHandler.MarkRoomRead)
			chat.GET("/search/:userId", chatHandler.SearchMessages)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		jobs:        jobs,
	}, nil
}

func (s *Server) Run(addr string) error {
	defer s.jobs.Stop()
	return s.engine.Run(addr)
}

// Close stops background jobs started by NewServer.
func (s *Server) Close() {
	s.jobs.Stop()
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
