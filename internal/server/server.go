package server

import (
	"github.com/floingsmoke/tigo/internal/auth"
	"github.com/floingsmoke/tigo/internal/config"
	"github.com/floingsmoke/tigo/internal/message"
	"github.com/floingsmoke/tigo/internal/notification"
	"github.com/floingsmoke/tigo/internal/trip"
	"github.com/floingsmoke/tigo/internal/upload"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App   *fiber.App
	Cfg   config.Config
	DB    *pgxpool.Pool
	Redis *redis.Client
	Hub   *notification.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:   app,
		Cfg:   cfg,
		DB:    db,
		Redis: redisClient,
		Hub:   notification.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authRequired := auth.JWTMiddleware(s.Cfg.JWTSecret)
	authOptional := auth.OptionalJWT(s.Cfg.JWTSecret)

	notifySvc := notification.NewService(s.DB, s.Hub)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB), authRequired)
	trip.RegisterRoutes(s.App.Group("/trips"), trip.NewService(s.DB, notifySvc), authRequired, authOptional)
	message.RegisterRoutes(s.App.Group("/messages"), message.NewService(s.DB, notifySvc), authRequired)
	notification.RegisterRoutes(s.App.Group("/notifications"), notifySvc, authRequired)
	upload.RegisterRoutes(s.App.Group("/uploads"), upload.NewService(s.DB, s.Cfg.UploadDir), authRequired)
	s.App.Static("/uploads", s.Cfg.UploadDir)
}
