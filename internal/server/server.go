package server

import (
	"github.com/Wethmal/RoadQualityAI/internal/auth"
	"github.com/Wethmal/RoadQualityAI/internal/config"
	"github.com/Wethmal/RoadQualityAI/internal/emergency"
	"github.com/Wethmal/RoadQualityAI/internal/hazard"
	"github.com/Wethmal/RoadQualityAI/internal/leaderboard"
	"github.com/Wethmal/RoadQualityAI/internal/mq"
	"github.com/Wethmal/RoadQualityAI/internal/roadinfo"
	"github.com/Wethmal/RoadQualityAI/internal/stream"
	"github.com/Wethmal/RoadQualityAI/internal/trip"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub

	Hazards   *hazard.Service
	Trips     *trip.Manager
	Telemetry *mq.Publisher
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)
	hazards := hazard.NewService(db, hub)
	telemetry := mq.NewPublisher(cfg.KafkaBrokers(), cfg.KafkaTopicTelemetry)
	sos := emergency.NewService(db, nil)
	trips := trip.NewManager(trip.NewService(db), hazards, hub, telemetry, sos, cfg.SpeedLimitKmh)

	s := &Server{
		App:       app,
		Cfg:       cfg,
		DB:        db,
		Redis:     redisClient,
		Stream:    hub,
		Hazards:   hazards,
		Trips:     trips,
		Telemetry: telemetry,
	}

	registerRoutes(s, sos)
	return s
}

func registerRoutes(s *Server, sos *emergency.Service) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB), jwtMiddleware)
	trip.RegisterRoutes(s.App.Group("/trips"), s.Trips, trip.NewService(s.DB), jwtMiddleware)
	hazard.RegisterRoutes(s.App.Group("/hazards"), s.Hazards, jwtMiddleware)
	leaderboard.RegisterRoutes(s.App.Group("/leaderboard"), leaderboard.NewService(s.DB), jwtMiddleware)
	emergency.RegisterRoutes(s.App.Group("/emergency"), sos, jwtMiddleware)
	roadinfo.RegisterRoutes(s.App.Group("/roadinfo"),
		roadinfo.NewClient(s.Cfg.OverpassURL, s.Cfg.WeatherURL, s.Cfg.WeatherAPIKey), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
