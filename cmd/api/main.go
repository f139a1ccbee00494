package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/yourusername/pubquiz-api/internal/config"
	"github.com/yourusername/pubquiz-api/internal/domain/repository"
	"github.com/yourusername/pubquiz-api/internal/handler"
	"github.com/yourusername/pubquiz-api/internal/middleware"
	pgRepo "github.com/yourusername/pubquiz-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/pubquiz-api/internal/repository/redis"
	"github.com/yourusername/pubquiz-api/internal/service"
	ws "github.com/yourusername/pubquiz-api/internal/websocket"
	"github.com/yourusername/pubquiz-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Redis опционален: без него сервер работает, но без кеша списка игр
	// и без rate limiting на админских маршрутах
	var cacheRepo repository.CacheRepository
	var redisClient redis.UniversalClient
	if cfg.Redis.Addr != "" {
		redisClient, err = database.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		log.Println("Successfully connected to Redis")

		repo, err := redisRepo.NewCacheRepo(redisClient)
		if err != nil {
			log.Printf("Failed to initialize CacheRepo: %v", err)
			os.Exit(1)
		}
		cacheRepo = repo
	} else {
		log.Println("Redis не настроен, кеширование отключено")
	}

	// Инициализируем репозитории
	playerRepo := pgRepo.NewPlayerRepo(db)
	gameRepo := pgRepo.NewGameRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	teamRepo := pgRepo.NewTeamRepo(db)
	membershipRepo := pgRepo.NewMembershipRepo(db)
	answerRepo := pgRepo.NewAnswerRepo(db)
	voteRepo := pgRepo.NewVoteRepo(db)

	// Реестр подключений и маршрутизатор рассылок
	registry := ws.NewRegistry()
	router := ws.NewRouter(registry)

	// Инициализируем сервисы
	identityService := service.NewIdentityService(playerRepo)
	gameService := service.NewGameService(gameRepo, questionRepo, cacheRepo)
	sessionService := service.NewSessionService(
		registry,
		router,
		identityService,
		playerRepo,
		gameRepo,
		questionRepo,
		teamRepo,
		membershipRepo,
		answerRepo,
		voteRepo,
	)

	// Инициализируем обработчики
	wsHandler := handler.NewWSHandler(registry, sessionService, gameService, cfg)
	gameHandler := handler.NewGameHandler(gameService)

	isProduction := gin.Mode() == gin.ReleaseMode

	engine := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := engine.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := engine.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS (список origin синхронизирован с CheckOrigin апгрейдера)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Маршруты API
	api := engine.Group("/api")
	{
		games := api.Group("/games")
		{
			// Мутационные маршруты прикрыты rate limiting, если есть Redis
			var limit gin.HandlerFunc
			if redisClient != nil {
				limiter := middleware.NewRateLimiter(redisClient)
				limit = limiter.Limit(middleware.AdminRateLimitConfig())
			} else {
				limit = func(c *gin.Context) { c.Next() }
			}

			games.GET("", gameHandler.ListGames)
			games.POST("", limit, gameHandler.CreateGame)

			withUUID := games.Group("/:uuid", middleware.ExtractUUIDParam("uuid"))
			{
				withUUID.GET("/questions/export", gameHandler.ExportQuestions)
				withUUID.POST("/questions/import", limit, gameHandler.ImportQuestions)
			}
		}
	}

	// WebSocket вход живой викторины
	engine.GET("/ws", wsHandler.HandleConnection)

	// Служебные эндпоинты
	engine.GET("/health", gin.WrapF(ws.HealthCheckHandler(registry)))
	engine.GET("/ws/metrics", gin.WrapF(ws.MetricsHandler(registry)))

	// HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown с таймаутом
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
