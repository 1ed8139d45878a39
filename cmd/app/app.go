package app

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"postfeed/internal/config"
	"postfeed/internal/database"
	"postfeed/internal/realtime"
	"postfeed/internal/repository"
	"postfeed/internal/service"
	"postfeed/internal/storage"
)

// Application holds everything main needs to serve requests. It owns the
// single event hub of the process.
type Application struct {
	Logger   *slog.Logger
	Hub      *realtime.Hub
	Services *service.Service
	closers  []func()
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func App(cfg *config.Config) *Application {
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &Application{Logger: logger}

	// connection store
	var repo *repository.Repository
	switch cfg.StoreBackend {
	case config.StoreBackendMongo:
		mongoDB, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			log.Fatalf("Не удалось подключиться к MongoDB: %v", err)
		}
		a.closers = append(a.closers, func() { mongoDB.Close(context.Background()) })
		repo = repository.NewMongoRepository(mongoDB.Database)
	case config.StoreBackendPostgres:
		db, err := database.ConnectDB(cfg, logger)
		if err != nil {
			log.Fatalf("Не удалось подключиться к БД: %v", err)
		}
		a.closers = append(a.closers, func() { db.CloseDB() })
		repo = repository.NewRepository(db.DB)
	default:
		log.Fatalf("Неизвестное хранилище STORE_BACKEND=%q", cfg.StoreBackend)
	}

	// connection image storage
	var store storage.Storage
	switch cfg.AssetBackend {
	case config.AssetBackendMinIO:
		minioClient, err := storage.NewMinIOClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Не удалось инициализировать MinIO: %v", err)
		}
		store = minioClient
	case config.AssetBackendDisk:
		disk, err := storage.NewDiskStorage(cfg.AssetDir)
		if err != nil {
			log.Fatalf("Не удалось инициализировать каталог изображений: %v", err)
		}
		store = disk
	default:
		log.Fatalf("Неизвестное хранилище изображений ASSET_BACKEND=%q", cfg.AssetBackend)
	}

	// login throttling is optional
	limiter := service.NewNoopLoginLimiter()
	if cfg.Redis.Addr != "" {
		rdb, err := storage.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			log.Fatalf("Не удалось подключиться к Redis: %v", err)
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		limiter = service.NewRedisLoginLimiter(rdb, cfg.Redis.LoginMaxAttempts, cfg.Redis.LoginWindow)
	}

	a.Hub = realtime.NewHub(logger)
	a.closers = append(a.closers, a.Hub.Close)

	// enabling dependencies
	a.Services = service.NewService(repo, cfg, store, a.Hub, limiter, logger)

	logger.Info("application initialized",
		"store", cfg.StoreBackend,
		"assets", cfg.AssetBackend,
		"login_throttling", cfg.Redis.Addr != "")

	return a
}

// Close releases resources in reverse order of acquisition.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
