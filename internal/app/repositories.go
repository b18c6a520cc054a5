package app

import (
	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/config"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/queue"
	queue_memory "github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/queue/memory"
	queue_redis "github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/queue/redis"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/ratelimiter"
	limiter_memory "github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/ratelimiter/memory"
	limiter_redis "github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/ratelimiter/redis"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/postgres"
	storage_redis "github.com/simatecve/contact-pulse-engine-sub000/internal/storage/redis"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/sqlite"
)

// Repositories agrupa todo lo que depende del driver de storage elegido.
// Vive en el composition root: los drivers devuelven errores del paquete
// storage y el armado queda de este lado para no cerrar un ciclo de imports.
type Repositories struct {
	Connection      storage.ConnectionRepository
	WebhookEndpoint storage.WebhookEndpointRepository
	User            storage.UserRepository
	EventLog        storage.EventLogRepository

	RedisClient *storage_redis.Client // nil si Redis está deshabilitado
	LockManager *storage_redis.LockManager
	EventQueue  queue.Queue
	RateLimiter ratelimiter.Limiter
}

func NewRepositories(cfg config.Config, log *zap.Logger) (*Repositories, error) {
	log.Info("inicializando repositorios", zap.String("driver", cfg.Storage.Driver))

	repos := &Repositories{}

	if cfg.Redis.Enabled {
		redisClient, err := storage_redis.New(cfg.Redis, log)
		if err != nil {
			log.Error("error al conectar con Redis", zap.Error(err))
			return nil, err
		}
		repos.RedisClient = redisClient
		repos.LockManager = storage_redis.NewLockManager(redisClient, log)
		repos.EventQueue = queue_redis.NewQueue(redisClient.RDB(), "notifier:events")
		repos.RateLimiter = limiter_redis.NewLimiter(redisClient.RDB())
		log.Info("redis habilitado: cola, limiter y locks distribuidos")
	} else {
		log.Info("redis deshabilitado: implementaciones en memoria")
		repos.EventQueue = queue_memory.NewQueue(10000)
		repos.RateLimiter = limiter_memory.NewLimiter()
	}

	switch cfg.Storage.Driver {
	case "sqlite", "":
		db, err := sqlite.New(cfg.Storage.DataDir, log)
		if err != nil {
			log.Error("error al conectar con SQLite", zap.Error(err))
			return nil, err
		}
		repos.Connection = sqlite.NewConnectionRepository(db)
		repos.WebhookEndpoint = sqlite.NewWebhookEndpointRepository(db)
		repos.User = sqlite.NewUserRepository(db)
		repos.EventLog = sqlite.NewEventLogRepository(db)
		log.Info("repositorios SQLite listos", zap.String("data_dir", cfg.Storage.DataDir))
		return repos, nil

	case "postgres":
		db, err := postgres.New(cfg.DB, log)
		if err != nil {
			log.Error("error al conectar con PostgreSQL", zap.Error(err))
			return nil, err
		}
		repos.Connection = postgres.NewConnectionRepository(db)
		repos.WebhookEndpoint = postgres.NewWebhookEndpointRepository(db)
		repos.User = postgres.NewUserRepository(db)
		repos.EventLog = postgres.NewEventLogRepository(db)
		log.Info("repositorios PostgreSQL listos")
		return repos, nil

	default:
		log.Error("driver de storage desconocido", zap.String("driver", cfg.Storage.Driver))
		return nil, &ErrUnknownDriver{Driver: cfg.Storage.Driver}
	}
}

type ErrUnknownDriver struct {
	Driver string
}

func (e *ErrUnknownDriver) Error() string {
	return "storage: driver desconocido: " + e.Driver
}
