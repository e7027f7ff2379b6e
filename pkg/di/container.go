package di

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"eventfaces/application/serviceimpl"
	"eventfaces/domain/repositories"
	"eventfaces/domain/services"
	"eventfaces/infrastructure/faceapi"
	"eventfaces/infrastructure/memstore"
	"eventfaces/infrastructure/postgres"
	"eventfaces/infrastructure/redis"
	"eventfaces/infrastructure/websocket"
	"eventfaces/infrastructure/worker"
	"eventfaces/interfaces/api/handlers"
	"eventfaces/pkg/clustering"
	"eventfaces/pkg/config"
	"eventfaces/pkg/eventlock"
	"eventfaces/pkg/logger"
	"eventfaces/pkg/scheduler"
)

type Container struct {
	// Configuration
	Config *config.Config

	// Infrastructure
	DB           *gorm.DB // nil with DB_DRIVER=memory
	RedisClient  *goredis.Client
	Rooms        *websocket.RoomManager
	JobScheduler *scheduler.GocronScheduler
	Locker       eventlock.Locker
	Notifier     services.Notifier
	Engine       *clustering.Engine

	// Repositories
	EventRepository  repositories.EventRepository
	PhotoRepository  repositories.PhotoRepository
	FaceRepository   repositories.FaceRepository
	PersonRepository repositories.PersonRepository

	// Services
	EventService      services.EventService
	ProcessingService services.ProcessingService
	PersonService     services.PersonService
	FaceService       services.FaceService

	// Workers
	FaceWorker *worker.FaceWorker

	// Clients. FaceClient is nil when face recognition is disabled.
	FaceClient *faceapi.FaceClient

	cancelForwarder context.CancelFunc
}

func NewContainer(cfg *config.Config) *Container {
	return &Container{Config: cfg}
}

func (c *Container) Initialize() error {
	if err := c.initConfig(); err != nil {
		return err
	}

	if err := c.initInfrastructure(); err != nil {
		return err
	}

	if err := c.initRepositories(); err != nil {
		return err
	}

	if err := c.initServices(); err != nil {
		return err
	}

	if err := c.initScheduler(); err != nil {
		return err
	}

	return c.initWorkers()
}

func (c *Container) initConfig() error {
	if c.Config == nil {
		return fmt.Errorf("container requires a config")
	}
	cfg := c.Config
	logger.Startup("config_loaded", "Configuration loaded", map[string]interface{}{
		"env":             cfg.App.Env,
		"db_driver":       cfg.Database.Driver,
		"lock_backend":    cfg.Lock.Backend,
		"face_api":        cfg.FaceAPI.Enabled,
		"match_threshold": cfg.Clustering.MatchThreshold,
		"merge_threshold": cfg.Clustering.MergeThreshold(),
	})
	return nil
}

func (c *Container) initInfrastructure() error {
	if c.Config.Database.Driver == "postgres" {
		db, err := postgres.NewDatabase(c.Config.Database, c.Config.App.Env == "production")
		if err != nil {
			return err
		}
		c.DB = db
		logger.Startup("db_connected", "Database connected", nil)

		if err := postgres.Migrate(db); err != nil {
			return err
		}
		logger.Startup("db_migrated", "Database migrated", nil)
	} else {
		logger.StartupWarn("db_memory", "Using the in-memory store, data is lost on restart", nil)
	}

	if c.Config.Redis.Enabled {
		rdb, err := redis.NewClient(c.Config.Redis)
		if err != nil {
			return err
		}
		c.RedisClient = rdb
		logger.Startup("redis_connected", "Redis connected", map[string]interface{}{"addr": c.Config.Redis.Addr()})
	}

	// Per-event lock
	if c.Config.Lock.Backend == "redis" {
		c.Locker = redis.NewEventLocker(c.RedisClient, c.Config.Lock.TTL)
	} else {
		c.Locker = eventlock.NewLocal()
	}

	// Progress fan-out. With redis every replica forwards the bus into its own rooms.
	c.Rooms = websocket.NewRoomManager(64)
	c.Notifier = c.Rooms
	if c.RedisClient != nil {
		bus := redis.NewProgressBus(c.RedisClient, c.Config.Redis.Channel)
		ctx, cancel := context.WithCancel(context.Background())
		if err := bus.StartForwarder(ctx, func(msg websocket.Message) { c.Rooms.Broadcast(msg) }); err != nil {
			cancel()
			return err
		}
		c.cancelForwarder = cancel
		c.Notifier = bus
	}

	engine, err := clustering.NewEngine(clustering.Config{
		MatchThreshold: c.Config.Clustering.MatchThreshold,
		MergeThreshold: c.Config.Clustering.MergeThreshold(),
	})
	if err != nil {
		return fmt.Errorf("invalid clustering config: %w", err)
	}
	c.Engine = engine

	if c.Config.FaceAPI.Enabled {
		c.FaceClient = faceapi.NewFaceClient(c.Config.FaceAPI.BaseURL, c.Config.FaceAPI.APIKey, c.Config.FaceAPI.Timeout)
		if !c.FaceClient.IsAvailable(context.Background()) {
			logger.StartupWarn("face_api_unreachable", "Face API not reachable yet, photos stay pending until it is", map[string]interface{}{
				"url": c.Config.FaceAPI.BaseURL,
			})
		} else {
			logger.Startup("face_api_connected", "Face API connected", nil)
		}
	} else {
		logger.StartupWarn("face_api_disabled", "Face recognition disabled", nil)
	}

	return nil
}

func (c *Container) initRepositories() error {
	if c.DB == nil {
		store := memstore.New()
		c.EventRepository = store.Events()
		c.PhotoRepository = store.Photos()
		c.FaceRepository = store.Faces()
		c.PersonRepository = store.Persons()
		return nil
	}

	c.EventRepository = postgres.NewEventRepository(c.DB)
	c.PhotoRepository = postgres.NewPhotoRepository(c.DB)
	c.FaceRepository = postgres.NewFaceRepository(c.DB)
	c.PersonRepository = postgres.NewPersonRepository(c.DB)
	return nil
}

// provider returns the embedding provider or a true nil interface when disabled
func (c *Container) provider() services.EmbeddingProvider {
	if c.FaceClient == nil {
		return nil
	}
	return c.FaceClient
}

func (c *Container) initServices() error {
	cl := c.Config.Clustering

	c.ProcessingService = serviceimpl.NewProcessingService(
		c.EventRepository,
		c.PhotoRepository,
		c.FaceRepository,
		c.PersonRepository,
		c.provider(),
		c.Engine,
		c.Locker,
		c.Notifier,
		serviceimpl.ProcessingConfig{
			MinConfidence:     cl.MinConfidence,
			MaxRetries:        cl.MaxRetries,
			DetectConcurrency: cl.DetectConcurrency,
			LockTimeout:       cl.LockTimeout,
			RetryBackoff:      cl.RetryBackoff,
		},
	)

	c.FaceService = serviceimpl.NewFaceService(c.EventRepository, c.FaceRepository, c.provider(), cl.MatchThreshold)

	c.PersonService = serviceimpl.NewPersonService(
		c.EventRepository,
		c.FaceRepository,
		c.PersonRepository,
		c.Engine,
		c.Locker,
		c.Notifier,
		cl.LockTimeout,
	)

	// Uploads wake the worker when it runs
	c.EventService = serviceimpl.NewEventService(c.EventRepository, c.PhotoRepository, func(eventID uuid.UUID) {
		if c.FaceWorker != nil {
			c.FaceWorker.Trigger(eventID)
		}
	})

	logger.Startup("services_initialized", "Services initialized", map[string]interface{}{
		"face_processing": c.ProcessingService.Enabled(),
	})
	return nil
}

func (c *Container) initScheduler() error {
	c.JobScheduler = scheduler.NewJobScheduler()
	if !c.ProcessingService.Enabled() {
		return nil
	}

	if err := scheduler.RegisterFaceJobs(
		c.JobScheduler,
		c.EventService,
		c.ProcessingService,
		c.Config.Clustering.MergeCron,
		c.Config.Worker.StuckMinutes,
	); err != nil {
		return err
	}

	c.JobScheduler.Start()
	return nil
}

func (c *Container) initWorkers() error {
	if !c.ProcessingService.Enabled() || !c.Config.Worker.Enabled {
		logger.StartupWarn("face_worker_disabled", "Face worker not started", nil)
		return nil
	}

	c.FaceWorker = worker.NewFaceWorker(c.ProcessingService, c.FaceClient.Health, worker.FaceWorkerConfig{
		PollInterval:  c.Config.Worker.PollInterval,
		MaxConcurrent: 2,
		BatchSize:     c.Config.Worker.BatchSize,
	})
	c.FaceWorker.Start()
	return nil
}

// HandlerServices returns the services used by the HTTP handlers
func (c *Container) HandlerServices() *handlers.Services {
	return &handlers.Services{
		EventService:      c.EventService,
		ProcessingService: c.ProcessingService,
		PersonService:     c.PersonService,
		FaceService:       c.FaceService,
	}
}

// HealthHandler wires a probe per configured dependency
func (c *Container) HealthHandler() *handlers.HealthHandler {
	checks := []handlers.HealthCheck{{Name: "database", Critical: true}}
	if c.DB != nil {
		checks[0].Check = func(ctx context.Context) error { return postgres.Ping(ctx, c.DB) }
	} else {
		checks[0].Check = func(context.Context) error { return nil }
	}

	redisCheck := handlers.HealthCheck{Name: "redis", Critical: c.Config.Lock.Backend == "redis"}
	if c.RedisClient != nil {
		redisCheck.Check = func(ctx context.Context) error { return c.RedisClient.Ping(ctx).Err() }
	}
	checks = append(checks, redisCheck)

	faceCheck := handlers.HealthCheck{Name: "face_api"}
	if c.FaceClient != nil {
		faceCheck.Check = c.FaceClient.Health
	}
	checks = append(checks, faceCheck)

	var workerStats func() map[string]interface{}
	if c.FaceWorker != nil {
		workerStats = c.FaceWorker.GetStats
	}
	return handlers.NewHealthHandler(checks, workerStats)
}

func (c *Container) Cleanup() error {
	logger.Startup("cleanup_started", "Starting cleanup", nil)

	if c.FaceWorker != nil {
		c.FaceWorker.Stop()
	}

	if c.JobScheduler != nil && c.JobScheduler.IsRunning() {
		c.JobScheduler.Stop()
	}

	if c.cancelForwarder != nil {
		c.cancelForwarder()
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.StartupWarn("redis_close_failed", "Failed to close Redis connection", map[string]interface{}{"error": err.Error()})
		}
	}

	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.StartupWarn("db_close_failed", "Failed to close database connection", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	logger.Startup("cleanup_complete", "Cleanup completed", nil)
	return nil
}
