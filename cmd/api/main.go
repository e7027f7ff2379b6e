package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"eventfaces/interfaces/api/handlers"
	"eventfaces/interfaces/api/middleware"
	"eventfaces/interfaces/api/routes"
	"eventfaces/pkg/config"
	"eventfaces/pkg/di"
	"eventfaces/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.LogDir, cfg.App.Console); err != nil {
		fmt.Printf("Warning: Failed to initialize logger: %v\n", err)
	}
	logger.Startup("logger_init", "Logger initialized", map[string]interface{}{"dir": cfg.App.LogDir})

	container := di.NewContainer(cfg)
	if err := container.Initialize(); err != nil {
		logger.StartupError("container_init_failed", "Failed to initialize container", err, nil)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		AppName:      cfg.App.Name,
		BodyLimit:    12 * 1024 * 1024, // selfie uploads
	})

	setupGracefulShutdown(app, container)

	app.Use(middleware.RecoverMiddleware())
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CorsMiddleware())

	h := handlers.NewHandlers(container.HandlerServices(), container.HealthHandler())
	routes.SetupRoutes(app, h, cfg, container.Rooms)

	port := cfg.App.Port
	logger.Startup("server_starting", "Server starting", map[string]interface{}{
		"port":        port,
		"environment": cfg.App.Env,
		"health":      fmt.Sprintf("http://localhost:%s/health", port),
		"api":         fmt.Sprintf("http://localhost:%s/api/v1", port),
		"websocket":   fmt.Sprintf("ws://localhost:%s/ws?room=<event_id>", port),
	})

	if err := app.Listen(":" + port); err != nil {
		logger.StartupError("server_failed", "Server failed to start", err, nil)
		os.Exit(1)
	}
}

func setupGracefulShutdown(app *fiber.App, container *di.Container) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Startup("shutdown_started", "Gracefully shutting down", nil)

		if err := app.Shutdown(); err != nil {
			logger.StartupError("server_shutdown_failed", "Error shutting down server", err, nil)
		}
		if err := container.Cleanup(); err != nil {
			logger.StartupError("cleanup_failed", "Error during cleanup", err, nil)
		}

		logger.Startup("shutdown_complete", "Shutdown complete", nil)
		logger.Default().Close()
		os.Exit(0)
	}()
}
