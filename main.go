package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"

	"sekolahku_backend/internals/cache"
	"sekolahku_backend/internals/configs"
	database "sekolahku_backend/internals/databases"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
	helper "sekolahku_backend/internals/helpers"
	middlewares "sekolahku_backend/internals/middlewares"
	routes "sekolahku_backend/internals/route"
)

func main() {
	configs.LoadEnv()

	app := fiber.New(fiber.Config{
		// JSON super cepat
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		ErrorHandler:            helper.ErrorHandler,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
	})

	middlewares.SetupMiddlewares(app)

	// DB connect + pool
	database.ConnectDB()
	database.TunePool(database.DB)
	if configs.DBAutoMigrate {
		if err := database.AutoMigrate(database.DB); err != nil {
			log.Fatalf("[ERROR] %v", err)
		}
	}

	// cache progress opsional; gagal konek → jalan tanpa cache
	var viewCache psvc.ViewCache
	if configs.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pc, err := cache.New(ctx, configs.RedisURL)
		cancel()
		if err != nil {
			log.Printf("[WARN] redis tidak tersedia, cache progress dimatikan: %v", err)
		} else {
			viewCache = pc
			defer pc.Close()
			log.Println("[INFO] redis cache progress aktif")
		}
	}

	routes.SetupRoutes(app, database.DB, viewCache)

	// Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := configs.GetEnv("PORT", "3000")

	go func() {
		log.Printf("[INFO] Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown + tutup pool DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if sqlDB, err := database.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
