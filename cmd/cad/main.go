package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"cad-service/internal/cad/engine"
	"cad-service/internal/cad/handlers"
	"cad-service/internal/cad/repository"
	"cad-service/internal/cad/session"
	"cad-service/internal/cad/visual"
	"cad-service/internal/common/config"
	"cad-service/internal/common/middleware"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// CAD Service
// ============================================================

func main() {
	cfg := config.Load()

	var journal *repository.Journal
	if cfg.JournalPath != "" {
		db, err := repository.OpenSQLite(cfg.JournalPath)
		if err != nil {
			log.Fatalf("open journal: %v", err)
		}
		defer db.Close()

		repo := repository.New(db)
		if err := repo.Init(context.Background()); err != nil {
			log.Fatalf("init journal: %v", err)
		}
		journal = repository.NewJournal(repo)
	}

	sessions := session.NewRegistry(engine.Options{
		BooleanDeflection: cfg.BooleanDeflection,
		DefaultQuality:    cfg.DefaultQuality,
		DisplaySize:       cfg.DisplaySize,
	})
	cadHandler := handlers.NewCADHandler(sessions, journal, visual.New(cfg.DisplaySize))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go evictIdle(ctx, cadHandler, cfg.SessionIdleTTL, cfg.EvictInterval)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "CAD Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Routes
	// ============================================================

	cadHandler.Register(app)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting CAD Service on %s (env: %s)", addr, cfg.Environment)
	if cfg.JournalPath == "" {
		log.Printf("Operation journal disabled")
	} else {
		log.Printf("Operation journal: %s", cfg.JournalPath)
	}

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// evictIdle периодически удаляет сессии без обращений дольше ttl вместе с их журналами.
func evictIdle(ctx context.Context, h *handlers.CADHandler, ttl, every time.Duration) {
	if ttl <= 0 || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.SweepIdle(ttl)
		}
	}
}
