// Command server wires the room/game use-cases, the postgres-backed
// repositories, and the websocket transport into one running process,
// replacing main.go's net/http.ServeMux bootstrap with a single
// fiber.App carrying both the health endpoint and the /ws upgrade, the
// same fiber.Ctx-based style handlers/auth.go and handlers/multiplayer.go
// already used.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"quizrealm/cleanup"
	"quizrealm/config"
	"quizrealm/dispatch"
	"quizrealm/domain"
	"quizrealm/gametimer"
	"quizrealm/gormrepo"
	"quizrealm/keylock"
	"quizrealm/middleware"
	"quizrealm/ratelimit"
	"quizrealm/registry"
	"quizrealm/transport"
	"quizrealm/usecases"
)

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set")
	}

	db, err := gormrepo.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := gormrepo.Migrate(db); err != nil {
		log.Fatalf("❌ %v", err)
	}

	reg := registry.New()
	quizRepo := gormrepo.NewQuizRepo(db)
	sessionRepo := gormrepo.NewSessionRepo(db)
	userRepo := gormrepo.NewUserRepo(db)

	roomUC := usecases.NewRoomUseCases(reg, quizRepo)
	roomUC.JoinLocks = keylock.NewWithTTL(cfg.LockTimeout)
	roomUC.MaxPlayers = cfg.MaxPlayers
	roomUC.MaxSpectators = cfg.MaxSpectators
	roomUC.MaxQuestions = cfg.MaxQuestions
	roomUC.TokenTTL = cfg.TokenTTL

	gameUC := usecases.NewGameUseCases(reg, quizRepo, sessionRepo)
	gameUC.UserRepo = userRepo
	gameUC.PendingAnswers = keylock.NewWithTTL(cfg.LockTimeout)
	gameUC.PendingArchives = keylock.NewWithTTL(cfg.LockTimeout)

	limiter := ratelimit.New()
	hub := transport.NewHub()
	disp := dispatch.NewDispatcher(roomUC, gameUC, limiter, hub, cfg.HostGrace, cfg.PlayerGrace)

	gameUC.Timer = gametimer.New(
		func(pin domain.PIN, tick gametimer.Tick) {
			hub.BroadcastToRoom(pin, dispatch.OutTimerTick, map[string]interface{}{"remainingMs": tick.RemainingMs})
		},
		func(pin domain.PIN, sync gametimer.Sync) {
			hub.BroadcastToRoom(pin, dispatch.OutTimerStarted, map[string]interface{}{
				"durationMs": sync.Duration.Milliseconds(),
				"remainingMs": sync.RemainingMs,
			})
		},
	)

	cleanupSvc := cleanup.New(cleanup.Config{
		PlayerGrace:      cfg.PlayerGrace,
		HostGrace:        cfg.HostGrace,
		EmptyRoomTimeout: cfg.EmptyRoomTimeout,
		IdleRoomTimeout:  cfg.IdleRoomTimeout,
		Interval:         cfg.CleanupInterval,
	}, reg, gameUC, gameUC.Timer, limiter, roomUC.JoinLocks, hub)
	cleanupSvc.Start()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(middleware.IdentityMiddleware(cfg.JWTSecret))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "rooms": reg.Count()})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("hostIdentity", middleware.Identity(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		identity, _ := conn.Locals("hostIdentity").(middleware.HostIdentity)
		connectionID := uuid.NewString()

		wsConn := transport.NewConnection(connectionID, conn)
		hub.Register(wsConn)
		go wsConn.WritePump()

		dispatchIdentity := dispatch.Identity{UserID: identity.UserID, IsGuest: identity.IsGuest}
		wsConn.ReadPump(func(env transport.Envelope) {
			disp.HandleInbound(context.Background(), connectionID, dispatchIdentity, env)
		})

		hub.Unregister(connectionID)
		limiter.DropConnection(connectionID)
		if err := roomUC.HandleDisconnect(context.Background(), connectionID); err != nil {
			log.Printf("⚠️  server: disconnect handling failed for %s: %v", connectionID, err)
		}
	}))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ server failed: %v", err)
		}
	}()
	log.Printf("🚀 quizrealm listening on :%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 shutting down, archiving live rooms...")
	cleanupSvc.Stop()
	gameUC.Timer.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, room := range reg.All() {
		if _, err := gameUC.SaveInterruptedGame(shutdownCtx, room.PIN, "server_shutdown"); err != nil {
			log.Printf("⚠️  server: failed to archive room %s on shutdown: %v", room.PIN, err)
		}
	}

	_ = app.ShutdownWithContext(shutdownCtx)
}
