package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // loads .env files in development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/encorehq/encore/internal/config"
    "github.com/encorehq/encore/internal/database"
    "github.com/encorehq/encore/internal/handler"
    "github.com/encorehq/encore/internal/middleware"
    "github.com/encorehq/encore/internal/mq"
    "github.com/encorehq/encore/internal/queue"
    "github.com/encorehq/encore/internal/repository"
    "github.com/encorehq/encore/internal/router"
    activity "github.com/encorehq/encore/internal/service"
    "github.com/encorehq/encore/internal/suggest"
    "github.com/encorehq/encore/internal/ws"
)

func main() {
    // Load .env if present; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer func() { _ = db.Close() }()

    // Redis powers rate limiting and the response cache.  A nil client
    // disables both; the service still works without it.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable: rate limiting and response cache disabled")
    }

    // Repositories.
    eventRepo := repository.NewEventRepo(db)
    guestRepo := repository.NewGuestRepo(db)
    catalogRepo := repository.NewCatalogRepo(db)
    requestRepo := repository.NewRequestRepo(db)

    // Queue store: MySQL by default, in-memory for pop-up events that
    // accept losing the queue on restart.
    var store queue.Store = requestRepo
    if cfg.StoreDriver == "memory" {
        store = queue.NewMemoryStore()
        log.Println("queue store: memory (requests are not persisted)")
    }

    hub := ws.NewHub()
    feed := activity.NewFeed()
    engine := queue.New(store, hub, feed)
    ranker := suggest.NewRanker(catalogRepo)

    // Handlers.
    authHandler := handler.NewAuthHandler(eventRepo, guestRepo, cfg)
    guestHandler := handler.NewGuestHandler(engine, eventRepo, catalogRepo)
    operatorHandler := handler.NewOperatorHandler(engine, eventRepo, hub)
    publicHandler := handler.NewPublicHandler(engine, eventRepo)
    catalogHandler := handler.NewCatalogHandler(catalogRepo)
    suggestionHandler := handler.NewSuggestionHandler(ranker)
    wsHandler := handler.NewWSHandler(hub, eventRepo)

    // Middleware backed by Redis.
    limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, authHandler, limiter)
    router.RegisterPublic(e, publicHandler, catalogHandler, wsHandler, cache)
    router.RegisterGuest(e, guestHandler, catalogHandler, suggestionHandler, cfg.JWTSecret, limiter, cache)
    router.RegisterOperator(e, operatorHandler, cfg.JWTSecret)

    // Background consumer applying popularity increments from the broker.
    go mq.StartCatalogConsumer(catalogRepo)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s store=%s)", addr, cfg.Env, cfg.StoreDriver)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
