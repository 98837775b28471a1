package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // Echo web framework used for routing

    "github.com/encorehq/encore/internal/handler"    // handlers implementing the endpoints
    "github.com/encorehq/encore/internal/middleware" // JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Load balancers and monitoring systems probe this endpoint to
    // verify that the service is up.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the token-issuing endpoints under /v1/auth.
// Both are unauthenticated by nature: joining trades a join code for a
// GUEST token and the operator login trades the event's secret code for
// an OPERATOR token.  The limiter middleware (when non-nil) is applied
// so credential guessing is throttled.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
    g := e.Group("/v1/auth")
    if limiter != nil {
        g.Use(limiter)
    }
    g.POST("/join", a.GuestJoin)
    g.POST("/operator", a.OperatorLogin)
}

// RegisterPublic registers the unauthenticated read surface: the queue
// snapshot, the display configuration, catalog search and the fanout
// websocket.  Display clients run entirely on these routes.  The cache
// middleware (when non-nil) is applied to catalog search only; queue
// state is never cached because the websocket keeps clients current.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cat *handler.CatalogHandler, wsh *handler.WSHandler, cache echo.MiddlewareFunc) {
    e.GET("/v1/events/:id/queue", p.Snapshot)
    e.GET("/v1/events/:id/display", p.Display)
    e.GET("/v1/events/:id/ws", wsh.Subscribe)
    if cache != nil {
        e.GET("/v1/songs", cat.Search, cache)
    } else {
        e.GET("/v1/songs", cat.Search)
    }
}

// RegisterGuest registers guest-scoped endpoints under /v1.  All routes
// require a valid JWT with the GUEST role.  Guests submit requests,
// inspect their own submissions, cancel what they no longer want to
// sing, like catalog songs and fetch personalized suggestions.  The
// limiter is applied to submission so one device cannot hammer the
// queue; the cache is applied to suggestions, which tolerate a short
// staleness window.
func RegisterGuest(e *echo.Echo, h *handler.GuestHandler, cat *handler.CatalogHandler, sug *handler.SuggestionHandler, jwtSecret string, limiter, cache echo.MiddlewareFunc) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("GUEST"),
    )
    if limiter != nil {
        g.POST("/requests", h.Submit, limiter)
    } else {
        g.POST("/requests", h.Submit)
    }
    g.GET("/requests", h.ListMine)
    g.DELETE("/requests/:id", h.Cancel)
    g.POST("/songs/:id/like", cat.ToggleLike)
    if cache != nil {
        g.GET("/suggestions", sug.List, cache)
    } else {
        g.GET("/suggestions", sug.List)
    }
}

// RegisterOperator registers dashboard endpoints under /v1/operator.
// All routes require a valid JWT with the OPERATOR role; the token is
// scoped to a single event, so no event ID appears in these paths.
func RegisterOperator(e *echo.Echo, h *handler.OperatorHandler, jwtSecret string) {
    g := e.Group(
        "/v1/operator",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("OPERATOR"),
    )
    g.GET("/queue", h.Queue)
    g.PUT("/queue/order", h.Reorder)
    g.POST("/requests/:id/status", h.Transition)
    g.PUT("/display", h.UpdateDisplay)
}
