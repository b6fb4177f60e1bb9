package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"termfolio/internal/auth"
	"termfolio/internal/handler"
	"termfolio/internal/middleware"
	"termfolio/internal/store"
)

type Deps struct {
	Store     store.Store
	KeyConfig auth.KeyConfig
	Version   string

	// GuestbookRateLimit is the number of guestbook posts allowed per
	// client IP per minute. Zero disables the limit.
	GuestbookRateLimit int

	// GuestbookLimiter overrides the limiter built from GuestbookRateLimit;
	// the caller owns and closes it.
	GuestbookLimiter *middleware.RateLimiter

	// Now overrides the server clock in tests.
	Now func() time.Time
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	versionHandler := &handler.VersionHandler{Version: deps.Version}
	r.GET("/v1/version", versionHandler.Check)

	rest := r.Group("/rest/v1")
	rest.Use(middleware.RequireAPIKey(deps.KeyConfig))

	presenceHandler := &handler.PresenceHandler{Store: deps.Store, Now: deps.Now}
	rest.GET("/presence", presenceHandler.List)
	rest.POST("/presence", presenceHandler.Upsert)
	rest.DELETE("/presence/:id", presenceHandler.Delete)

	guestbookHandler := &handler.GuestbookHandler{Store: deps.Store, Now: deps.Now}
	rest.GET("/guestbook", guestbookHandler.List)
	limiter := deps.GuestbookLimiter
	if limiter == nil && deps.GuestbookRateLimit > 0 {
		limiter = middleware.NewRateLimiter(deps.GuestbookRateLimit, time.Minute)
	}
	if limiter != nil {
		rest.POST("/guestbook", middleware.RateLimitMiddleware(limiter), guestbookHandler.Add)
	} else {
		rest.POST("/guestbook", guestbookHandler.Add)
	}
	rest.DELETE("/guestbook/:id", middleware.RequireRole(auth.RoleService), guestbookHandler.Delete)

	canvasHandler := &handler.CanvasHandler{Store: deps.Store, Now: deps.Now}
	rest.GET("/canvas_pixels", canvasHandler.List)
	rest.POST("/canvas_pixels", canvasHandler.Put)
	rest.PATCH("/canvas_pixels", canvasHandler.Clear)

	visitorHandler := &handler.VisitorHandler{Store: deps.Store, Now: deps.Now}
	rest.POST("/visitors", visitorHandler.Upsert)
	rest.GET("/visitors/:id", visitorHandler.Get)

	return r
}
