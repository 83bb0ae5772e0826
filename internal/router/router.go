package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"weekplan/backend/internal/handler"
	"weekplan/backend/internal/middleware"
	"weekplan/backend/internal/service"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth     *handler.AuthHandler
	Planner  *handler.PlannerHandler
	WorkTime *handler.WorkTimeHandler
	Export   *handler.ExportHandler
}

type Options struct {
	CORSOrigins []string
	// RateLimit is applied to /api only. Empty disables limiting.
	RateLimit string
	Metrics   http.Handler
}

func New(authService *service.AuthService, h Handlers, opts Options) (*gin.Engine, error) {
	rateLimit, err := middleware.RateLimit(opts.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(opts.CORSOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	api := engine.Group("/api")
	api.Use(rateLimit)

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	weeks := api.Group("/weeks/:year/:week")
	weeks.Use(middleware.Auth(authService))
	weeks.GET("", h.Planner.GetWeek)
	weeks.POST("/save", h.Planner.Save)
	weeks.GET("/export", h.Export.Export)
	weeks.POST("/paste", h.Planner.Paste)

	weeks.DELETE("/menu", h.Planner.CloseMenu)
	weeks.POST("/menu/copy", h.Planner.MenuCopy)
	weeks.POST("/menu/delete", h.Planner.MenuDelete)

	weeks.POST("/events", h.Planner.CreateEvent)
	events := weeks.Group("/events/:id")
	events.DELETE("", h.Planner.DeleteEvent)
	events.POST("/menu", h.Planner.OpenMenu)
	events.POST("/drag/start", h.Planner.DragStart)
	events.POST("/drag/over", h.Planner.DragOver)
	events.POST("/drag/drop", h.Planner.DragDrop)
	events.POST("/drag/cancel", h.Planner.DragCancel)
	events.POST("/resize/start", h.Planner.ResizeStart)
	events.POST("/resize/move", h.Planner.ResizeMove)
	events.POST("/resize/end", h.Planner.ResizeEnd)
	events.POST("/resize/cancel", h.Planner.ResizeCancel)

	workTimes := api.Group("/worktimes")
	workTimes.Use(middleware.Auth(authService))
	workTimes.GET("", h.WorkTime.List)
	workTimes.PUT("/:date", h.WorkTime.Put)

	return engine, nil
}
