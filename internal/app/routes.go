package app

import (
	"github.com/fieldtrace/core/internal/middleware"
	"github.com/fieldtrace/core/internal/modules/admin"
	"github.com/fieldtrace/core/internal/modules/gateway/live"
	"github.com/fieldtrace/core/internal/modules/journey"
	"github.com/fieldtrace/core/internal/modules/monitor"
	"github.com/fieldtrace/core/internal/modules/notify"
	pkgredis "github.com/fieldtrace/core/internal/pkg/redis"
	"github.com/fieldtrace/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v2"

func (a *App) registerRoutes(rc *pkgredis.Client) *monitor.Sweep {
	r := a.router
	db := a.db
	authMW := middleware.Auth()
	adminMW := middleware.AdminOnly()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Shared services
	journeySvc := journey.NewService(db)
	monitorSvc := monitor.NewService(db, journeySvc, a.cfg.Monitor)
	dispatcher := notify.NewDispatcher(db, notify.Providers(a.cfg.Push.NativeServerURL), a.logger.Named("notify"))
	sweep := monitor.NewSweep(db, journeySvc, monitorSvc, a.hub, dispatcher, rc, a.cfg.Monitor, a.logger.Named("sweep"))
	adminSvc := admin.NewService(journeySvc, monitorSvc, a.hub, a.cfg.Monitor)

	// Device-reported app state flows from the live gateway onto the
	// monitor row so the admin view survives a disconnect.
	a.hub.OnAppState(func(workerID, state string) {
		_ = monitorSvc.RecordAppState(workerID, state)
	})

	// Root-level endpoints
	root := r.Group("")
	live.RegisterRoutes(root, a.hub)

	// Versioned API
	api := r.Group(apiPrefix)
	journey.NewHandler(journeySvc).RegisterRoutes(api, authMW)
	monitor.NewHandler(monitorSvc, sweep).RegisterRoutes(api, authMW, adminMW)
	notify.NewHandler(dispatcher).RegisterRoutes(api, authMW)
	admin.NewHandler(adminSvc).RegisterRoutes(api, adminMW)

	// Cron job list for the dashboard
	api.GET("/cron", adminMW, func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})

	return sweep
}
