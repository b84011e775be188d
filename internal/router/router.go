// Package router wires the HTTP routes. Every /api route passes through
// the Authenticate middleware, which resolves a session cookie or bearer
// token into an identity without rejecting anything; the Require* gates on
// each group do the rejecting.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/minsu-dev/factory-ops/internal/handler"
	"github.com/minsu-dev/factory-ops/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	// The deployed front end probes /ping; keep both.
	e.GET("/ping", handler.Health)
}

// RegisterAuth mounts registration, login and the admin account console.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler) {
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.GET("/check-admin", a.AdminCheck)

	g.GET("/me", a.Me, middleware.RequireLogin())

	admin := g.Group("/admin", middleware.RequireAdmin())
	admin.GET("/users", a.ListUsers)
	admin.GET("/pending", a.Pending)
	admin.POST("/approve", a.Approve)
	admin.POST("/reject", a.Reject)
	admin.PUT("/permissions", a.UpdatePermissions)
}

// RegisterInventory mounts the item ledger routes behind the inventory
// permission.
func RegisterInventory(g *echo.Group, h *handler.InventoryHandler) {
	inv := g.Group("/inventory", middleware.RequirePermission("inventory"))
	inv.GET("", h.List)
	inv.POST("", h.Create)
	inv.PUT("/:id", h.Update)
	inv.DELETE("/:id", h.Delete)
}

// RegisterCalendar mounts the event routes behind the calendar permission.
func RegisterCalendar(g *echo.Group, h *handler.CalendarHandler) {
	cal := g.Group("/calendar", middleware.RequirePermission("calendar"))
	cal.GET("/events", h.List)
	cal.POST("/events", h.Create)
	cal.PUT("/events/:id", h.Update)
	cal.DELETE("/events/:id", h.Delete)
}

// RegisterAttendance mounts clock-in/out for holders of the attendance
// permission and the listing/correction console for admins.
func RegisterAttendance(g *echo.Group, h *handler.AttendanceHandler) {
	att := g.Group("/attendance", middleware.RequirePermission("attendance"))
	att.GET("/status", h.Status)
	att.POST("/check-in", h.CheckIn)
	att.POST("/check-out", h.CheckOut)
	att.GET("/all", h.ListAll)

	admin := g.Group("/attendance", middleware.RequireAdmin())
	admin.GET("/summary", h.Summary)
	admin.PUT("/:id", h.Edit)
}

// RegisterOptions mounts the dropdown vocabulary: reads for any logged-in
// user, mutations for admins.
func RegisterOptions(g *echo.Group, h *handler.OptionsHandler) {
	opts := g.Group("/options")
	opts.GET("", h.List, middleware.RequireLogin())
	opts.POST("", h.Create, middleware.RequireAdmin())
	opts.DELETE("/:id", h.Delete, middleware.RequireAdmin())
}

// RegisterLogs mounts the audit log listing behind the logs permission.
func RegisterLogs(g *echo.Group, h *handler.LogsHandler) {
	g.GET("/logs", h.List, middleware.RequirePermission("logs"))
}

// RegisterBackup mounts the admin export/import endpoints.
func RegisterBackup(g *echo.Group, h *handler.BackupHandler) {
	b := g.Group("/backup", middleware.RequireAdmin())
	b.GET("/export", h.Export)
	b.POST("/import", h.Import)
}

// RegisterHolidays mounts the public holiday proxy. No gate: the calendar
// renders holidays before login.
func RegisterHolidays(g *echo.Group, h *handler.HolidaysHandler) {
	g.GET("/holidays/:year", h.List)
}

// RegisterBot mounts the KakaoTalk skill webhook. The chat platform cannot
// log in; the endpoint is read-only by construction.
func RegisterBot(g *echo.Group, h *handler.BotHandler) {
	g.POST("/bot", h.Webhook)
}
