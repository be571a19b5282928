package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kronos/internal/handler"    // venue handlers
	"github.com/iliyamo/kronos/internal/middleware" // JWT middleware
)

// RegisterVenue registers the scheduling operations and lookups under /v1.
// All routes require a valid JWT; any role may call them.
func RegisterVenue(e *echo.Echo, h *handler.VenueHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	v := h.Venue

	// ---- Operations ----
	g.POST("/performances", h.CreatePerformance)
	g.POST("/checkins", h.CheckIn)
	g.POST("/checkouts", h.CheckOut)
	g.POST("/storage", h.StoreItem)
	g.POST("/storage/:id/release", h.ReleaseItem)

	// ---- Lookups ----
	g.GET("/members/:id", handler.ByID(h, "member", v.Member))
	g.GET("/stages/:id", handler.ByID(h, "stage", v.Stage))
	g.GET("/performers/:id", handler.ByID(h, "performer", v.Performer))
	g.GET("/performances/:id", handler.ByID(h, "performance", v.Performance))
	g.GET("/checkins/:id", handler.ByID(h, "check-in", v.CheckInByID))
	g.GET("/checkouts/:id", handler.ByID(h, "check-out", v.CheckOutByID))
	g.GET("/boxes/:id", handler.ByID(h, "box", v.Box))
	g.GET("/storage/:id", handler.ByID(h, "storage", v.StorageByID))

	// ---- Back-references ----
	g.GET("/members/:id/performers", handler.ByID(h, "member", v.PerformersForMember))
	g.GET("/members/:id/checkins", handler.ByID(h, "member", v.CheckInsForMember))
	g.GET("/members/:id/checkouts", handler.ByID(h, "member", v.CheckOutsForMember))
	g.GET("/performers/:id/performances", handler.ByID(h, "performer", v.PerformancesForPerformer))
	g.GET("/stages/:id/performances", handler.ByID(h, "stage", v.PerformancesForStage))
	g.GET("/stages/:id/boxes", handler.ByID(h, "stage", v.BoxesForStage))
	g.GET("/performances/:id/checkins", handler.ByID(h, "performance", v.CheckInsForPerformance))
	g.GET("/checkins/:id/storage", handler.ByID(h, "check-in", v.StorageForCheckIn))
	g.GET("/boxes/:id/storage", handler.ByID(h, "box", v.StorageForBox))
}
