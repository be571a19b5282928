package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kronos/internal/service"
)

// StatsHandler serves the public read-only user endpoints.  The game
// counters and boards they expose have no backing tables, so they are
// always zero and empty.
type StatsHandler struct {
	Venue   *service.Venue
	Timeout time.Duration
}

func NewStatsHandler(v *service.Venue, timeout time.Duration) *StatsHandler {
	return &StatsHandler{Venue: v, Timeout: timeout}
}

type userStats struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Ties     int    `json:"ties"`
}

// User handles GET /user/id=:id.
func (h *StatsHandler) User(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	u, err := h.Venue.User(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, userStats{ID: u.ID, Username: u.Username, Email: u.Email})
}

// Boards handles GET /user/board/id=:id and returns the index→board map.
func (h *StatsHandler) Boards(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	if _, err := h.Venue.User(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]uint64{})
}
