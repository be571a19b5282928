package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kronos/internal/service"
)

// VenueHandler exposes the scheduling operations and the read-only
// lookups.  All routes sit behind JWTAuth.
type VenueHandler struct {
	Venue   *service.Venue
	Timeout time.Duration
}

func NewVenueHandler(v *service.Venue, timeout time.Duration) *VenueHandler {
	if v == nil {
		panic("nil venue passed to NewVenueHandler")
	}
	return &VenueHandler{Venue: v, Timeout: timeout}
}

type performanceReq struct {
	PerformerID uint64    `json:"performer_id"`
	StageID     *uint64   `json:"stage_id"`
	When        time.Time `json:"when"`
	Duration    int       `json:"duration"`
}

// CreatePerformance handles POST /v1/performances.
func (h *VenueHandler) CreatePerformance(c echo.Context) error {
	var req performanceReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if !validID(req.PerformerID) || req.When.IsZero() {
		return badRequest(c, "performer_id and when are required")
	}
	if !validRef(req.StageID) {
		return badRequest(c, "invalid stage_id")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	p, err := h.Venue.CreatePerformance(ctx, req.PerformerID, req.When, req.Duration, req.StageID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

type attendanceReq struct {
	MemberID      uint64 `json:"member_id"`
	PerformanceID uint64 `json:"performance_id"`
}

func bindAttendance(c echo.Context) (attendanceReq, bool) {
	var req attendanceReq
	if err := c.Bind(&req); err != nil || !validID(req.MemberID) || !validID(req.PerformanceID) {
		return req, false
	}
	return req, true
}

// CheckIn handles POST /v1/checkins.
func (h *VenueHandler) CheckIn(c echo.Context) error {
	req, ok := bindAttendance(c)
	if !ok {
		return badRequest(c, "member_id and performance_id are required")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	ci, err := h.Venue.CheckIn(ctx, req.MemberID, req.PerformanceID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, ci)
}

// CheckOut handles POST /v1/checkouts.  The response lists the storage
// records the check-out released.
func (h *VenueHandler) CheckOut(c echo.Context) error {
	req, ok := bindAttendance(c)
	if !ok {
		return badRequest(c, "member_id and performance_id are required")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	res, err := h.Venue.CheckOut(ctx, req.MemberID, req.PerformanceID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type storeReq struct {
	BoxID     *uint64 `json:"box_id"`
	CheckInID uint64  `json:"checkin_id"`
}

// StoreItem handles POST /v1/storage.
func (h *VenueHandler) StoreItem(c echo.Context) error {
	var req storeReq
	if err := c.Bind(&req); err != nil || !validID(req.CheckInID) {
		return badRequest(c, "checkin_id is required")
	}
	if !validRef(req.BoxID) {
		return badRequest(c, "invalid box_id")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	s, err := h.Venue.StoreItem(ctx, req.BoxID, req.CheckInID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// ReleaseItem handles POST /v1/storage/:id/release.
func (h *VenueHandler) ReleaseItem(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid storage id")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	s, err := h.Venue.ReleaseItem(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// ByID adapts a lookup into a handler for GET .../:id.  It serves both the
// single-record getters and the back-reference lists.
func ByID[T any](h *VenueHandler, what string, fetch func(context.Context, uint64) (T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid "+what+" id")
		}
		ctx, cancel := dbCtx(c, h.Timeout)
		defer cancel()
		v, err := fetch(ctx, id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, v)
	}
}
