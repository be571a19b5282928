package handler // handler defines http handlers

import (
	"context"  // per-request database deadline
	"errors"   // errors.Is against repository sentinels
	"math"     // id range
	"net/http" // HTTP status codes
	"strconv"  // path parameter parsing
	"time"     // timeout type

	"github.com/labstack/echo/v4" // echo defines request context types
	"github.com/rs/zerolog/log"   // server errors are logged, not returned

	"github.com/iliyamo/kronos/internal/repository"
	"github.com/iliyamo/kronos/internal/service"
)

// defaultTimeout bounds database work for a single request.
const defaultTimeout = 5 * time.Second

// dbCtx derives the context used for repository and service calls.
func dbCtx(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), timeout)
}

// statusFor maps store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrReferenceNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrUniquenessViolation),
		errors.Is(err, repository.ErrAlreadyReleased),
		errors.Is(err, repository.ErrBoxOccupied),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": msg}.  Internal errors are logged
// with the request id and replaced by a generic message.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Str("path", c.Request().URL.Path).
			Msg("request failed")
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// validID reports whether id fits a key column on every backend; SQLite
// integers are signed 64-bit.
func validID(id uint64) bool { return id > 0 && id <= math.MaxInt64 }

// validRef is validID for optional references; nil passes.
func validRef(id *uint64) bool { return id == nil || validID(*id) }

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && validID(id)
}

// pageParams reads ?limit=&offset=; the repository clamps them.
func pageParams(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}
