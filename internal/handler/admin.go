package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/kronos/internal/model"
	"github.com/iliyamo/kronos/internal/repository"
	"github.com/iliyamo/kronos/internal/service"
	"github.com/iliyamo/kronos/internal/utils"
)

// resource is one table in the admin browser.  Request bodies are raw JSON
// so updates can be applied on top of the stored record.
type resource interface {
	list(ctx context.Context, limit, offset int) (any, error)
	get(ctx context.Context, id uint64) (any, error)
	create(ctx context.Context, body []byte) (any, error)
	update(ctx context.Context, id uint64, body []byte) (any, error)
	remove(ctx context.Context, id uint64) error
	// cachedPaths lists the public paths whose cached responses show id.
	cachedPaths(id uint64) []string
}

// crud implements resource over a repository for entity T.
type crud[T any] struct {
	listFn   func(context.Context, int, int) ([]T, error)
	getFn    func(context.Context, uint64) (T, error)
	createFn func(context.Context, *T) error
	updateFn func(context.Context, *T) error
	removeFn func(context.Context, uint64) error
	// setID stores the path id into the record before an update.
	setID func(*T, uint64)
	// prepare fills defaults and derived fields; creating is false for
	// updates, where v already holds the stored record merged with body.
	prepare func(v *T, body []byte, creating bool) error
	cached  func(id uint64) []string
}

func (r crud[T]) list(ctx context.Context, limit, offset int) (any, error) {
	return r.listFn(ctx, limit, offset)
}

func (r crud[T]) get(ctx context.Context, id uint64) (any, error) { return r.getFn(ctx, id) }

func (r crud[T]) create(ctx context.Context, body []byte) (any, error) {
	var v T
	if err := decode(body, &v); err != nil {
		return nil, err
	}
	if r.prepare != nil {
		if err := r.prepare(&v, body, true); err != nil {
			return nil, err
		}
	}
	if err := r.createFn(ctx, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r crud[T]) update(ctx context.Context, id uint64, body []byte) (any, error) {
	v, err := r.getFn(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := decode(body, &v); err != nil {
		return nil, err
	}
	r.setID(&v, id)
	if r.prepare != nil {
		if err := r.prepare(&v, body, false); err != nil {
			return nil, err
		}
	}
	if err := r.updateFn(ctx, &v); err != nil {
		return nil, err
	}
	return r.getFn(ctx, id)
}

func (r crud[T]) remove(ctx context.Context, id uint64) error { return r.removeFn(ctx, id) }

func (r crud[T]) cachedPaths(id uint64) []string {
	if r.cached == nil {
		return nil
	}
	return r.cached(id)
}

func decode(body []byte, v any) error {
	if len(body) == 0 {
		return fmt.Errorf("empty body: %w", service.ErrInvalidInput)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, service.ErrInvalidInput)
	}
	return checkIDs(body)
}

// checkIDs rejects "id" and "*_id" members that decode as uint64 but do
// not fit the signed key columns.
func checkIDs(body []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}
	for k, raw := range fields {
		if k != "id" && !strings.HasSuffix(k, "_id") {
			continue
		}
		if id, err := strconv.ParseUint(string(raw), 10, 64); err == nil && id > 0 && !validID(id) {
			return invalid(k + " is out of range")
		}
	}
	return nil
}

// passwordField extracts the plain "password" member, which the models
// never serialize.
func passwordField(body []byte) string {
	var p struct {
		Password string `json:"password"`
	}
	_ = json.Unmarshal(body, &p)
	return p.Password
}

func invalid(msg string) error { return fmt.Errorf("%s: %w", msg, service.ErrInvalidInput) }

// Evicter drops cached responses for request paths.
type Evicter interface {
	Evict(ctx context.Context, paths ...string) error
}

// AdminHandler is the generic CRUD browser over every entity.  When Cache
// is set, updates and deletes evict the public views of the changed row.
type AdminHandler struct {
	resources map[string]resource
	Timeout   time.Duration
	Cache     Evicter
}

// NewAdminHandler builds the entity registry.  Passwords supplied for users
// and members are hashed with hasher; now stamps defaulted timestamps.
func NewAdminHandler(v *service.Venue, hasher utils.Hasher, timeout time.Duration) *AdminHandler {
	now := func() time.Time { return repository.Timestamp(v.Now()) }
	hashInto := func(dst *string, body []byte, creating bool) error {
		pw := passwordField(body)
		if pw == "" {
			if creating {
				return invalid("password is required")
			}
			return nil
		}
		h, err := hasher.Hash(pw)
		if err != nil {
			return err
		}
		*dst = h
		return nil
	}

	return &AdminHandler{Timeout: timeout, resources: map[string]resource{
		"users": crud[model.User]{
			listFn: v.Users.List, getFn: v.Users.GetByID, createFn: v.Users.Create,
			updateFn: v.Users.Update, removeFn: v.Users.Delete,
			setID: func(u *model.User, id uint64) { u.ID = id },
			prepare: func(u *model.User, body []byte, creating bool) error {
				if u.Username == "" || u.Email == "" {
					return invalid("username and email are required")
				}
				if creating {
					u.CreatedAt = now()
				}
				return hashInto(&u.PasswordHash, body, creating)
			},
			cached: func(id uint64) []string {
				return []string{fmt.Sprintf("/user/id=%d", id), fmt.Sprintf("/user/board/id=%d", id)}
			},
		},
		"members": crud[model.Member]{
			listFn: v.Members.List, getFn: v.Members.GetByID, createFn: v.Members.Create,
			updateFn: v.Members.Update, removeFn: v.Members.Delete,
			setID: func(m *model.Member, id uint64) { m.ID = id },
			prepare: func(m *model.Member, body []byte, creating bool) error {
				if m.FirstName == "" || m.LastName == "" || m.Email == "" {
					return invalid("first_name, last_name and email are required")
				}
				return hashInto(&m.PasswordHash, body, creating)
			},
		},
		"stages": crud[model.Stage]{
			listFn: v.Stages.List, getFn: v.Stages.GetByID, createFn: v.Stages.Create,
			updateFn: v.Stages.Update, removeFn: v.Stages.Delete,
			setID: func(s *model.Stage, id uint64) { s.ID = id },
			prepare: func(s *model.Stage, _ []byte, _ bool) error {
				if s.Name == "" {
					return invalid("name is required")
				}
				return nil
			},
		},
		"performers": crud[model.Performer]{
			listFn: v.Performers.List, getFn: v.Performers.GetByID, createFn: v.Performers.Create,
			updateFn: v.Performers.Update, removeFn: v.Performers.Delete,
			setID: func(p *model.Performer, id uint64) { p.ID = id },
			prepare: func(p *model.Performer, _ []byte, _ bool) error {
				if p.Name == "" {
					return invalid("name is required")
				}
				return nil
			},
		},
		"performances": crud[model.Performance]{
			listFn: v.Performances.List, getFn: v.Performances.GetByID, createFn: v.Performances.Create,
			updateFn: v.Performances.Update, removeFn: v.Performances.Delete,
			setID: func(p *model.Performance, id uint64) { p.ID = id },
			prepare: func(p *model.Performance, _ []byte, creating bool) error {
				if p.PerformerID == 0 || p.When.IsZero() {
					return invalid("performer_id and when are required")
				}
				if p.Duration < 0 {
					return invalid("duration must not be negative")
				}
				if creating {
					p.CreatedAt = now()
				}
				return nil
			},
		},
		"checkins": crud[model.CheckIn]{
			listFn: v.CheckIns.List, getFn: v.CheckIns.GetByID, createFn: v.CheckIns.Create,
			updateFn: v.CheckIns.Update, removeFn: v.CheckIns.Delete,
			setID: func(c *model.CheckIn, id uint64) { c.ID = id },
			prepare: func(c *model.CheckIn, _ []byte, creating bool) error {
				if creating && (c.MemberID == 0 || c.PerformanceID == 0) {
					return invalid("member_id and performance_id are required")
				}
				if c.When.IsZero() {
					c.When = now()
				}
				return nil
			},
		},
		"checkouts": crud[model.CheckOut]{
			listFn: v.CheckOuts.List, getFn: v.CheckOuts.GetByID, createFn: v.CheckOuts.Create,
			updateFn: v.CheckOuts.Update, removeFn: v.CheckOuts.Delete,
			setID: func(c *model.CheckOut, id uint64) { c.ID = id },
			prepare: func(c *model.CheckOut, _ []byte, _ bool) error {
				if c.When.IsZero() {
					c.When = now()
				}
				return nil
			},
		},
		"boxes": crud[model.Box]{
			listFn: v.Boxes.List, getFn: v.Boxes.GetByID, createFn: v.Boxes.Create,
			updateFn: v.Boxes.Update, removeFn: v.Boxes.Delete,
			setID: func(b *model.Box, id uint64) { b.ID = id },
			prepare: func(b *model.Box, _ []byte, creating bool) error {
				if creating && b.ID == 0 {
					return invalid("box id must be a positive integer")
				}
				return nil
			},
		},
		"storage": crud[model.Storage]{
			listFn: v.Storage.List, getFn: v.Storage.GetByID, createFn: v.Storage.Create,
			updateFn: v.Storage.Update, removeFn: v.Storage.Delete,
			setID: func(s *model.Storage, id uint64) { s.ID = id },
			prepare: func(s *model.Storage, _ []byte, creating bool) error {
				if creating && s.CheckInID == 0 {
					return invalid("checkin_id is required")
				}
				if s.TimeIn.IsZero() {
					s.TimeIn = now()
				}
				return nil
			},
		},
	}}
}

func (h *AdminHandler) resource(c echo.Context) (resource, error) {
	r, ok := h.resources[c.Param("entity")]
	if !ok {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "unknown entity"})
	}
	return r, nil
}

// Entities handles GET /admin.
func (h *AdminHandler) Entities(c echo.Context) error {
	names := make([]string, 0, len(h.resources))
	for name := range h.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return c.JSON(http.StatusOK, echo.Map{"entities": names})
}

// List handles GET /admin/:entity?limit=&offset=.
func (h *AdminHandler) List(c echo.Context) error {
	r, err := h.resource(c)
	if r == nil {
		return err
	}
	limit, offset := pageParams(c)
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	rows, err := r.list(ctx, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Get handles GET /admin/:entity/:id.
func (h *AdminHandler) Get(c echo.Context) error {
	r, err := h.resource(c)
	if r == nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	v, err := r.get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Create handles POST /admin/:entity.
func (h *AdminHandler) Create(c echo.Context) error {
	r, err := h.resource(c)
	if r == nil {
		return err
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	v, err := r.create(ctx, body)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// Update handles PUT /admin/:entity/:id.  Fields absent from the body keep
// their stored values.
func (h *AdminHandler) Update(c echo.Context) error {
	r, err := h.resource(c)
	if r == nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	v, err := r.update(ctx, id, body)
	if err != nil {
		return writeError(c, err)
	}
	h.evict(c, r, id)
	return c.JSON(http.StatusOK, v)
}

// Delete handles DELETE /admin/:entity/:id.
func (h *AdminHandler) Delete(c echo.Context) error {
	r, err := h.resource(c)
	if r == nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c, h.Timeout)
	defer cancel()
	if err := r.remove(ctx, id); err != nil {
		return writeError(c, err)
	}
	h.evict(c, r, id)
	return c.NoContent(http.StatusNoContent)
}

// evict drops cached views of a changed row.  A failure is logged; the
// entries then expire with the cache TTL.
func (h *AdminHandler) evict(c echo.Context, r resource, id uint64) {
	paths := r.cachedPaths(id)
	if h.Cache == nil || len(paths) == 0 {
		return
	}
	if err := h.Cache.Evict(context.WithoutCancel(c.Request().Context()), paths...); err != nil {
		log.Warn().Err(err).Strs("paths", paths).Msg("cache eviction failed")
	}
}
