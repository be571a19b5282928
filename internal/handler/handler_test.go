package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kronos/internal/config"
	"github.com/iliyamo/kronos/internal/handler"
	"github.com/iliyamo/kronos/internal/middleware"
	"github.com/iliyamo/kronos/internal/repository"
	"github.com/iliyamo/kronos/internal/router"
	"github.com/iliyamo/kronos/internal/service"
	"github.com/iliyamo/kronos/internal/testutil"
	"github.com/iliyamo/kronos/internal/utils"
)

type server struct {
	t     *testing.T
	e     *echo.Echo
	venue *service.Venue
	admin *handler.AdminHandler
}

// newServer wires every route the binary serves, without Redis or RabbitMQ.
func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	v := service.NewVenue(db, nil, false)
	hasher := utils.BcryptHasher{Cost: cfg.BcryptCost}
	tokens := repository.NewTokenRepo(db)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, v, tokens, hasher), cfg.JWTSecret,
		middleware.NewTokenBucket(config.RateLimitConfig{}, nil))
	router.RegisterStats(e, handler.NewStatsHandler(v, 0), middleware.NewRedisCache(config.CacheConfig{}, nil))
	router.RegisterVenue(e, handler.NewVenueHandler(v, 0), cfg.JWTSecret)
	admin := handler.NewAdminHandler(v, hasher, 0)
	router.RegisterAdmin(e, admin, cfg.JWTSecret)
	return &server{t: t, e: e, venue: v, admin: admin}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// expect asserts the status and decodes the body into out when non-nil.
func (s *server) expect(rec *httptest.ResponseRecorder, status int, out any) {
	s.t.Helper()
	if rec.Code != status {
		s.t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body)
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("decode %s: %v", rec.Body, err)
		}
	}
}

type authBody struct {
	User struct {
		ID   uint64 `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func (s *server) register(username string) authBody {
	s.t.Helper()
	var out authBody
	s.expect(s.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "pw-" + username,
	}), http.StatusCreated, &out)
	return out
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body)
	}
}

func TestRegisterLoginAccount(t *testing.T) {
	s := newServer(t)

	reg := s.register("bob")
	if reg.User.ID == 0 || reg.User.Role != middleware.RoleUser || reg.Access.Token == "" || reg.Refresh.Token == "" {
		t.Fatalf("unexpected register response: %+v", reg)
	}
	if admin := s.register("admin"); admin.User.Role != middleware.RoleAdmin {
		t.Errorf("admin role = %q", admin.User.Role)
	}

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"duplicate email", map[string]any{"username": "bobby", "email": "BOB@example.com", "password": "x"}, http.StatusConflict},
		{"duplicate username", map[string]any{"username": "bob", "email": "new@example.com", "password": "x"}, http.StatusConflict},
		{"missing password", map[string]any{"username": "carol", "email": "carol@example.com"}, http.StatusBadRequest},
		{"bad email", map[string]any{"username": "carol", "email": "carol", "password": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.expect(s.do(http.MethodPost, "/v1/auth/register", "", tt.body), tt.status, nil)
		})
	}

	var errBody map[string]string
	s.expect(s.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "bob@example.com", "password": "wrong"}),
		http.StatusUnauthorized, &errBody)
	if errBody["error"] != "login unsuccessful" {
		t.Errorf("error = %q", errBody["error"])
	}
	s.expect(s.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "nobody@example.com", "password": "wrong"}),
		http.StatusUnauthorized, nil)

	var login authBody
	s.expect(s.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "Bob@Example.com", "password": "pw-bob", "remember": true}),
		http.StatusOK, &login)

	var account struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		Role string `json:"role"`
	}
	s.expect(s.do(http.MethodGet, "/v1/account", login.Access.Token, nil), http.StatusOK, &account)
	if account.User.Username != "bob" || account.Role != middleware.RoleUser {
		t.Errorf("account = %+v", account)
	}
	s.expect(s.do(http.MethodGet, "/v1/account", "", nil), http.StatusUnauthorized, nil)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newServer(t)
	reg := s.register("bob")

	var rotated authBody
	s.expect(s.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": reg.Refresh.Token}),
		http.StatusOK, &rotated)
	if rotated.Refresh.Token == reg.Refresh.Token {
		t.Error("refresh token was not rotated")
	}
	// The old token is revoked by rotation.
	s.expect(s.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": reg.Refresh.Token}),
		http.StatusUnauthorized, nil)
	s.expect(s.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{}), http.StatusBadRequest, nil)

	s.expect(s.do(http.MethodPost, "/v1/auth/logout", "", map[string]string{"refresh_token": rotated.Refresh.Token}),
		http.StatusNoContent, nil)
	s.expect(s.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": rotated.Refresh.Token}),
		http.StatusUnauthorized, nil)

	// Bearer-only logout revokes every session of the user.
	var again authBody
	s.expect(s.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "bob@example.com", "password": "pw-bob"}),
		http.StatusOK, &again)
	s.expect(s.do(http.MethodPost, "/v1/auth/logout", again.Access.Token, nil), http.StatusNoContent, nil)
	s.expect(s.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": again.Refresh.Token}),
		http.StatusUnauthorized, nil)

	s.expect(s.do(http.MethodPost, "/v1/auth/logout", "", nil), http.StatusBadRequest, nil)
}

func TestConcurrentRefreshIssuesOneSession(t *testing.T) {
	s := newServer(t)
	reg := s.register("bob")

	const n = 5
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = s.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": reg.Refresh.Token}).Code
		}(i)
	}
	wg.Wait()

	ok, denied := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusUnauthorized:
			denied++
		}
	}
	if ok != 1 || denied != n-1 {
		t.Errorf("status codes = %v, want one 200 and %d 401s", codes, n-1)
	}
}

func TestStats(t *testing.T) {
	s := newServer(t)
	reg := s.register("bob")

	var stats map[string]any
	s.expect(s.do(http.MethodGet, fmt.Sprintf("/user/id=%d", reg.User.ID), "", nil), http.StatusOK, &stats)
	if stats["username"] != "bob" || stats["wins"] != float64(0) || stats["losses"] != float64(0) || stats["ties"] != float64(0) {
		t.Errorf("stats = %v", stats)
	}

	var boards map[string]any
	s.expect(s.do(http.MethodGet, fmt.Sprintf("/user/board/id=%d", reg.User.ID), "", nil), http.StatusOK, &boards)
	if len(boards) != 0 {
		t.Errorf("boards = %v, want empty", boards)
	}

	s.expect(s.do(http.MethodGet, "/user/id=999", "", nil), http.StatusNotFound, nil)
	s.expect(s.do(http.MethodGet, "/user/board/id=999", "", nil), http.StatusNotFound, nil)
	s.expect(s.do(http.MethodGet, "/user/id=abc", "", nil), http.StatusBadRequest, nil)
}

type idBody struct {
	ID uint64 `json:"id"`
}

func TestVenueFlow(t *testing.T) {
	s := newServer(t)
	admin := s.register("admin").Access.Token
	user := s.register("bob").Access.Token

	var stage, performer, member idBody
	s.expect(s.do(http.MethodPost, "/admin/stages", admin, map[string]any{"name": "Main"}), http.StatusCreated, &stage)
	s.expect(s.do(http.MethodPost, "/admin/performers", admin, map[string]any{"name": "Alice", "phone_number": "555-0100"}),
		http.StatusCreated, &performer)
	s.expect(s.do(http.MethodPost, "/admin/members", admin, map[string]any{
		"first_name": "Bob", "last_name": "Smith", "email": "bob.smith@example.com", "password": "pw",
	}), http.StatusCreated, &member)
	s.expect(s.do(http.MethodPost, "/admin/boxes", admin, map[string]any{"id": 7, "stage_id": stage.ID}), http.StatusCreated, nil)

	var perf struct {
		ID          uint64  `json:"id"`
		PerformerID uint64  `json:"performer_id"`
		StageID     *uint64 `json:"stage_id"`
		Duration    int     `json:"duration"`
	}
	s.expect(s.do(http.MethodPost, "/v1/performances", user, map[string]any{
		"performer_id": performer.ID, "stage_id": stage.ID, "when": "2025-06-01T20:00:00Z", "duration": 60,
	}), http.StatusCreated, &perf)
	s.expect(s.do(http.MethodGet, fmt.Sprintf("/v1/performances/%d", perf.ID), user, nil), http.StatusOK, &perf)
	if perf.PerformerID != performer.ID || perf.StageID == nil || *perf.StageID != stage.ID || perf.Duration != 60 {
		t.Fatalf("performance = %+v", perf)
	}

	var checkIn idBody
	s.expect(s.do(http.MethodPost, "/v1/checkins", user, map[string]any{"member_id": member.ID, "performance_id": perf.ID}),
		http.StatusCreated, &checkIn)

	var item struct {
		ID      uint64  `json:"id"`
		TimeOut *string `json:"time_out"`
	}
	s.expect(s.do(http.MethodPost, "/v1/storage", user, map[string]any{"box_id": 7, "checkin_id": checkIn.ID}),
		http.StatusCreated, &item)
	if item.TimeOut != nil {
		t.Fatalf("new storage has time_out %q", *item.TimeOut)
	}

	releasePath := fmt.Sprintf("/v1/storage/%d/release", item.ID)
	s.expect(s.do(http.MethodPost, releasePath, user, nil), http.StatusOK, &item)
	if item.TimeOut == nil {
		t.Fatal("release did not set time_out")
	}
	var conflict map[string]string
	s.expect(s.do(http.MethodPost, releasePath, user, nil), http.StatusConflict, &conflict)
	if conflict["error"] == "" {
		t.Error("conflict without error message")
	}

	var items []idBody
	s.expect(s.do(http.MethodGet, fmt.Sprintf("/v1/checkins/%d/storage", checkIn.ID), user, nil), http.StatusOK, &items)
	if len(items) != 1 {
		t.Errorf("storage for check-in = %v", items)
	}
	var boxes []idBody
	s.expect(s.do(http.MethodGet, fmt.Sprintf("/v1/stages/%d/boxes", stage.ID), user, nil), http.StatusOK, &boxes)
	if len(boxes) != 1 || boxes[0].ID != 7 {
		t.Errorf("boxes for stage = %v", boxes)
	}

	var out struct {
		CheckOut idBody   `json:"checkout"`
		Released []uint64 `json:"released"`
	}
	s.expect(s.do(http.MethodPost, "/v1/checkouts", user, map[string]any{"member_id": member.ID, "performance_id": perf.ID}),
		http.StatusCreated, &out)
	if out.CheckOut.ID == 0 || len(out.Released) != 0 {
		t.Errorf("checkout = %+v", out)
	}
}

func TestVenueErrorMapping(t *testing.T) {
	s := newServer(t)
	token := s.register("bob").Access.Token

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{"no token", http.MethodPost, "/v1/checkins", "", map[string]any{"member_id": 1, "performance_id": 1}, http.StatusUnauthorized},
		{"missing fields", http.MethodPost, "/v1/checkins", token, map[string]any{"member_id": 1}, http.StatusBadRequest},
		{"unknown member", http.MethodPost, "/v1/checkins", token, map[string]any{"member_id": 9, "performance_id": 9}, http.StatusUnprocessableEntity},
		{"unknown performer", http.MethodPost, "/v1/performances", token, map[string]any{"performer_id": 9, "when": "2025-06-01T20:00:00Z"}, http.StatusUnprocessableEntity},
		{"negative duration", http.MethodPost, "/v1/performances", token, map[string]any{"performer_id": 9, "when": "2025-06-01T20:00:00Z", "duration": -5}, http.StatusBadRequest},
		{"unknown check-in", http.MethodPost, "/v1/storage", token, map[string]any{"checkin_id": 9}, http.StatusUnprocessableEntity},
		{"unknown storage", http.MethodPost, "/v1/storage/9/release", token, nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/v1/stages/zero", token, nil, http.StatusBadRequest},
		{"missing stage", http.MethodGet, "/v1/stages/9", token, nil, http.StatusNotFound},
		{"missing parent", http.MethodGet, "/v1/members/9/checkins", token, nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.expect(s.do(tt.method, tt.path, tt.token, tt.body), tt.status, nil)
		})
	}
}

func TestIDsBeyondKeyRange(t *testing.T) {
	s := newServer(t)
	admin := s.register("admin").Access.Token
	user := s.register("bob").Access.Token
	huge := uint64(math.MaxUint64)
	overflow := uint64(math.MaxInt64) + 1

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
	}{
		{"member path", http.MethodGet, "/v1/members/18446744073709551615", user, nil},
		{"first unsigned-only id", http.MethodGet, "/v1/stages/9223372036854775808", user, nil},
		{"stats path", http.MethodGet, "/user/id=9223372036854775808", "", nil},
		{"release path", http.MethodPost, "/v1/storage/18446744073709551615/release", user, nil},
		{"check-in body", http.MethodPost, "/v1/checkins", user, map[string]any{"member_id": huge, "performance_id": 1}},
		{"performance stage", http.MethodPost, "/v1/performances", user, map[string]any{"performer_id": 1, "stage_id": overflow, "when": "2025-06-01T20:00:00Z"}},
		{"storage box", http.MethodPost, "/v1/storage", user, map[string]any{"box_id": huge, "checkin_id": 1}},
		{"admin box id", http.MethodPost, "/admin/boxes", admin, map[string]any{"id": huge}},
		{"admin reference", http.MethodPost, "/admin/checkins", admin, map[string]any{"member_id": 1, "performance_id": overflow}},
		{"admin path", http.MethodGet, "/admin/stages/18446744073709551615", admin, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.expect(s.do(tt.method, tt.path, tt.token, tt.body), http.StatusBadRequest, nil)
		})
	}

	// The largest signed id is still a valid key and simply misses.
	s.expect(s.do(http.MethodGet, "/v1/members/9223372036854775807", user, nil), http.StatusNotFound, nil)
}

func TestAdminCRUD(t *testing.T) {
	s := newServer(t)
	admin := s.register("admin").Access.Token
	user := s.register("bob").Access.Token

	s.expect(s.do(http.MethodGet, "/admin", user, nil), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodGet, "/admin/stages", "", nil), http.StatusUnauthorized, nil)

	var entities struct {
		Entities []string `json:"entities"`
	}
	s.expect(s.do(http.MethodGet, "/admin", admin, nil), http.StatusOK, &entities)
	if len(entities.Entities) != 9 || entities.Entities[0] != "boxes" {
		t.Errorf("entities = %v", entities.Entities)
	}
	s.expect(s.do(http.MethodGet, "/admin/monsters", admin, nil), http.StatusNotFound, nil)

	var performer struct {
		ID    uint64  `json:"id"`
		Name  string  `json:"name"`
		Phone *string `json:"phone_number"`
	}
	s.expect(s.do(http.MethodPost, "/admin/performers", admin, map[string]any{"name": "Alice", "phone_number": "555-0100"}),
		http.StatusCreated, &performer)
	s.expect(s.do(http.MethodPost, "/admin/performers", admin, map[string]any{"name": "Alice"}), http.StatusConflict, nil)
	s.expect(s.do(http.MethodPost, "/admin/performers", admin, map[string]any{}), http.StatusBadRequest, nil)

	// Partial update keeps the phone number.
	path := fmt.Sprintf("/admin/performers/%d", performer.ID)
	s.expect(s.do(http.MethodPut, path, admin, map[string]any{"name": "Alice B"}), http.StatusOK, &performer)
	if performer.Name != "Alice B" || performer.Phone == nil || *performer.Phone != "555-0100" {
		t.Errorf("after update = %+v", performer)
	}

	var list []idBody
	s.expect(s.do(http.MethodGet, "/admin/performers?limit=10", admin, nil), http.StatusOK, &list)
	if len(list) != 1 {
		t.Errorf("list = %v", list)
	}

	s.expect(s.do(http.MethodPost, "/admin/performances", admin, map[string]any{
		"performer_id": performer.ID, "when": "2025-06-01T20:00:00Z", "duration": 30,
	}), http.StatusCreated, nil)
	s.expect(s.do(http.MethodDelete, path, admin, nil), http.StatusConflict, nil)

	s.expect(s.do(http.MethodPost, "/admin/boxes", admin, map[string]any{"stage_id": 1}), http.StatusBadRequest, nil)
	s.expect(s.do(http.MethodPost, "/admin/boxes", admin, map[string]any{"id": 3, "stage_id": 99}), http.StatusUnprocessableEntity, nil)

	var member idBody
	s.expect(s.do(http.MethodPost, "/admin/members", admin, map[string]any{
		"first_name": "Carol", "last_name": "Jones", "email": "carol@example.com",
	}), http.StatusBadRequest, nil)
	s.expect(s.do(http.MethodPost, "/admin/members", admin, map[string]any{
		"first_name": "Carol", "last_name": "Jones", "email": "carol@example.com", "password": "pw",
	}), http.StatusCreated, &member)
	s.expect(s.do(http.MethodDelete, fmt.Sprintf("/admin/members/%d", member.ID), admin, nil), http.StatusNoContent, nil)
	s.expect(s.do(http.MethodGet, fmt.Sprintf("/admin/members/%d", member.ID), admin, nil), http.StatusNotFound, nil)
}

type recordingEvicter struct {
	paths []string
	err   error
}

func (r *recordingEvicter) Evict(_ context.Context, paths ...string) error {
	r.paths = append(r.paths, paths...)
	return r.err
}

func TestAdminUserWritesEvictCache(t *testing.T) {
	s := newServer(t)
	ev := &recordingEvicter{}
	s.admin.Cache = ev
	admin := s.register("admin").Access.Token
	bob := s.register("bob").User.ID

	userPaths := []string{fmt.Sprintf("/user/id=%d", bob), fmt.Sprintf("/user/board/id=%d", bob)}

	s.expect(s.do(http.MethodPut, fmt.Sprintf("/admin/users/%d", bob), admin, map[string]any{"username": "robert"}),
		http.StatusOK, nil)
	if !reflect.DeepEqual(ev.paths, userPaths) {
		t.Fatalf("evicted after update = %v, want %v", ev.paths, userPaths)
	}

	// Writes to entities without public cached views evict nothing, and
	// neither do failed writes.
	ev.paths = nil
	var stage idBody
	s.expect(s.do(http.MethodPost, "/admin/stages", admin, map[string]any{"name": "Main"}), http.StatusCreated, &stage)
	s.expect(s.do(http.MethodPut, fmt.Sprintf("/admin/stages/%d", stage.ID), admin, map[string]any{"name": "Side"}), http.StatusOK, nil)
	s.expect(s.do(http.MethodDelete, "/admin/users/999", admin, nil), http.StatusNotFound, nil)
	if len(ev.paths) != 0 {
		t.Fatalf("unexpected evictions: %v", ev.paths)
	}

	// An eviction failure does not fail the write.
	ev.err = fmt.Errorf("redis down")
	s.expect(s.do(http.MethodDelete, fmt.Sprintf("/admin/users/%d", bob), admin, nil), http.StatusNoContent, nil)
	if !reflect.DeepEqual(ev.paths, userPaths) {
		t.Errorf("evicted after delete = %v, want %v", ev.paths, userPaths)
	}
	s.expect(s.do(http.MethodGet, fmt.Sprintf("/user/id=%d", bob), "", nil), http.StatusNotFound, nil)
}
