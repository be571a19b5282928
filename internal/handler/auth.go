package handler

import (
	"errors"   // errors.Is on repository sentinels
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // token expiry timestamps

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/kronos/internal/config"     // app configuration
	"github.com/iliyamo/kronos/internal/middleware" // identity accessors and role names
	"github.com/iliyamo/kronos/internal/model"      // user record
	"github.com/iliyamo/kronos/internal/repository" // refresh token storage
	"github.com/iliyamo/kronos/internal/service"    // venue store (users live there)
	"github.com/iliyamo/kronos/internal/utils"      // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Venue  *service.Venue
	Tokens *repository.TokenRepo
	Hasher utils.Hasher
}

func NewAuthHandler(cfg config.Config, v *service.Venue, t *repository.TokenRepo, h utils.Hasher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Venue: v, Tokens: t, Hasher: h}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func (h *AuthHandler) roleFor(u model.User) string {
	if h.Cfg.IsAdmin(u.Username) {
		return middleware.RoleAdmin
	}
	return middleware.RoleUser
}

// issue signs an access token and stores a new refresh token expiring after
// refreshTTL.
func (h *AuthHandler) issue(c echo.Context, u model.User, refreshTTL time.Duration) (authResp, error) {
	role := h.roleFor(u)
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(refreshTTL)
	if err != nil {
		return authResp{}, err
	}
	ctx, cancel := dbCtx(c, h.Cfg.RequestTimeout)
	defer cancel()
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "username/email/password required")
	}
	if !strings.Contains(req.Email, "@") {
		return badRequest(c, "invalid email")
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := dbCtx(c, h.Cfg.RequestTimeout)
	defer cancel()
	u, err := h.Venue.CreateUser(ctx, req.Username, req.Email, hash)
	if errors.Is(err, repository.ErrUniquenessViolation) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
	}
	if err != nil {
		return writeError(c, err)
	}

	resp, err := h.issue(c, u, h.Cfg.RefreshTTL(false))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return a new pair.  Unknown email and wrong password
// produce the same response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := dbCtx(c, h.Cfg.RequestTimeout)
	defer cancel()
	u, err := h.Venue.Authenticate(ctx, req.Email, req.Password, utils.VerifyPassword)
	if err != nil {
		return writeError(c, err)
	}
	if u == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "login unsuccessful"})
	}

	resp, err := h.issue(c, *u, h.Cfg.RefreshTTL(req.Remember))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.  The new refresh token
// keeps the expiry of the one it replaces.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := dbCtx(c, h.Cfg.RequestTimeout)
	defer cancel()

	userID, exp, err := h.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return writeError(c, err)
	}
	u, err := h.Venue.User(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return writeError(c, err)
	}
	// Revoking claims the token: of several concurrent refreshes only one
	// gets past this point.
	err = h.Tokens.RevokeByHash(ctx, hash, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return writeError(c, err)
	}

	resp, err := h.issue(c, u, time.Until(exp))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token given in the body, or every refresh
// token of the bearer when the body has none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid uint64
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
			uid = claims.UserID
		}
	}
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := dbCtx(c, h.Cfg.RequestTimeout)
	defer cancel()

	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		if _, _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		err := h.Tokens.RevokeByHash(ctx, hash, time.Now())
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	case uid != 0:
		if err := h.Tokens.RevokeAllForUser(ctx, uid, time.Now()); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return badRequest(c, "provide Authorization header or refresh_token")
}

// Account returns the authenticated user.
func (h *AuthHandler) Account(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c, h.Cfg.RequestTimeout)
	defer cancel()
	u, err := h.Venue.User(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "role": middleware.Role(c)})
}
