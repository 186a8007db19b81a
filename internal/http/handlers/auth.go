package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const refreshCookieName = "refresh_token"

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (user.User, error)
	Get(ctx context.Context, id int64) (user.Profile, error)
}

type TokenIssuer interface {
	GenerateAccessToken(id auth.Identity) (string, error)
	GenerateRefreshToken(id auth.Identity) (raw string, jti string, expiresAt time.Time, err error)
	VerifyRefreshToken(token string) (*auth.Claims, error)
}

// AuthHandler issues access tokens and rotates refresh tokens. Spent refresh
// token ids are kept in the cache until they would have expired anyway.
type AuthHandler struct {
	users        Authenticator
	jwt          TokenIssuer
	revoked      cache.Store
	secureCookie bool
	log          *slog.Logger
}

func NewAuthHandler(users Authenticator, jwt TokenIssuer, revoked cache.Store, secureCookie bool, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		users:        users,
		jwt:          jwt,
		revoked:      revoked,
		secureCookie: secureCookie,
		log:          log,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.users.Authenticate(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	h.issue(ctx, auth.Identity{UserID: u.ID, Email: u.Email, Role: string(u.Role)})
}

// POST /auth/refresh
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	rctx := ctx.Request.Context()

	// claiming the jti is the rotation; a replayed or racing token loses here
	claimed, err := h.revoke(rctx, claims)
	if err != nil {
		h.log.ErrorContext(rctx, "refresh token revoke failed", "err", err)
		RespondInternal(ctx, "Could not refresh session")
		return
	}
	if !claimed {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	// the role may have changed since the token was minted
	p, err := h.users.Get(rctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
			return
		}
		RespondServiceError(ctx, err)
		return
	}

	h.issue(ctx, auth.Identity{UserID: p.ID, Email: p.Email, Role: string(p.Role)})
}

// POST /auth/logout
func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)

	if err == nil && raw != "" {
		if claims, err := h.jwt.VerifyRefreshToken(raw); err == nil {
			if _, err := h.revoke(ctx.Request.Context(), claims); err != nil {
				h.log.WarnContext(ctx.Request.Context(), "logout revoke failed", "err", err)
			}
		}
	}

	h.setRefreshCookie(ctx, "", -1)
	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) issue(ctx *gin.Context, id auth.Identity) {
	accessToken, err := h.jwt.GenerateAccessToken(id)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	rawRefresh, _, expiresAt, err := h.jwt.GenerateRefreshToken(id)
	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	h.setRefreshCookie(ctx, rawRefresh, int(time.Until(expiresAt).Seconds()))

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"tokenType":   "Bearer",
	})
}

// revoke puts the token id on the denylist until the token would have expired
// anyway. It reports false when the id was already there.
func (h *AuthHandler) revoke(ctx context.Context, claims *auth.Claims) (bool, error) {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if left := time.Until(claims.ExpiresAt.Time); left > ttl {
			ttl = left
		}
	}
	return h.revoked.SetIfAbsent(ctx, cache.RevokedTokenKey(claims.JTI), []byte("1"), ttl)
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, maxAge int) {
	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		refreshCookieName,
		raw,
		maxAge,
		"/auth",
		"",
		h.secureCookie,
		true, // HttpOnly.
	)
}
