package auth

import (
	"context"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/middleware"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers bundles auth handlers.
type Handlers struct {
	UserFinder UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// Login POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var in LoginInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}
	u, err := h.UserFinder.FindByEmailAndPassword(in.Email, in.Password)
	if err != nil {
		switch err {
		case ErrEmailPasswordRequired:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case ErrInvalidEmail, ErrIncorrectPassword:
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		Email:    u.Email,
	})
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sid
	c.Cookie(&cookie)

	return response.Success(c, "Logged in successfully", SessionUserShape{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		Email:    u.Email,
	}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	u, err := VerifyUser(middleware.GetUser(c))
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}
	return response.Success(c, "Authenticated", u, nil)
}

// Logout DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if sid := middleware.GetSessionID(c); sid != "" && h.Rdb != nil {
		_ = h.Rdb.Del(context.Background(), middleware.SessionRedisPrefix+sid).Err()
	}
	middleware.DestroySession(c)
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Logged out successfully", nil, nil)
}
