package server

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"bazar/internal/middleware"
	"bazar/internal/models"

	"github.com/gofiber/fiber/v2"
)

const blacklistPrefix = "blacklist:"

var errTokenRevoked = errors.New("token has been revoked")

// authenticate validates the request's token and rejects revoked ones.
func (s *Server) authenticate(c *fiber.Ctx) (*middleware.SessionClaims, error) {
	claims, err := middleware.ParseToken(s.config.JWTSecret, middleware.ExtractToken(c))
	if err != nil {
		return nil, err
	}
	if claims.JTI != "" && s.redis != nil {
		revoked, err := s.redis.Exists(c.UserContext(), blacklistPrefix+claims.JTI).Result()
		if err == nil && revoked > 0 {
			return nil, errTokenRevoked
		}
	}
	return claims, nil
}

func (s *Server) setSession(c *fiber.Ctx, claims *middleware.SessionClaims) {
	c.Locals("userID", claims.UserID)
	c.Locals("session", claims)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
	c.SetUserContext(ctx)
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUserID(c) != 0 {
			return c.Next()
		}
		if claims, err := s.authenticate(c); err == nil {
			s.setSession(c, claims)
		}
		return c.Next()
	}
}

// AuthRequired rejects anonymous callers: API clients get 401, browsers are
// sent to the login page with a next parameter.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUserID(c) != 0 {
			return c.Next()
		}

		claims, err := s.authenticate(c)
		if err == nil {
			s.setSession(c, claims)
			return c.Next()
		}

		if wantsJSON(c) {
			msg := "Prihláste sa, prosím."
			if errors.Is(err, errTokenRevoked) {
				msg = "Platnosť prihlásenia bola zrušená."
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}
		return s.flashRedirect(c, flashInfo, "Pre zobrazenie tejto stránky sa prihláste.",
			"/login?next="+url.QueryEscape(c.OriginalURL()))
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.userService.GetByID(c.UserContext(), currentUserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if !user.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Vyžaduje sa administrátorský prístup."))
		}
		return c.Next()
	}
}

// issueSession signs a token for user and sets it as the session cookie.
func (s *Server) issueSession(c *fiber.Ctx, user *models.User) (string, error) {
	token, claims, err := middleware.IssueToken(s.config.JWTSecret, user.ID, user.Username, user.Role)
	if err != nil {
		return "", err
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.SessionCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	s.setSession(c, claims)
	return token, nil
}

// revokeSession blacklists the caller's token until it expires and clears the cookie.
func (s *Server) revokeSession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.SessionCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	claims, ok := c.Locals("session").(*middleware.SessionClaims)
	if !ok || claims.JTI == "" || s.redis == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := s.redis.Set(c.UserContext(), blacklistPrefix+claims.JTI, claims.UserID, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token", slog.String("error", err.Error()))
	}
}
