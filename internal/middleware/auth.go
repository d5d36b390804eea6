package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// SessionCookieName carries the JWT for browser clients.
	SessionCookieName = "session"
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL = 7 * 24 * time.Hour

	tokenIssuer   = "bazar-api"
	tokenAudience = "bazar-client"
)

var (
	ErrMissingToken = errors.New("authorization required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// SessionClaims is the decoded form of a session token.
type SessionClaims struct {
	UserID    uint
	Username  string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs a session token for the given user.
func IssueToken(secret string, userID uint, username, role string) (string, *SessionClaims, error) {
	if secret == "" {
		return "", nil, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	sc := &SessionClaims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		JTI:       fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
		ExpiresAt: now.Add(TokenTTL),
	}

	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"role":     role,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      sc.ExpiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      sc.JTI,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, sc, nil
}

// ParseToken validates signature, expiry, issuer, and audience, and decodes the subject.
func ParseToken(secret, tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	sc := &SessionClaims{UserID: uint(userID)}
	sc.Username, _ = claims["username"].(string)
	sc.Role, _ = claims["role"].(string)
	sc.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sc.ExpiresAt = exp.Time
	}
	return sc, nil
}

// ExtractToken returns the bearer token from the Authorization header, or the
// session cookie when no header is present.
func ExtractToken(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(SessionCookieName)
}
